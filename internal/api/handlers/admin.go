package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/printgate/printgate/internal/core"
)

type ListJobsQuery struct {
	Status string `form:"status"`
}

// AdminHandler is the operator surface: inspect the queue, cancel waiting
// jobs, reprint finished ones.
type AdminHandler struct {
	store      *core.Store
	dispatcher *core.Dispatcher
}

func NewAdminHandler(store *core.Store, dispatcher *core.Dispatcher) *AdminHandler {
	return &AdminHandler{
		store:      store,
		dispatcher: dispatcher,
	}
}

func (h *AdminHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs := h.store.List(core.JobStatus(query.Status))
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.CountByStatus())
}

func (h *AdminHandler) CancelJob(c *gin.Context) {
	err := h.dispatcher.Cancel(c.Param("id"), "cancelled by operator")
	if err != nil {
		if errors.Is(err, core.ErrUnknownJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "only queued jobs can be cancelled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

func (h *AdminHandler) ReprintJob(c *gin.Context) {
	job, err := h.dispatcher.Reprint(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownJob):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, core.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": "only finished jobs can be reprinted"})
		case errors.Is(err, core.ErrArtifactMissing):
			c.JSON(http.StatusGone, gin.H{"error": "job artifacts already purged"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reprint job"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "job reprinted",
		"new_job_id": job.ID,
	})
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.GET("/stats", h.GetStats)
	r.POST("/jobs/:id/cancel", h.CancelJob)
	r.POST("/jobs/:id/reprint", h.ReprintJob)
}

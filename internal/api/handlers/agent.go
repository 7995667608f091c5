package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printgate/printgate/internal/core"
	"github.com/printgate/printgate/internal/metrics"
	"github.com/printgate/printgate/internal/storage"
)

type HeartbeatRequest struct {
	Availability string `json:"availability" binding:"required"`
	PrinterName  string `json:"printer_name"`
}

type CompletionRequest struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LeaseResponse struct {
	JobID    string `json:"job_id"`
	PageFrom int    `json:"page_from"`
	PageTo   int    `json:"page_to"`
	Copies   int    `json:"copies"`
	FileURL  string `json:"file_url"`
}

// AgentHandler is the surface the remote printing agent polls. Every route
// sits behind the shared-secret bearer middleware.
type AgentHandler struct {
	liveness   *core.Tracker
	dispatcher *core.Dispatcher
	notifier   core.Notifier
}

func NewAgentHandler(liveness *core.Tracker, dispatcher *core.Dispatcher, notifier core.Notifier) *AgentHandler {
	if notifier == nil {
		notifier = core.NopNotifier{}
	}
	return &AgentHandler{
		liveness:   liveness,
		dispatcher: dispatcher,
		notifier:   notifier,
	}
}

func (h *AgentHandler) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	availability, ok := core.ParseAvailability(req.Availability)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown availability value"})
		return
	}

	before := h.liveness.Current()
	after := h.liveness.Heartbeat(availability, req.PrinterName)

	metrics.Heartbeats.Inc()
	if availability == core.AvailabilityOffline {
		metrics.PrinterOnline.Set(0)
	} else {
		metrics.PrinterOnline.Set(1)
	}

	if before.Availability != after.Availability {
		h.notifier.PrinterEvent(before, after)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PullJob leases the queue head. An empty queue answers 204: the agent polls
// on a fixed interval and treats no-content as "sleep and retry".
func (h *AgentHandler) PullJob(c *gin.Context) {
	job, ok, err := h.dispatcher.Lease()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to lease job"})
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, LeaseResponse{
		JobID:    job.ID,
		PageFrom: job.PageFrom,
		PageTo:   job.PageTo,
		Copies:   job.Copies,
		FileURL:  "/api/v1/agent/jobs/" + job.ID + "/file",
	})
}

func (h *AgentHandler) DownloadArtifact(c *gin.Context) {
	data, err := h.dispatcher.Artifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrUnknownJob) || errors.Is(err, core.ErrArtifactMissing) || errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read artifact"})
		return
	}

	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *AgentHandler) JobDone(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.dispatcher.Complete(c.Request.Context(), c.Param("id"), req.Success, req.Message); err != nil {
		if errors.Is(err, core.ErrUnknownJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if errors.Is(err, core.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "job is not printing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record completion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AgentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/heartbeat", h.Heartbeat)
	r.POST("/pull", h.PullJob)
	r.GET("/jobs/:id/file", h.DownloadArtifact)
	r.POST("/jobs/:id/done", h.JobDone)
}

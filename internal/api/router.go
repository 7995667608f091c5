package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printgate/printgate/internal/api/handlers"
	"github.com/printgate/printgate/internal/api/middleware"
	"github.com/printgate/printgate/internal/core"
)

// Deps carries the orchestration context into the HTTP layer. Handlers hold
// no ambient state: tests construct a fresh Deps per case.
type Deps struct {
	Store      *core.Store
	Queue      *core.Queue
	Liveness   *core.Tracker
	Admission  *core.Admission
	Dispatcher *core.Dispatcher
	Blobs      core.BlobStore
	Slicer     core.DocumentSlicer
	Notifier   core.Notifier

	PaymentKeyID string
	AgentToken   string
	AdminAuth    *middleware.AdminAuth
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	jobHandler := handlers.NewJobHandler(deps.Store, deps.Queue, deps.Liveness, deps.Admission, deps.Blobs, deps.Slicer, deps.PaymentKeyID)
	jobHandler.RegisterRoutes(v1)

	agent := v1.Group("/agent")
	agent.Use(middleware.AgentAuth(deps.AgentToken))
	agentHandler := handlers.NewAgentHandler(deps.Liveness, deps.Dispatcher, deps.Notifier)
	agentHandler.RegisterRoutes(agent)

	if deps.AdminAuth != nil {
		admin := v1.Group("/admin")
		admin.POST("/login", deps.AdminAuth.LoginHandler)

		protected := admin.Group("")
		protected.Use(deps.AdminAuth.RequireAdmin())
		adminHandler := handlers.NewAdminHandler(deps.Store, deps.Dispatcher)
		adminHandler.RegisterRoutes(protected)
	}

	return r
}

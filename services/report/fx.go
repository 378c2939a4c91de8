package report

import (
	"net/http"
	"strconv"

	"researchpal-backend/pkg/middleware"
	"researchpal-backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

// WorkerModule plugs the generation handler into the task server, behind the
// job-start rate limiter.
var WorkerModule = fx.Module("report.worker",
	fx.Provide(NewWorker),
	fx.Invoke(registerWorker),
)

func registerWorker(mux *asynq.ServeMux, w *Worker, limiter ratelimit.Limiter) {
	mux.Use(ratelimit.Middleware(limiter))
	mux.HandleFunc(TypeGenerate, w.HandleGenerate)
}

func registerRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/reports", middleware.RequireUser())
	g.POST("", s.handleCreate)
	g.GET("/:id", s.handleGet)
	g.GET("", s.handleList)
	g.DELETE("/:id", s.handleDelete)
}

type createReportRequest struct {
	Product string `json:"product" binding:"required"`
}

func (s *Service) handleCreate(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}

	rep, err := s.Create(c.Request.Context(), middleware.UserID(c), req.Product)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, rep)
}

func (s *Service) handleGet(c *gin.Context) {
	rep, err := s.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rep)
}

func (s *Service) handleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reports, err := s.List(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}

func (s *Service) handleDelete(c *gin.Context) {
	if err := s.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

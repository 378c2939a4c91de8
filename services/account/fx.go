package account

import (
	"net/http"

	"researchpal-backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/account", middleware.RequireUser())
	g.GET("/balance", s.handleBalance)
}

func (s *Service) handleBalance(c *gin.Context) {
	balance, err := s.Balance(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

package order

import (
	"net/http"
	"strconv"

	"researchpal-backend/pkg/middleware"
	"researchpal-backend/pkg/phonepe"
	"researchpal-backend/pkg/stripe"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(
		phonepe.NewClient,
		stripe.NewClient,
		func(c *phonepe.Client) PhonePeGateway { return c },
		func(c *stripe.Client) StripeGateway { return c },
		NewService,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, s *Service) {
	r.GET("/v1/packages", s.handlePackages)

	g := r.Group("/v1/orders", middleware.RequireUser())
	g.POST("/phonepe", s.handleCreatePhonePe)
	g.POST("/stripe", s.handleCreateStripe)
	g.GET("/:id", s.handleGet)
	g.GET("", s.handleList)
}

type createOrderRequest struct {
	PackageID string `json:"package_id" binding:"required"`
}

func (s *Service) handleCreatePhonePe(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "package_id is required"})
		return
	}

	checkout, err := s.CreatePhonePeOrder(c.Request.Context(), middleware.UserID(c), req.PackageID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

func (s *Service) handleCreateStripe(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "package_id is required"})
		return
	}

	checkout, err := s.CreateStripeCheckout(c.Request.Context(), middleware.UserID(c), req.PackageID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

func (s *Service) handleGet(c *gin.Context) {
	o, err := s.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (s *Service) handleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := s.List(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Service) handlePackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.ListPackages()})
}

package webhook

import (
	"researchpal-backend/pkg/phonepe"
	"researchpal-backend/pkg/stripe"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(
		NewService,
		func(c *phonepe.Client) ChecksumVerifier { return c },
		func(c *stripe.Client) EventVerifier { return c },
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

// Webhook endpoints are unauthenticated by design; the proof header is the
// authentication.
func registerRoutes(r *gin.Engine, h *Handler) {
	g := r.Group("/v1/webhooks")
	g.POST("/phonepe", h.HandlePhonePe)
	g.POST("/stripe", h.HandleStripe)
}

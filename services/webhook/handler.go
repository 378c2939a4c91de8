package webhook

import (
	"io"
	"net/http"

	"researchpal-backend/pkg/errutil"

	"github.com/gin-gonic/gin"
	stripego "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// ChecksumVerifier and EventVerifier are the proof-checking capabilities the
// handlers need from the two payment clients.
type ChecksumVerifier interface {
	VerifyChecksum(body []byte, received string) bool
}

type EventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripego.Event, error)
}

type Handler struct {
	service  *Service
	checksum ChecksumVerifier
	events   EventVerifier
}

func NewHandler(service *Service, checksum ChecksumVerifier, events EventVerifier) *Handler {
	return &Handler{service: service, checksum: checksum, events: events}
}

// HandlePhonePe processes a checksum-authenticated callback. Verification
// failures never mutate state; the gateway's own redelivery covers transient
// server errors.
func (h *Handler) HandlePhonePe(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(errutil.BadRequest("unreadable request body", err))
		return
	}

	proof := c.GetHeader("X-VERIFY")
	if proof == "" {
		c.Error(errutil.BadRequest("missing X-VERIFY header", nil))
		return
	}
	if !h.checksum.VerifyChecksum(body, proof) {
		zap.L().Warn("phonepe callback failed checksum verification")
		c.Error(errutil.BadRequest("checksum verification failed", nil))
		return
	}

	n, err := parsePhonePe(body)
	if err != nil {
		c.Error(errutil.BadRequest("invalid callback payload", err))
		return
	}

	if err := h.service.Reconcile(c.Request.Context(), n); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleStripe processes a signature-authenticated event. Only completed
// checkout sessions reconcile; every other event type is acknowledged so the
// gateway stops redelivering it.
func (h *Handler) HandleStripe(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(errutil.BadRequest("unreadable request body", err))
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.Error(errutil.BadRequest("missing Stripe-Signature header", nil))
		return
	}

	event, err := h.events.ConstructEvent(body, sig)
	if err != nil {
		zap.L().Warn("stripe event failed signature verification", zap.Error(err))
		c.Error(errutil.BadRequest("signature verification failed", err))
		return
	}

	if event.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"success": true, "ignored": string(event.Type)})
		return
	}

	n, err := parseStripeSession(event.Data.Raw)
	if err != nil {
		c.Error(errutil.BadRequest("invalid event payload", err))
		return
	}

	if err := h.service.Reconcile(c.Request.Context(), n); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

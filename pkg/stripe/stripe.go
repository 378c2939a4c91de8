package stripe

import (
	"context"
	"fmt"

	"researchpal-backend/pkg/config"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type CheckoutParams struct {
	OrderID string
	Amount  int64 // minor units
	Credits int64
	UserID  string
}

type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// Client wraps the Stripe SDK for the two operations this service needs:
// creating a checkout session for a credit package and verifying webhook
// event signatures.
type Client struct {
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewClient(cfg *config.Config) *Client {
	stripego.Key = cfg.Stripe.SecretKey
	return &Client{
		webhookSecret: cfg.Stripe.WebhookSecret,
		successURL:    cfg.Stripe.SuccessURL,
		cancelURL:     cfg.Stripe.CancelURL,
	}
}

func (c *Client) CreateCheckout(ctx context.Context, p CheckoutParams) (*CheckoutResult, error) {
	params := &stripego.CheckoutSessionParams{
		Params:             stripego.Params{Context: ctx},
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency: stripego.String("inr"),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripego.String(fmt.Sprintf("ResearchPal Pro - %d Search Credits", p.Credits)),
						Description: stripego.String(fmt.Sprintf("Get %d product research credits", p.Credits)),
					},
					UnitAmount: stripego.Int64(p.Amount),
				},
				Quantity: stripego.Int64(1),
			},
		},
		SuccessURL: stripego.String(fmt.Sprintf("%s?session_id={CHECKOUT_SESSION_ID}&orderId=%s", c.successURL, p.OrderID)),
		CancelURL:  stripego.String(c.cancelURL),
	}
	params.AddMetadata("orderId", p.OrderID)
	params.AddMetadata("userId", p.UserID)
	params.AddMetadata("credits", fmt.Sprintf("%d", p.Credits))

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	return &CheckoutResult{
		SessionID:   s.ID,
		CheckoutURL: s.URL,
	}, nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw payload
// and returns the decoded event. The signature scheme itself is the SDK's.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (stripego.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
}

package order

import (
	"context"
	"errors"
	"sort"

	"researchpal-backend/pkg/errutil"
	"researchpal-backend/pkg/phonepe"
	"researchpal-backend/pkg/stripe"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PhonePeGateway and StripeGateway are the checkout capabilities this service
// needs from the two payment clients.
type PhonePeGateway interface {
	CreateOrder(ctx context.Context, p phonepe.OrderParams) (*phonepe.OrderResult, error)
}

type StripeGateway interface {
	CreateCheckout(ctx context.Context, p stripe.CheckoutParams) (*stripe.CheckoutResult, error)
}

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	phonepe PhonePeGateway
	stripe  StripeGateway
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	PhonePe PhonePeGateway
	Stripe  StripeGateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		phonepe: p.PhonePe,
		stripe:  p.Stripe,
	}
}

type Checkout struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// CreatePhonePeOrder initiates a pay-page transaction for a credit package.
// The gateway is called before the row is inserted so the order lands with
// its ExternalTxnID already attached; a stray gateway transaction whose
// insert fails is harmless, its webhook will simply not match any order.
func (s *Service) CreatePhonePeOrder(ctx context.Context, userID, packageID string) (*Checkout, error) {
	pkg, ok := Packages[packageID]
	if !ok {
		return nil, errutil.BadRequest("unknown credit package", nil)
	}

	orderID := s.node.Generate().String()

	res, err := s.phonepe.CreateOrder(ctx, phonepe.OrderParams{
		OrderID: orderID,
		Amount:  pkg.PriceMinor,
		UserID:  userID,
	})
	if err != nil {
		s.logCtx(ctx).Error("phonepe checkout failed", zap.Error(err))
		return nil, errutil.Internal("failed to initiate payment", err)
	}

	if err := s.insert(ctx, &Order{
		ID:            orderID,
		UserID:        userID,
		Gateway:       GatewayPhonePe,
		Amount:        pkg.PriceMinor,
		Searches:      pkg.Credits,
		ExternalTxnID: res.MerchantTransactionID,
		Status:        StatusPending,
	}); err != nil {
		return nil, err
	}

	return &Checkout{OrderID: orderID, RedirectURL: res.RedirectURL}, nil
}

// CreateStripeCheckout creates a checkout session for a credit package. The
// session id doubles as the external transaction id the webhook reconciles on.
func (s *Service) CreateStripeCheckout(ctx context.Context, userID, packageID string) (*Checkout, error) {
	pkg, ok := Packages[packageID]
	if !ok {
		return nil, errutil.BadRequest("unknown credit package", nil)
	}

	orderID := s.node.Generate().String()

	res, err := s.stripe.CreateCheckout(ctx, stripe.CheckoutParams{
		OrderID: orderID,
		Amount:  pkg.PriceMinor,
		Credits: pkg.Credits,
		UserID:  userID,
	})
	if err != nil {
		s.logCtx(ctx).Error("stripe checkout failed", zap.Error(err))
		return nil, errutil.Internal("failed to initiate payment", err)
	}

	if err := s.insert(ctx, &Order{
		ID:            orderID,
		UserID:        userID,
		Gateway:       GatewayStripe,
		Amount:        pkg.PriceMinor,
		Searches:      pkg.Credits,
		ExternalTxnID: res.SessionID,
		Status:        StatusPending,
	}); err != nil {
		return nil, err
	}

	return &Checkout{OrderID: orderID, RedirectURL: res.CheckoutURL}, nil
}

func (s *Service) insert(ctx context.Context, o *Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		s.logCtx(ctx).Error("failed to create order", zap.Error(err))
		return errutil.Internal("failed to create order", err)
	}
	return nil
}

// Get returns an order, owner-scoped.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).
		First(&o, "id = ? AND user_id = ?", orderID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("order not found", err)
		}
		return nil, err
	}
	return &o, nil
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var orders []Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPackages returns the catalog sorted by price.
func (s *Service) ListPackages() []CreditPackage {
	out := make([]CreditPackage, 0, len(Packages))
	for _, p := range Packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceMinor < out[j].PriceMinor })
	return out
}

func (s *Service) logCtx(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}

package order

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"researchpal-backend/pkg/phonepe"
	"researchpal-backend/pkg/stripe"
	"researchpal-backend/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type phonepeMock struct {
	createOrderFn func(ctx context.Context, p phonepe.OrderParams) (*phonepe.OrderResult, error)
}

func (m *phonepeMock) CreateOrder(ctx context.Context, p phonepe.OrderParams) (*phonepe.OrderResult, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, p)
	}
	return &phonepe.OrderResult{MerchantTransactionID: "TXN_" + p.OrderID, RedirectURL: "https://pay.example/redirect"}, nil
}

type stripeMock struct {
	createCheckoutFn func(ctx context.Context, p stripe.CheckoutParams) (*stripe.CheckoutResult, error)
}

func (m *stripeMock) CreateCheckout(ctx context.Context, p stripe.CheckoutParams) (*stripe.CheckoutResult, error) {
	if m.createCheckoutFn != nil {
		return m.createCheckoutFn(ctx, p)
	}
	return &stripe.CheckoutResult{SessionID: "cs_test_" + p.OrderID, CheckoutURL: "https://checkout.example/s"}, nil
}

func newService(t *testing.T) *Service {
	db := testutil.NewTestDB(t, &Order{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{
		DB:      db,
		Node:    node,
		PhonePe: &phonepeMock{},
		Stripe:  &stripeMock{},
	})
}

func TestCreatePhonePeOrder(t *testing.T) {
	svc := newService(t)

	checkout, err := svc.CreatePhonePeOrder(context.Background(), "u1", "10")
	require.NoError(t, err)
	require.NotEmpty(t, checkout.OrderID)
	require.Equal(t, "https://pay.example/redirect", checkout.RedirectURL)

	o, err := svc.Get(context.Background(), "u1", checkout.OrderID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, GatewayPhonePe, o.Gateway)
	require.Equal(t, int64(10), o.Searches)
	require.Equal(t, int64(3900), o.Amount)
	require.Equal(t, "TXN_"+checkout.OrderID, o.ExternalTxnID)
}

func TestCreateStripeCheckout(t *testing.T) {
	svc := newService(t)

	checkout, err := svc.CreateStripeCheckout(context.Background(), "u1", "50")
	require.NoError(t, err)

	o, err := svc.Get(context.Background(), "u1", checkout.OrderID)
	require.NoError(t, err)
	require.Equal(t, GatewayStripe, o.Gateway)
	require.Equal(t, int64(50), o.Searches)
	require.Equal(t, int64(17900), o.Amount)
	require.Equal(t, "cs_test_"+checkout.OrderID, o.ExternalTxnID)
}

func TestCreateOrderUnknownPackage(t *testing.T) {
	svc := newService(t)

	_, err := svc.CreatePhonePeOrder(context.Background(), "u1", "999")
	require.Error(t, err)

	orders, err := svc.List(context.Background(), "u1", 20, 0)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestCreateOrderGatewayFailureLeavesNoRow(t *testing.T) {
	svc := newService(t)
	svc.phonepe = &phonepeMock{
		createOrderFn: func(ctx context.Context, p phonepe.OrderParams) (*phonepe.OrderResult, error) {
			return nil, errors.New("gateway down")
		},
	}

	_, err := svc.CreatePhonePeOrder(context.Background(), "u1", "10")
	require.Error(t, err)

	orders, err := svc.List(context.Background(), "u1", 20, 0)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc := newService(t)

	checkout, err := svc.CreatePhonePeOrder(context.Background(), "u1", "10")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "u2", checkout.OrderID)
	require.Error(t, err)
}

func TestListPackagesSortedByPrice(t *testing.T) {
	svc := newService(t)

	pkgs := svc.ListPackages()
	require.Len(t, pkgs, 3)
	require.Equal(t, "10", pkgs[0].ID)
	require.Equal(t, "50", pkgs[1].ID)
	require.Equal(t, "200", pkgs[2].ID)
}

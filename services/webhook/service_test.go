package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"researchpal-backend/services/account"
	"researchpal-backend/services/order"
	"researchpal-backend/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(t *testing.T) (*Service, *account.Service) {
	db := testutil.NewTestDB(t, &account.User{}, &order.Order{})
	accounts := account.NewService(account.ServiceParams{DB: db})
	return NewService(ServiceParams{DB: db, Account: accounts}), accounts
}

func seed(t *testing.T, s *Service, userCredits int64, o *order.Order) {
	t.Helper()
	require.NoError(t, s.db.Create(&account.User{ID: o.UserID, Email: o.UserID + "@example.com", Credits: userCredits}).Error)
	require.NoError(t, s.db.Create(o).Error)
}

func pendingOrder(id, userID string, gw order.Gateway, txnID string, credits int64) *order.Order {
	return &order.Order{
		ID:            id,
		UserID:        userID,
		Gateway:       gw,
		Amount:        3900,
		Searches:      credits,
		ExternalTxnID: txnID,
		Status:        order.StatusPending,
	}
}

func TestReconcileSuccessGrantsCredits(t *testing.T) {
	svc, accounts := newService(t)
	seed(t, svc, 0, pendingOrder("o1", "u1", order.GatewayPhonePe, "TXN_1", 10))

	n := &Notification{Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_1", Outcome: OutcomeSuccess}
	require.NoError(t, svc.Reconcile(context.Background(), n))

	var o order.Order
	require.NoError(t, svc.db.First(&o, "id = ?", "o1").Error)
	require.Equal(t, order.StatusSuccess, o.Status)

	balance, err := accounts.Balance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)
}

func TestReconcileRedeliveryIsNoOp(t *testing.T) {
	svc, accounts := newService(t)
	seed(t, svc, 0, pendingOrder("o1", "u1", order.GatewayPhonePe, "TXN_1", 10))

	n := &Notification{Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_1", Outcome: OutcomeSuccess}
	require.NoError(t, svc.Reconcile(context.Background(), n))
	require.NoError(t, svc.Reconcile(context.Background(), n))
	require.NoError(t, svc.Reconcile(context.Background(), n))

	balance, err := accounts.Balance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)
}

func TestReconcileFailureDoesNotGrant(t *testing.T) {
	svc, accounts := newService(t)
	seed(t, svc, 5, pendingOrder("o1", "u1", order.GatewayPhonePe, "TXN_1", 10))

	n := &Notification{Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_1", Outcome: OutcomeFailure}
	require.NoError(t, svc.Reconcile(context.Background(), n))

	var o order.Order
	require.NoError(t, svc.db.First(&o, "id = ?", "o1").Error)
	require.Equal(t, order.StatusFailed, o.Status)

	balance, err := accounts.Balance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(5), balance)
}

func TestReconcileFailureThenSuccessRedeliveryStaysFailed(t *testing.T) {
	svc, accounts := newService(t)
	seed(t, svc, 0, pendingOrder("o1", "u1", order.GatewayPhonePe, "TXN_1", 10))

	require.NoError(t, svc.Reconcile(context.Background(), &Notification{
		Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_1", Outcome: OutcomeFailure,
	}))
	require.NoError(t, svc.Reconcile(context.Background(), &Notification{
		Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_1", Outcome: OutcomeSuccess,
	}))

	var o order.Order
	require.NoError(t, svc.db.First(&o, "id = ?", "o1").Error)
	require.Equal(t, order.StatusFailed, o.Status)

	balance, err := accounts.Balance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestReconcileUnknownTransaction(t *testing.T) {
	svc, _ := newService(t)

	err := svc.Reconcile(context.Background(), &Notification{
		Gateway: order.GatewayPhonePe, ExternalTxnID: "TXN_missing", Outcome: OutcomeSuccess,
	})
	require.Error(t, err)
}

func TestReconcileLookupIsGatewayScoped(t *testing.T) {
	svc, accounts := newService(t)
	seed(t, svc, 0, pendingOrder("o1", "u1", order.GatewayPhonePe, "SHARED_ID", 10))

	// Same external id arriving from the other gateway must not match.
	err := svc.Reconcile(context.Background(), &Notification{
		Gateway: order.GatewayStripe, ExternalTxnID: "SHARED_ID", Outcome: OutcomeSuccess,
	})
	require.Error(t, err)

	var o order.Order
	require.NoError(t, svc.db.First(&o, "id = ?", "o1").Error)
	require.Equal(t, order.StatusPending, o.Status)

	balance, err := accounts.Balance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

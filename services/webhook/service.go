package webhook

import (
	"context"
	"errors"
	"time"

	"researchpal-backend/pkg/errutil"
	"researchpal-backend/services/account"
	"researchpal-backend/services/order"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	account *account.Service
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Account *account.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB, account: p.Account}
}

// Reconcile applies a verified gateway notification to the order ledger.
//
// The order lookup is gateway-scoped. An already-terminal order is a no-op
// success, which is what makes gateway redelivery safe. A still-pending order
// gets its terminal transition and, on the success branch only, the credit
// grant, inside one transaction guarded by a conditional UPDATE so exactly
// one delivery wins.
func (s *Service) Reconcile(ctx context.Context, n *Notification) error {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("gateway", string(n.Gateway)),
		zap.String("external_txn_id", n.ExternalTxnID),
	)

	var o order.Order
	err := s.db.WithContext(ctx).
		First(&o, "gateway = ? AND external_txn_id = ?", n.Gateway, n.ExternalTxnID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("notification matches no order")
			return errutil.NotFound("no order matches this transaction", err)
		}
		return err
	}

	if o.Status.Terminal() {
		log.Info("order already reconciled, ignoring redelivery", zap.String("status", string(o.Status)))
		return nil
	}

	target := order.StatusFailed
	if n.Outcome == OutcomeSuccess {
		target = order.StatusSuccess
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&order.Order{}).
			Where("id = ? AND status = ?", o.ID, order.StatusPending).
			Updates(map[string]any{"status": target, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent delivery won the transition; nothing to apply.
			return nil
		}

		if target == order.StatusSuccess {
			return s.account.GrantTx(ctx, tx, o.UserID, o.Searches)
		}
		return nil
	}); err != nil {
		log.Error("failed to reconcile order", zap.Error(err))
		return err
	}

	log.Info("order reconciled", zap.String("status", string(target)), zap.Int64("credits", o.Searches))
	return nil
}

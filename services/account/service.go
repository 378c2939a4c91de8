package account

import (
	"context"
	"errors"

	"researchpal-backend/pkg/errutil"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInsufficientCredits is returned by Reserve when the conditional
// decrement matches no row, meaning the balance is below the requested amount.
var ErrInsufficientCredits = errors.New("insufficient credits")

type Service struct {
	db *gorm.DB
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB}
}

// Reserve atomically checks and decrements the balance in a single
// conditional UPDATE. Zero rows affected means either the user does not exist
// or the balance is short; both reject the reservation. Safe under arbitrary
// concurrent callers for the same user.
func (s *Service) Reserve(ctx context.Context, userID string, amount int64) error {
	return s.ReserveTx(ctx, s.db, userID, amount)
}

// ReserveTx is Reserve running inside a caller-owned transaction so the
// reservation commits or rolls back together with the caller's writes.
func (s *Service) ReserveTx(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return errutil.BadRequest("amount must be > 0", nil)
	}

	res := tx.WithContext(ctx).Model(&User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		Update("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// Grant atomically increments the balance. Idempotency is the caller's
// responsibility; the reconciler invokes this at most once per order.
func (s *Service) Grant(ctx context.Context, userID string, amount int64) error {
	return s.GrantTx(ctx, s.db, userID, amount)
}

// GrantTx is Grant running inside a caller-owned transaction. The webhook
// reconciler uses it so the order transition and the credit grant are applied
// as one atomic unit.
func (s *Service) GrantTx(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return errutil.BadRequest("amount must be > 0", nil)
	}

	res := tx.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("user not found", nil)
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	span := trace.SpanFromContext(ctx)
	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}

	var user User
	if err := s.db.WithContext(ctx).Select("credits").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errutil.NotFound("user not found", err)
		}
		zap.L().With(opts...).Error("failed to query balance", zap.Error(err))
		return 0, err
	}

	return user.Credits, nil
}

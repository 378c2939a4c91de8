package report

import (
	"context"
	"errors"
	"strings"

	"researchpal-backend/pkg/errutil"
	"researchpal-backend/pkg/task"
	"researchpal-backend/services/account"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	accounts *account.Service
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Accounts *account.Service
	Enqueuer task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		accounts: p.Accounts,
		enqueuer: p.Enqueuer,
	}
}

// Create reserves one credit, creates the empty report and enqueues the
// generation job. Reserve, insert and enqueue share one transaction: a
// failed enqueue rolls the reservation and the row back, so an insufficient
// balance or a queue outage leaves no partial state. A worker may dequeue the
// job before the commit lands; it retries a missing row, so the job survives
// that window, and a job whose commit was lost burns out its retry budget.
func (s *Service) Create(ctx context.Context, userID, product string) (*Report, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return nil, errutil.BadRequest("product is required", nil)
	}

	rep := &Report{
		ID:      s.node.Generate().String(),
		UserID:  userID,
		Product: product,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.ReserveTx(ctx, tx, userID, 1); err != nil {
			if errors.Is(err, account.ErrInsufficientCredits) {
				return errutil.Forbidden("insufficient credits", err)
			}
			return err
		}

		if err := tx.Create(rep).Error; err != nil {
			return err
		}

		t, err := NewGenerateTask(GeneratePayload{
			ReportID: rep.ID,
			Product:  rep.Product,
			UserID:   userID,
		})
		if err != nil {
			return err
		}

		if _, err := s.enqueuer.Enqueue(ctx, t); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		var base errutil.BaseError
		if !errors.As(err, &base) {
			s.logCtx(ctx).Error("failed to create report", zap.Error(err))
			return nil, errutil.Internal("failed to create report", err)
		}
		return nil, err
	}

	return rep, nil
}

func (s *Service) Get(ctx context.Context, userID, reportID string) (*Report, error) {
	var rep Report
	err := s.db.WithContext(ctx).
		First(&rep, "id = ? AND user_id = ?", reportID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("report not found", err)
		}
		return nil, err
	}
	return &rep, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var reports []Report
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Delete removes a report on the owner's request. The pipeline itself never
// deletes; a job still queued for a deleted report fails out harmlessly.
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reportID, userID).
		Delete(&Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("report not found", nil)
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}

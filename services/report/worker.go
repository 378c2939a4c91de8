package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"researchpal-backend/pkg/config"
	"researchpal-backend/pkg/generator"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Worker turns queued generation jobs into terminal report states. It never
// touches credit balances; the credit was reserved at request time and is
// forfeit on permanent failure.
type Worker struct {
	db      *gorm.DB
	gen     generator.Generator
	timeout time.Duration

	// lastAttempt reports whether the current attempt is the final one.
	// Overridable in tests; the default asks the queue's task metadata.
	lastAttempt func(ctx context.Context) bool
}

type WorkerParams struct {
	fx.In
	DB        *gorm.DB
	Generator generator.Generator
	Config    *config.Config
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		db:          p.DB,
		gen:         p.Generator,
		timeout:     p.Config.Generator.Timeout,
		lastAttempt: lastAttemptFromTask,
	}
}

func lastAttemptFromTask(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}

// HandleGenerate processes one report:generate task. A failed generation or
// a structurally invalid document returns an error so the queue reschedules
// the attempt; on the final attempt the failure is first recorded on the
// report so it never stays empty forever.
func (w *Worker) HandleGenerate(ctx context.Context, t *asynq.Task) error {
	var p GeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("undecodable payload: %v: %w", err, asynq.SkipRetry)
	}

	log := zap.L().With(zap.String("report_id", p.ReportID), zap.String("product", p.Product))

	var rep Report
	if err := w.db.WithContext(ctx).First(&rep, "id = ?", p.ReportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The job can be dequeued before the producer's transaction
			// commits, so a missing row is retried rather than dropped.
			// A report deleted by its owner, or never committed at all,
			// exhausts the budget and fails with nothing to write to.
			log.Warn("report row not visible yet, retrying")
			return fmt.Errorf("report %s not found", p.ReportID)
		}
		return err
	}
	if len(rep.Data) > 0 {
		log.Info("report already terminal, dropping job")
		return nil
	}

	writeProgress(t, 25)

	genCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	raw, err := w.gen.Generate(genCtx, p.Product)
	if err != nil {
		return w.fail(ctx, log, p, err)
	}

	writeProgress(t, 75)

	if err := validateStructured(raw); err != nil {
		return w.fail(ctx, log, p, err)
	}

	res := w.db.WithContext(ctx).Model(&Report{}).
		Where("id = ? AND data IS NULL", p.ReportID).
		Update("data", datatypes.JSON(raw))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Warn("report reached terminal state while generating, discarding result")
		return nil
	}

	writeProgress(t, 100)
	log.Info("report generated")
	return nil
}

// fail returns the attempt's error to the queue. On the final attempt it
// first writes the terminal error payload; the conditional update keeps the
// write at-most-once even if a duplicate delivery races it. The write uses a
// detached context so a cancelled attempt still records its outcome.
func (w *Worker) fail(ctx context.Context, log *zap.Logger, p GeneratePayload, genErr error) error {
	if !w.lastAttempt(ctx) {
		log.Warn("generation attempt failed, will retry", zap.Error(genErr))
		return genErr
	}

	payload, err := json.Marshal(ErrorPayload{
		Error:     genErr.Error(),
		Product:   p.Product,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return genErr
	}

	res := w.db.WithContext(context.WithoutCancel(ctx)).Model(&Report{}).
		Where("id = ? AND data IS NULL", p.ReportID).
		Update("data", datatypes.JSON(payload))
	if res.Error != nil {
		log.Error("failed to record terminal error payload", zap.Error(res.Error))
	} else {
		log.Error("generation permanently failed", zap.Error(genErr))
	}

	return genErr
}

// Progress marks are informational only; readers must not rely on them for
// correctness.
func writeProgress(t *asynq.Task, pct int) {
	if rw := t.ResultWriter(); rw != nil {
		_, _ = rw.Write([]byte(fmt.Sprintf(`{"progress":%d}`, pct)))
	}
}

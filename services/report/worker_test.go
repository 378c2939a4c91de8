package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"researchpal-backend/services/testutil"
)

type generatorMock struct {
	generateFn func(ctx context.Context, product string) (json.RawMessage, error)
	calls      int
}

func (m *generatorMock) Generate(ctx context.Context, product string) (json.RawMessage, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, product)
	}
	return nil, errors.New("no generator configured")
}

func validDocument() json.RawMessage {
	doc := map[string]string{}
	for _, s := range requiredSections {
		doc[s] = "section text for " + s
	}
	b, _ := json.Marshal(doc)
	return b
}

func newWorker(t *testing.T, gen *generatorMock, last bool) *Worker {
	db := testutil.NewTestDB(t, &Report{})
	return &Worker{
		db:          db,
		gen:         gen,
		timeout:     time.Second,
		lastAttempt: func(ctx context.Context) bool { return last },
	}
}

func seedReport(t *testing.T, w *Worker, id, product string) {
	t.Helper()
	require.NoError(t, w.db.Create(&Report{ID: id, UserID: "u1", Product: product}).Error)
}

func generateTask(t *testing.T, reportID, product string) *asynq.Task {
	t.Helper()
	task, err := NewGenerateTask(GeneratePayload{ReportID: reportID, Product: product, UserID: "u1"})
	require.NoError(t, err)
	return task
}

func TestHandleGenerateWritesStructuredReport(t *testing.T) {
	gen := &generatorMock{
		generateFn: func(ctx context.Context, product string) (json.RawMessage, error) {
			return validDocument(), nil
		},
	}
	w := newWorker(t, gen, false)
	seedReport(t, w, "r1", "Pixel 9")

	require.NoError(t, w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9")))

	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)
	require.NoError(t, validateStructured(json.RawMessage(rep.Data)))
}

func TestHandleGenerateTransientFailureRetries(t *testing.T) {
	gen := &generatorMock{
		generateFn: func(ctx context.Context, product string) (json.RawMessage, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	w := newWorker(t, gen, false)
	seedReport(t, w, "r1", "Pixel 9")

	err := w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9"))
	require.Error(t, err)

	// Not the final attempt: the report stays empty for the retry.
	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)
	require.Empty(t, rep.Data)
}

func TestHandleGenerateFinalFailureWritesErrorPayload(t *testing.T) {
	gen := &generatorMock{
		generateFn: func(ctx context.Context, product string) (json.RawMessage, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	w := newWorker(t, gen, true)
	seedReport(t, w, "r1", "X")

	err := w.HandleGenerate(context.Background(), generateTask(t, "r1", "X"))
	require.Error(t, err)

	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(rep.Data, &payload))
	require.Equal(t, "X", payload.Product)
	require.NotEmpty(t, payload.Error)

	ts, err := time.Parse(time.RFC3339, payload.Timestamp)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestHandleGenerateInvalidDocumentIsFailure(t *testing.T) {
	gen := &generatorMock{
		generateFn: func(ctx context.Context, product string) (json.RawMessage, error) {
			return json.RawMessage(`{"executive_summary":"only one section"}`), nil
		},
	}
	w := newWorker(t, gen, false)
	seedReport(t, w, "r1", "Pixel 9")

	err := w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9"))
	require.Error(t, err)

	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)
	require.Empty(t, rep.Data)
}

func TestHandleGenerateMissingReportRetries(t *testing.T) {
	gen := &generatorMock{}
	w := newWorker(t, gen, false)

	// A worker can dequeue the job before the producer's transaction is
	// committed. The attempt must fail retryably, not drop the job.
	err := w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9"))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, gen.calls)

	// The commit lands; the retried attempt completes the report.
	gen.generateFn = func(ctx context.Context, product string) (json.RawMessage, error) {
		return validDocument(), nil
	}
	seedReport(t, w, "r1", "Pixel 9")

	require.NoError(t, w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9")))

	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)
	require.NoError(t, validateStructured(json.RawMessage(rep.Data)))
}

func TestHandleGenerateDropsJobForTerminalReport(t *testing.T) {
	gen := &generatorMock{}
	w := newWorker(t, gen, false)
	seedReport(t, w, "r1", "Pixel 9")
	require.NoError(t, w.db.Model(&Report{}).Where("id = ?", "r1").
		Update("data", []byte(`{"error":"done","product":"Pixel 9","timestamp":"2026-01-01T00:00:00Z"}`)).Error)

	require.NoError(t, w.HandleGenerate(context.Background(), generateTask(t, "r1", "Pixel 9")))
	require.Zero(t, gen.calls)

	// The earlier terminal value is untouched.
	var rep Report
	require.NoError(t, w.db.First(&rep, "id = ?", "r1").Error)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(rep.Data, &payload))
	require.Equal(t, "done", payload.Error)
}

func TestHandleGenerateUndecodablePayloadSkipsRetry(t *testing.T) {
	w := newWorker(t, &generatorMock{}, false)

	err := w.HandleGenerate(context.Background(), asynq.NewTask(TypeGenerate, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestValidateStructured(t *testing.T) {
	require.NoError(t, validateStructured(validDocument()))

	require.Error(t, validateStructured(json.RawMessage(`[]`)))
	require.Error(t, validateStructured(json.RawMessage(`{"executive_summary":""}`)))

	// Dropping any single section invalidates the document.
	for _, missing := range requiredSections {
		doc := map[string]string{}
		for _, s := range requiredSections {
			if s != missing {
				doc[s] = "text"
			}
		}
		b, _ := json.Marshal(doc)
		require.Error(t, validateStructured(b), "section %s", missing)
	}
}

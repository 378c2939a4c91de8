package report

import (
	"encoding/json"

	"researchpal-backend/pkg/taskname"

	"github.com/hibiken/asynq"
)

const TypeGenerate = taskname.ReportGenerate

// A task is ephemeral; the Report row is the durable record of outcome.
type GeneratePayload struct {
	ReportID string `json:"report_id"`
	Product  string `json:"product"`
	UserID   string `json:"user_id"`
}

// NewGenerateTask builds the queue task for one report. MaxRetry counts
// retries after the first run, so 2 gives three total attempts.
func NewGenerateTask(p GeneratePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerate, payload,
		asynq.Queue("reports"),
		asynq.MaxRetry(2),
	), nil
}

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Report is the durable record of one generation request. Data stays NULL
// until the worker writes exactly one terminal value: either a structured
// report with all eight sections or an error payload.
type Report struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;index" json:"user_id"`
	Product   string         `gorm:"column:product" json:"product"`
	Data      datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Report) TableName() string {
	return "reports"
}

// ErrorPayload is the terminal value written after the last failed attempt.
type ErrorPayload struct {
	Error     string `json:"error"`
	Product   string `json:"product"`
	Timestamp string `json:"timestamp"`
}

var requiredSections = []string{
	"executive_summary",
	"product_overview",
	"market_position",
	"customer_sentiment",
	"competitive_analysis",
	"technical_specs",
	"pricing_analysis",
	"recommendation",
}

// validateStructured checks that a generated document carries every required
// section as non-empty text. Anything else is a generation failure and goes
// down the retry path rather than being written partially.
func validateStructured(raw json.RawMessage) error {
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("generated document is not a flat JSON object: %w", err)
	}

	for _, section := range requiredSections {
		if doc[section] == "" {
			return fmt.Errorf("generated document missing section %q", section)
		}
	}
	return nil
}

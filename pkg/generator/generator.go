package generator

import (
	"context"
	"encoding/json"
)

// Generator produces the raw JSON body of a product-intelligence report.
// Implementations are external capabilities; callers own validation of the
// returned document.
type Generator interface {
	Generate(ctx context.Context, product string) (json.RawMessage, error)
}

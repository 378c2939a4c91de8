package order

import (
	"time"
)

type Gateway string

const (
	GatewayPhonePe Gateway = "PHONEPE"
	GatewayStripe  Gateway = "STRIPE"
)

type Status string

// Status machine: PENDING is the only non-terminal state. Exactly one
// terminal transition may ever occur per order; the reconciler's idempotency
// gate enforces it.
const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Order is a purchase intent for a credit package. ExternalTxnID is the
// gateway-assigned correlation id; the composite unique index keeps lookups
// gateway-scoped so the same external id can never match across gateways.
type Order struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;index" json:"user_id"`
	Gateway       Gateway   `gorm:"column:gateway;uniqueIndex:idx_gateway_external_txn" json:"gateway"`
	Amount        int64     `gorm:"column:amount" json:"amount"` // minor units
	Searches      int64     `gorm:"column:searches" json:"searches"`
	ExternalTxnID string    `gorm:"column:external_txn_id;uniqueIndex:idx_gateway_external_txn" json:"external_txn_id"`
	Status        Status    `gorm:"column:status" json:"status"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

type CreditPackage struct {
	ID         string `json:"id"`
	Credits    int64  `json:"credits"`
	PriceMinor int64  `json:"price_minor"`
}

// Packages is the fixed credit-package catalog. Prices are INR minor units.
var Packages = map[string]CreditPackage{
	"10":  {ID: "10", Credits: 10, PriceMinor: 3900},
	"50":  {ID: "50", Credits: 50, PriceMinor: 17900},
	"200": {ID: "200", Credits: 200, PriceMinor: 59900},
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Case groups addresses and transactions under investigation.
type Case struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Addresses    []CaseAddress     `json:"addresses,omitempty"`
	Transactions []CaseTransaction `json:"transactions,omitempty"`
}

// CaseAddress is an address attached to a case. It is keyed by Address
// within the case; attaching it again replaces the previous entry.
type CaseAddress struct {
	Address string `json:"address"`
	// RiskScore ranges from 0 (low) to 1 (high).
	RiskScore *float64 `json:"risk_score,omitempty"`
	// Entity is the resolved owner name, if known.
	Entity string   `json:"entity,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// CaseTransaction is a transaction attached to a case, keyed by TxHash.
type CaseTransaction struct {
	TxHash      string          `json:"tx_hash"`
	BlockNumber *uint64         `json:"block_number,omitempty"`
	Asset       string          `json:"asset,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Address     string          `json:"address,omitempty"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
}

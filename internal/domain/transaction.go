package domain

import (
	"time"

	"tamv/internal/economy"

	"github.com/shopspring/decimal"
)

// TransactionType - тип движения средств
type TransactionType string

const (
	TxTypeTip          TransactionType = "tip"
	TxTypePurchase     TransactionType = "purchase"
	TxTypeSubscription TransactionType = "subscription"
	TxTypeLottery      TransactionType = "lottery"
	TxTypeReward       TransactionType = "reward"
	TxTypeStaking      TransactionType = "staking"
	TxTypeGovernance   TransactionType = "governance"
	TxTypeRefund       TransactionType = "refund"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeTip, TxTypePurchase, TxTypeSubscription, TxTypeLottery,
		TxTypeReward, TxTypeStaking, TxTypeGovernance, TxTypeRefund:
		return true
	}
	return false
}

// TransactionStatus is pending until finalized; completed rows are append-only.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusReversed  TransactionStatus = "reversed"
)

// Transaction is a ledger entry
type Transaction struct {
	ID           string                 `db:"id" json:"id"`
	Type         TransactionType        `db:"type" json:"type"`
	Status       TransactionStatus      `db:"status" json:"status"`
	Amount       decimal.Decimal        `db:"amount" json:"amount"`
	FromUser     string                 `db:"from_user" json:"from_user"`
	ToUser       string                 `db:"to_user" json:"to_user"`
	Description  string                 `db:"description" json:"description,omitempty"`
	ReferenceID  *string                `db:"reference_id" json:"reference_id,omitempty"`
	Distribution economy.Distribution   `db:"-" json:"distribution"`
	Timestamp    time.Time              `db:"created_at" json:"timestamp"`
	BlockHash    string                 `db:"block_hash" json:"block_hash,omitempty"`
	Meta         map[string]interface{} `db:"meta" json:"meta,omitempty"`
}

// Balance is a snapshot of a user's funds
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Staked    decimal.Decimal `json:"staked"`
	Pending   decimal.Decimal `json:"pending"`
}

// LedgerTotals - накопленные суммы распределения
type LedgerTotals struct {
	ToCreators   decimal.Decimal `json:"to_creators"`
	ToResilience decimal.Decimal `json:"to_resilience"`
	ToKernel     decimal.Decimal `json:"to_kernel"`
}

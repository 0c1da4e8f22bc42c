package domain

import "time"

// AuditLog records a security-relevant or value-moving action
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryLedger      = "ledger"
	AuditCategoryStaking     = "staking"
	AuditCategoryAuction     = "auction"
	AuditCategoryGovernance  = "governance"
	AuditCategoryAchievement = "achievement"
)

// Audit actions
const (
	// Ledger actions
	AuditActionTip          = "tip"
	AuditActionPurchase     = "purchase"
	AuditActionSubscription = "subscription"
	AuditActionRefund       = "refund"

	// Staking actions
	AuditActionStake        = "stake"
	AuditActionUnstake      = "unstake"
	AuditActionUnstakeEarly = "unstake_early"
	AuditActionCompound     = "compound"

	// Auction actions
	AuditActionBid    = "bid"
	AuditActionSettle = "settle"

	// Governance actions
	AuditActionVote    = "vote"
	AuditActionAdvance = "advance"

	// Achievement actions
	AuditActionClaim = "claim"
)

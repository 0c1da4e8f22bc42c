package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is a governance role granting a voting power multiplier.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleDelegate  Role = "delegate"
	RoleCouncilor Role = "councilor"
	RoleGuardian  Role = "guardian"
	RoleSovereign Role = "sovereign"
)

// Profile mirrors the profiles table. Identity is owned by the external
// provider; ID is its subject claim.
type Profile struct {
	ID             string          `db:"id" json:"id"`
	Username       string          `db:"username" json:"username"`
	DisplayName    string          `db:"display_name" json:"display_name"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	Reputation     int64           `db:"reputation" json:"reputation"`
	Role           Role            `db:"role" json:"role"`
	DelegatedPower decimal.Decimal `db:"delegated_power" json:"delegated_power"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Notification is a row emitted for the realtime channel
type Notification struct {
	ID        string                 `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	Kind      string                 `db:"kind" json:"kind"`
	Title     string                 `db:"title" json:"title"`
	Body      string                 `db:"body" json:"body,omitempty"`
	Data      map[string]interface{} `db:"data" json:"data,omitempty"`
	Read      bool                   `db:"read" json:"read"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	NotificationTipReceived    = "tip_received"
	NotificationOutbid         = "outbid"
	NotificationAuctionWon     = "auction_won"
	NotificationRewardCredited = "reward_credited"
	NotificationAchievement    = "achievement_unlocked"
	NotificationProposalClosed = "proposal_closed"
)

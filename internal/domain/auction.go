package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus - статус аукциона
type AuctionStatus string

const (
	AuctionUpcoming  AuctionStatus = "upcoming"
	AuctionLive      AuctionStatus = "live"
	AuctionEnded     AuctionStatus = "ended"
	AuctionSold      AuctionStatus = "sold"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Auction is an NFT artwork auction. CurrentBid never decreases and
// HighestBidderID always belongs to the bidder of CurrentBid.
type Auction struct {
	ID               string          `db:"id" json:"id"`
	ArtworkID        string          `db:"artwork_id" json:"artwork_id"`
	SellerID         string          `db:"seller_id" json:"seller_id"`
	StartPrice       decimal.Decimal `db:"start_price" json:"start_price"`
	CurrentBid       decimal.Decimal `db:"current_bid" json:"current_bid"`
	MinimumIncrement decimal.Decimal `db:"minimum_increment" json:"minimum_increment"`
	HighestBidderID  *string         `db:"highest_bidder_id" json:"highest_bidder_id,omitempty"`
	BidCount         int             `db:"bid_count" json:"bid_count"`
	Status           AuctionStatus   `db:"status" json:"status"`
	StartTime        time.Time       `db:"start_time" json:"start_time"`
	EndTime          time.Time       `db:"end_time" json:"end_time"`
	AutoExtend       bool            `db:"auto_extend" json:"auto_extend"`
	ExtensionMinutes int             `db:"extension_minutes" json:"extension_minutes"`
	SettledTxID      *string         `db:"settled_tx_id" json:"settled_tx_id,omitempty"`
}

// HighestBidder returns the current high bidder or "".
func (a *Auction) HighestBidder() string {
	if a.HighestBidderID == nil {
		return ""
	}
	return *a.HighestBidderID
}

// Bid is immutable apart from the IsWinning flag.
type Bid struct {
	ID        string          `db:"id" json:"id"`
	AuctionID string          `db:"auction_id" json:"auction_id"`
	BidderID  string          `db:"bidder_id" json:"bidder_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Timestamp time.Time       `db:"created_at" json:"timestamp"`
	IsWinning bool            `db:"is_winning" json:"is_winning"`
}

package auction

import (
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultExtensionMinutes is used when an auto-extending auction does not
// carry its own window.
const DefaultExtensionMinutes = 5

// MinimumBid is the start price until the first bid, then the current bid
// plus the minimum increment.
func MinimumBid(a *domain.Auction) decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartPrice
	}
	return a.CurrentBid.Add(a.MinimumIncrement)
}

// ValidateBid checks a bid against the auction snapshot.
func ValidateBid(a *domain.Auction, amount decimal.Decimal, bidderID string) error {
	if a.Status != domain.AuctionLive {
		return economy.Errorf(economy.KindAuctionNotLive, "auction is %s", a.Status)
	}
	if bidderID == a.SellerID {
		return economy.ErrSelfBidNotAllowed
	}
	if minBid := MinimumBid(a); amount.LessThan(minBid) {
		return economy.Errorf(economy.KindBidTooLow, "minimum bid is %s", minBid)
	}
	if a.BidCount > 0 && a.HighestBidder() == bidderID {
		return economy.ErrAlreadyHighestBidder
	}
	return nil
}

// Placement is the outcome of an accepted bid.
type Placement struct {
	Auction  *domain.Auction `json:"auction"`
	Bid      *domain.Bid     `json:"bid"`
	Outbid   *domain.Bid     `json:"outbid,omitempty"`
	Extended bool            `json:"extended"`
}

// Engine places bids. It holds only the id source and clock.
type Engine struct {
	newID            func() string
	extensionMinutes int
}

// NewEngine returns an engine. extensionMinutes <= 0 uses the default.
func NewEngine(extensionMinutes int) *Engine {
	if extensionMinutes <= 0 {
		extensionMinutes = DefaultExtensionMinutes
	}
	return &Engine{newID: uuid.NewString, extensionMinutes: extensionMinutes}
}

// SetIDFunc overrides bid id generation.
func (e *Engine) SetIDFunc(newID func() string) {
	if newID == nil {
		newID = uuid.NewString
	}
	e.newID = newID
}

// PlaceBid validates and applies a bid. prevWinning is the bid currently
// flagged as winning, or nil. Inputs are not modified.
func (e *Engine) PlaceBid(a *domain.Auction, prevWinning *domain.Bid, bidderID string, amount decimal.Decimal, now time.Time) (*Placement, error) {
	if err := ValidateBid(a, amount, bidderID); err != nil {
		return nil, err
	}
	if !a.EndTime.IsZero() && !now.Before(a.EndTime) {
		return nil, economy.Errorf(economy.KindAuctionNotLive, "auction ended at %s", a.EndTime.UTC().Format(time.RFC3339))
	}

	bid := &domain.Bid{
		ID:        e.newID(),
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: now,
		IsWinning: true,
	}

	next := *a
	bidder := bidderID
	next.CurrentBid = amount
	next.HighestBidderID = &bidder
	next.BidCount = a.BidCount + 1

	p := &Placement{Auction: &next, Bid: bid}
	if prevWinning != nil {
		demoted := *prevWinning
		demoted.IsWinning = false
		p.Outbid = &demoted
	}

	// без времени окончания продлевать нечего
	if a.AutoExtend && !a.EndTime.IsZero() {
		window := time.Duration(e.windowFor(a)) * time.Minute
		if a.EndTime.Sub(now) <= window {
			next.EndTime = a.EndTime.Add(window)
			p.Extended = true
		}
	}
	return p, nil
}

func (e *Engine) windowFor(a *domain.Auction) int {
	if a.ExtensionMinutes > 0 {
		return a.ExtensionMinutes
	}
	return e.extensionMinutes
}

// Advance applies the timed transitions: upcoming becomes live at StartTime
// and live closes at EndTime as sold when it has bids, ended otherwise. It
// returns the auction unchanged when nothing is due.
func Advance(a *domain.Auction, now time.Time) (*domain.Auction, bool) {
	next := *a
	switch a.Status {
	case domain.AuctionUpcoming:
		if now.Before(a.StartTime) {
			return a, false
		}
		next.Status = domain.AuctionLive
		if !a.EndTime.IsZero() && !now.Before(a.EndTime) {
			next.Status = closedStatus(a)
		}
	case domain.AuctionLive:
		if a.EndTime.IsZero() || now.Before(a.EndTime) {
			return a, false
		}
		next.Status = closedStatus(a)
	default:
		return a, false
	}
	return &next, true
}

func closedStatus(a *domain.Auction) domain.AuctionStatus {
	if a.BidCount > 0 {
		return domain.AuctionSold
	}
	return domain.AuctionEnded
}

// Cancel withdraws an auction that has not received bids.
func Cancel(a *domain.Auction) (*domain.Auction, error) {
	if a.Status != domain.AuctionUpcoming && a.Status != domain.AuctionLive {
		return nil, economy.Errorf(economy.KindInvalidTransition, "cannot cancel %s auction", a.Status)
	}
	if a.BidCount > 0 {
		return nil, economy.Errorf(economy.KindInvalidTransition, "auction already has %d bids", a.BidCount)
	}
	next := *a
	next.Status = domain.AuctionCancelled
	return &next, nil
}

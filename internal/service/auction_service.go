package service

import (
	"context"
	"time"

	"tamv/internal/auction"
	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/logger"
	"tamv/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AuctionService runs NFT auctions. Bids are escrowed: the bidder's amount
// moves to pending and is released when outbid or captured on settlement.
type AuctionService struct {
	db            *pgxpool.Pool
	engine        *auction.Engine
	wallet        *WalletService
	auctions      *repository.AuctionRepository
	profiles      *repository.ProfileRepository
	notifications *repository.NotificationRepository
	audit         *AuditService
	notifier      Notifier
	retry         RetryPolicy
}

func NewAuctionService(db *pgxpool.Pool, engine *auction.Engine, wallet *WalletService, audit *AuditService, notifier Notifier) *AuctionService {
	return &AuctionService{
		db:            db,
		engine:        engine,
		wallet:        wallet,
		auctions:      repository.NewAuctionRepository(db),
		profiles:      repository.NewProfileRepository(db),
		notifications: repository.NewNotificationRepository(db),
		audit:         audit,
		notifier:      orNoop(notifier),
		retry:         DefaultRetry,
	}
}

// NewAuction описывает аукцион, который создаёт продавец
type NewAuction struct {
	ArtworkID        string          `json:"artwork_id" binding:"required"`
	StartPrice       decimal.Decimal `json:"start_price"`
	MinimumIncrement decimal.Decimal `json:"minimum_increment"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          time.Time       `json:"end_time" binding:"required"`
	AutoExtend       bool            `json:"auto_extend"`
	ExtensionMinutes int             `json:"extension_minutes"`
}

// Create lists an artwork. An auction starting now or earlier opens live.
func (s *AuctionService) Create(ctx context.Context, sellerID string, req NewAuction) (*domain.Auction, error) {
	at := now()
	if !req.StartPrice.IsPositive() {
		return nil, economy.Errorf(economy.KindInvalidAmount, "start price must be positive")
	}
	if req.MinimumIncrement.IsNegative() {
		return nil, economy.Errorf(economy.KindInvalidAmount, "minimum increment must not be negative")
	}
	if req.StartTime.IsZero() {
		req.StartTime = at
	}
	if !req.EndTime.After(req.StartTime) || !req.EndTime.After(at) {
		return nil, economy.Errorf(economy.KindInvalidTransition, "auction must end in the future, after it starts")
	}

	a := &domain.Auction{
		ID:               uuid.NewString(),
		ArtworkID:        req.ArtworkID,
		SellerID:         sellerID,
		StartPrice:       economy.FloorCents(req.StartPrice),
		CurrentBid:       decimal.Zero,
		MinimumIncrement: economy.FloorCents(req.MinimumIncrement),
		Status:           domain.AuctionUpcoming,
		StartTime:        req.StartTime.UTC().Truncate(time.Microsecond),
		EndTime:          req.EndTime.UTC().Truncate(time.Microsecond),
		AutoExtend:       req.AutoExtend,
		ExtensionMinutes: req.ExtensionMinutes,
	}
	if !at.Before(a.StartTime) {
		a.Status = domain.AuctionLive
	}
	if err := s.auctions.Create(ctx, a); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("auction created", "auction_id", a.ID, "seller_id", sellerID, "status", a.Status)
	return a, nil
}

// Get returns an auction.
func (s *AuctionService) Get(ctx context.Context, id string) (*domain.Auction, error) {
	return s.auctions.GetByID(ctx, id)
}

// ListBids returns the bid history, newest first.
func (s *AuctionService) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	return s.auctions.ListBids(ctx, auctionID, limit)
}

// PlaceBid escrows amount from the bidder and makes it the winning bid. The
// previous high bidder gets its escrow back and an outbid notification.
func (s *AuctionService) PlaceBid(ctx context.Context, bidderID, auctionID string, amount decimal.Decimal) (*auction.Placement, error) {
	var notes []*domain.Notification
	placement, err := withRetry(ctx, s.retry, "bid", func() (*auction.Placement, error) {
		notes = notes[:0]
		var out *auction.Placement
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			stored, err := s.auctions.GetByIDTx(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			at := now()
			// an upcoming auction whose start has passed takes bids before
			// the poller catches up
			current, _ := auction.Advance(stored, at)
			prevWinning, err := s.auctions.WinningBidTx(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			p, err := s.engine.PlaceBid(current, prevWinning, bidderID, amount, at)
			if err != nil {
				return err
			}

			bal, err := s.profiles.BalanceTx(ctx, tx, bidderID)
			if err != nil {
				return err
			}
			if amount.GreaterThan(bal.Available) {
				return economy.Errorf(economy.KindInsufficientBalance, "need %s, available %s", amount, bal.Available)
			}
			next := bal
			next.Available = bal.Available.Sub(amount)
			next.Pending = bal.Pending.Add(amount)
			if err := s.profiles.SetBalanceIfMatch(ctx, tx, bidderID, bal, next); err != nil {
				return err
			}

			if err := s.auctions.UpdateIfUnchanged(ctx, tx, stored, p.Auction); err != nil {
				return err
			}
			if p.Outbid != nil {
				if err := s.auctions.DemoteBidWithTx(ctx, tx, p.Outbid.ID); err != nil {
					return err
				}
				if err := s.profiles.Release(ctx, tx, p.Outbid.BidderID, p.Outbid.Amount); err != nil {
					return err
				}
				note := newNotification(p.Outbid.BidderID, domain.NotificationOutbid, "You have been outbid", map[string]interface{}{
					"auction_id": auctionID,
					"amount":     amount.String(),
				})
				if err := s.notifications.CreateWithTx(ctx, tx, note); err != nil {
					return err
				}
				notes = append(notes, note)
			}
			if err := s.auctions.CreateBidWithTx(ctx, tx, p.Bid); err != nil {
				return err
			}
			out = p
			return s.audit.LogWithTx(ctx, tx, bidderID, domain.AuditActionBid, domain.AuditCategoryAuction, map[string]interface{}{
				"auction_id": auctionID,
				"bid_id":     p.Bid.ID,
				"amount":     amount.String(),
				"extended":   p.Extended,
			})
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	BidsTotal.Inc()
	for _, n := range notes {
		s.notifier.Notify(n)
	}
	logger.WithContext(ctx).Info("bid placed",
		"auction_id", auctionID, "bidder_id", bidderID, "amount", amount.String(), "extended", placement.Extended)
	return placement, nil
}

// Advance applies a due status change. A live auction closing with bids is
// sold in the same transaction: the winner's escrow is captured and the
// purchase is booked to the seller.
func (s *AuctionService) Advance(ctx context.Context, auctionID string) (*domain.Auction, error) {
	type result struct {
		auction *domain.Auction
		tx      *domain.Transaction
		note    *domain.Notification
	}
	res, err := withRetry(ctx, s.retry, "advance_auction", func() (result, error) {
		var r result
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			stored, err := s.auctions.GetByIDTx(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			next, changed := auction.Advance(stored, now())
			if !changed {
				r.auction = stored
				return nil
			}
			if next.Status == domain.AuctionSold {
				if r.tx, r.note, err = s.settleWithTx(ctx, tx, next); err != nil {
					return err
				}
				id := r.tx.ID
				next.SettledTxID = &id
			}
			if err := s.auctions.UpdateIfUnchanged(ctx, tx, stored, next); err != nil {
				return err
			}
			r.auction = next
			if next.Status != domain.AuctionSold {
				return nil
			}
			return s.audit.LogWithTx(ctx, tx, next.SellerID, domain.AuditActionSettle, domain.AuditCategoryAuction, map[string]interface{}{
				"auction_id":     next.ID,
				"winner_id":      next.HighestBidder(),
				"amount":         next.CurrentBid.String(),
				"transaction_id": r.tx.ID,
			})
		})
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if res.tx != nil {
		s.wallet.record(res.tx)
		s.notifier.Notify(res.note)
		logger.WithContext(ctx).Info("auction sold",
			"auction_id", auctionID, "winner_id", res.auction.HighestBidder(), "amount", res.auction.CurrentBid.String())
	}
	return res.auction, nil
}

func (s *AuctionService) settleWithTx(ctx context.Context, tx pgx.Tx, a *domain.Auction) (*domain.Transaction, *domain.Notification, error) {
	winning, err := s.auctions.WinningBidTx(ctx, tx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	if winning == nil || winning.BidderID != a.HighestBidder() || !winning.Amount.Equal(a.CurrentBid) {
		return nil, nil, economy.Errorf(economy.KindConflict, "auction %s winning bid out of sync", a.ID)
	}
	if err := s.profiles.CapturePending(ctx, tx, winning.BidderID, winning.Amount); err != nil {
		return nil, nil, err
	}
	ref := a.ID
	done, err := s.wallet.settleWithTx(ctx, tx, domain.TxTypePurchase, winning.BidderID, a.SellerID, winning.Amount, "auction "+a.ArtworkID, &ref)
	if err != nil {
		return nil, nil, err
	}
	note := newNotification(winning.BidderID, domain.NotificationAuctionWon, "You won the auction", map[string]interface{}{
		"auction_id":     a.ID,
		"artwork_id":     a.ArtworkID,
		"amount":         winning.Amount.String(),
		"transaction_id": done.ID,
	})
	if err := s.notifications.CreateWithTx(ctx, tx, note); err != nil {
		return nil, nil, err
	}
	return done, note, nil
}

// Cancel withdraws an auction before it receives bids. Only the seller can.
func (s *AuctionService) Cancel(ctx context.Context, sellerID, auctionID string) (*domain.Auction, error) {
	return withRetry(ctx, s.retry, "cancel_auction", func() (*domain.Auction, error) {
		var out *domain.Auction
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			stored, err := s.auctions.GetByIDTx(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			if stored.SellerID != sellerID {
				return economy.Errorf(economy.KindNotFound, "auction %s not found", auctionID)
			}
			if out, err = auction.Cancel(stored); err != nil {
				return err
			}
			return s.auctions.UpdateIfUnchanged(ctx, tx, stored, out)
		})
		return out, err
	})
}

// AdvanceDue moves every auction whose start or end has passed. Used by the
// background poller.
func (s *AuctionService) AdvanceDue(ctx context.Context) error {
	due, err := s.auctions.DueForAdvance(ctx, now(), 100)
	if err != nil {
		return err
	}
	for _, a := range due {
		if _, err := s.Advance(ctx, a.ID); err != nil {
			logger.Warn("auction advance failed", "auction_id", a.ID, "error", err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuctionRepository struct {
	db *pgxpool.Pool
}

func NewAuctionRepository(db *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{db: db}
}

const auctionColumns = `id, artwork_id, seller_id, start_price, current_bid, minimum_increment, highest_bidder_id,
		bid_count, status, start_time, end_time, auto_extend, extension_minutes, settled_tx_id`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var a domain.Auction
	err := row.Scan(&a.ID, &a.ArtworkID, &a.SellerID, &a.StartPrice, &a.CurrentBid, &a.MinimumIncrement, &a.HighestBidderID,
		&a.BidCount, &a.Status, &a.StartTime, &a.EndTime, &a.AutoExtend, &a.ExtensionMinutes, &a.SettledTxID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new auction.
func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO auctions (`+auctionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.ArtworkID, a.SellerID, a.StartPrice, a.CurrentBid, a.MinimumIncrement, a.HighestBidderID,
		a.BidCount, a.Status, a.StartTime, a.EndTime, a.AutoExtend, a.ExtensionMinutes, a.SettledTxID,
	)
	return classify("create auction", err)
}

// GetByID returns an auction.
func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*domain.Auction, error) {
	return getAuction(ctx, r.db, id)
}

// GetByIDTx reads an auction inside tx.
func (r *AuctionRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Auction, error) {
	return getAuction(ctx, tx, id)
}

func getAuction(ctx context.Context, q Querier, id string) (*domain.Auction, error) {
	a, err := scanAuction(q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get auction", err)
	}
	return a, nil
}

// UpdateIfUnchanged writes next only if the stored auction still has prev's
// status and bid count. Two bids racing on the same auction: one wins, the
// other gets economy.ErrConflict and re-validates against the new price.
func (r *AuctionRepository) UpdateIfUnchanged(ctx context.Context, tx pgx.Tx, prev, next *domain.Auction) error {
	tag, err := tx.Exec(ctx,
		`UPDATE auctions
		 SET current_bid = $2, highest_bidder_id = $3, bid_count = $4, status = $5, end_time = $6, settled_tx_id = $7
		 WHERE id = $1 AND status = $8 AND bid_count = $9`,
		next.ID, next.CurrentBid, next.HighestBidderID, next.BidCount, next.Status, next.EndTime, next.SettledTxID,
		prev.Status, prev.BidCount,
	)
	return expectOne("update auction", tag, err)
}

// DueForAdvance returns auctions whose start or end time has passed without
// a status change.
func (r *AuctionRepository) DueForAdvance(ctx context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+auctionColumns+`
		 FROM auctions
		 WHERE (status = $1 AND start_time <= $3)
		    OR (status = $2 AND end_time <= $3)
		 ORDER BY end_time
		 LIMIT $4`,
		domain.AuctionUpcoming, domain.AuctionLive, now, limit)
	if err != nil {
		return nil, classify("due auctions", err)
	}
	defer rows.Close()

	var result []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, classify("scan auction", err)
		}
		result = append(result, a)
	}
	return result, classify("due auctions", rows.Err())
}

const bidColumns = `id, auction_id, bidder_id, amount, is_winning, created_at`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var b domain.Bid
	if err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.IsWinning, &b.Timestamp); err != nil {
		return nil, err
	}
	return &b, nil
}

// WinningBidTx returns the bid flagged as winning, or nil.
func (r *AuctionRepository) WinningBidTx(ctx context.Context, tx pgx.Tx, auctionID string) (*domain.Bid, error) {
	b, err := scanBid(tx.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 AND is_winning`, auctionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("winning bid", err)
	}
	return b, nil
}

// DemoteBidWithTx clears the winning flag of a previous bid.
func (r *AuctionRepository) DemoteBidWithTx(ctx context.Context, tx pgx.Tx, bidID string) error {
	_, err := tx.Exec(ctx, `UPDATE bids SET is_winning = false WHERE id = $1`, bidID)
	return classify("demote bid", err)
}

// CreateBidWithTx inserts a bid.
func (r *AuctionRepository) CreateBidWithTx(ctx context.Context, tx pgx.Tx, b *domain.Bid) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.AuctionID, b.BidderID, b.Amount, b.IsWinning, b.Timestamp,
	)
	return classify("create bid", err)
}

// ListBids returns the bid history of an auction, newest first.
func (r *AuctionRepository) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+bidColumns+`
		 FROM bids
		 WHERE auction_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, auctionID, limit)
	if err != nil {
		return nil, classify("list bids", err)
	}
	defer rows.Close()

	var result []*domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, classify("scan bid", err)
		}
		result = append(result, b)
	}
	return result, classify("list bids", rows.Err())
}

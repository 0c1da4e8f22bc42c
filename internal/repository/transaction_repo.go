package repository

import (
	"context"
	"encoding/json"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository stores the append-only ledger. Rows are written once
// and never updated.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, type, status, amount, from_user, to_user, description, reference_id,
		creator_share, resilience_share, kernel_share, block_hash, meta, created_at`

// CreateWithTx inserts a finalized transaction using an existing database transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	metaJSON, err := json.Marshal(tx.Meta)
	if err != nil || tx.Meta == nil {
		metaJSON = []byte("{}")
	}

	_, err = dbTx.Exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tx.ID, tx.Type, tx.Status, tx.Amount, tx.FromUser, tx.ToUser, tx.Description, tx.ReferenceID,
		tx.Distribution.CreatorShare, tx.Distribution.ResilienceShare, tx.Distribution.KernelShare,
		tx.BlockHash, metaJSON, tx.Timestamp,
	)
	return classify("insert transaction", err)
}

// GetByID returns one ledger entry.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, classify("get transaction", err)
	}
	defer rows.Close()

	txs, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, economy.Errorf(economy.KindNotFound, "transaction %s not found", id)
	}
	return txs[0], nil
}

// GetByUserID returns recent transactions sent or received by a user
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE from_user = $1 OR to_user = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// RefundExists reports whether a refund already references origID.
func (r *TransactionRepository) RefundExists(ctx context.Context, dbTx pgx.Tx, origID string) (bool, error) {
	var exists bool
	err := dbTx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE type = $1 AND reference_id = $2)`,
		domain.TxTypeRefund, origID,
	).Scan(&exists)
	return exists, classify("refund exists", err)
}

// Totals sums the distribution of completed revenue transactions. It seeds
// the in-memory aggregate at startup.
func (r *TransactionRepository) Totals(ctx context.Context) (domain.LedgerTotals, int64, error) {
	var (
		t     domain.LedgerTotals
		count int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(creator_share), 0), COALESCE(SUM(resilience_share), 0),
		        COALESCE(SUM(kernel_share), 0), COUNT(*)
		 FROM transactions
		 WHERE status = $1 AND type <> ALL($2)`,
		domain.TxStatusCompleted, []string{string(domain.TxTypeRefund), string(domain.TxTypeReward)},
	).Scan(&t.ToCreators, &t.ToResilience, &t.ToKernel, &count)
	if err != nil {
		return domain.LedgerTotals{}, 0, classify("ledger totals", err)
	}
	return t, count, nil
}

// Helper to scan rows into Transaction slice
func (r *TransactionRepository) scanRows(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction

	for rows.Next() {
		var (
			tx       domain.Transaction
			metaJSON []byte
		)

		if err := rows.Scan(
			&tx.ID, &tx.Type, &tx.Status, &tx.Amount, &tx.FromUser, &tx.ToUser, &tx.Description, &tx.ReferenceID,
			&tx.Distribution.CreatorShare, &tx.Distribution.ResilienceShare, &tx.Distribution.KernelShare,
			&tx.BlockHash, &metaJSON, &tx.Timestamp,
		); err != nil {
			return nil, classify("scan transaction", err)
		}

		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tx.Meta)
		}

		result = append(result, &tx)
	}

	return result, classify("scan transactions", rows.Err())
}

package service

import (
	"context"

	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/ledger"
	"tamv/internal/logger"
	"tamv/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// WalletService moves MSR between users through the ledger
type WalletService struct {
	db            *pgxpool.Pool
	profiles      *repository.ProfileRepository
	transactions  *repository.TransactionRepository
	notifications *repository.NotificationRepository
	audit         *AuditService
	builder       *ledger.Builder
	totals        *ledger.Totals
	notifier      Notifier
	retry         RetryPolicy
}

// NewWalletService creates a wallet service. totals is the process-wide
// aggregate, seeded with LoadTotals.
func NewWalletService(db *pgxpool.Pool, builder *ledger.Builder, totals *ledger.Totals, audit *AuditService, notifier Notifier) *WalletService {
	return &WalletService{
		db:            db,
		profiles:      repository.NewProfileRepository(db),
		transactions:  repository.NewTransactionRepository(db),
		notifications: repository.NewNotificationRepository(db),
		audit:         audit,
		builder:       builder,
		totals:        totals,
		notifier:      orNoop(notifier),
		retry:         DefaultRetry,
	}
}

// LoadTotals seeds the in-memory aggregate from the ledger.
func LoadTotals(ctx context.Context, db *pgxpool.Pool) (*ledger.Totals, error) {
	t, count, err := repository.NewTransactionRepository(db).Totals(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("ledger totals loaded", "transactions", count, "to_creators", t.ToCreators.String())
	return ledger.NewTotals(t), nil
}

// GetBalance returns user's current balance
func (s *WalletService) GetBalance(ctx context.Context, userID string) (domain.Balance, error) {
	return s.profiles.Balance(ctx, userID)
}

// GetTransactionHistory returns user's transaction history
func (s *WalletService) GetTransactionHistory(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	return s.transactions.GetByUserID(ctx, userID, limit)
}

// Totals returns the running distribution aggregate.
func (s *WalletService) Totals() domain.LedgerTotals {
	return s.totals.Snapshot()
}

// Tip sends amount from one user to a creator.
func (s *WalletService) Tip(ctx context.Context, from, to string, amount decimal.Decimal, desc string) (*domain.Transaction, error) {
	return s.Pay(ctx, domain.TxTypeTip, from, to, amount, desc, nil)
}

// Purchase pays a seller for an item identified by refID.
func (s *WalletService) Purchase(ctx context.Context, buyer, seller string, amount decimal.Decimal, desc string, refID *string) (*domain.Transaction, error) {
	return s.Pay(ctx, domain.TxTypePurchase, buyer, seller, amount, desc, refID)
}

// Subscribe pays a creator's subscription.
func (s *WalletService) Subscribe(ctx context.Context, subscriber, creator string, amount decimal.Decimal, desc string) (*domain.Transaction, error) {
	return s.Pay(ctx, domain.TxTypeSubscription, subscriber, creator, amount, desc, nil)
}

var payActions = map[domain.TransactionType]string{
	domain.TxTypeTip:          domain.AuditActionTip,
	domain.TxTypePurchase:     domain.AuditActionPurchase,
	domain.TxTypeSubscription: domain.AuditActionSubscription,
}

// Pay debits the sender, credits the recipient's share and appends the
// finalized transaction, all in one database transaction. The debit is a
// compare-and-set on the balance read at the start; a concurrent change
// makes the attempt fail with a conflict and the whole read-validate-write
// sequence runs again.
func (s *WalletService) Pay(ctx context.Context, txType domain.TransactionType, from, to string, amount decimal.Decimal, desc string, refID *string) (*domain.Transaction, error) {
	action, ok := payActions[txType]
	if !ok {
		return nil, economy.Errorf(economy.KindInvalidTransition, "%s is not a payment type", txType)
	}

	var note *domain.Notification
	done, err := withRetry(ctx, s.retry, string(txType), func() (*domain.Transaction, error) {
		var out *domain.Transaction
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			bal, err := s.profiles.BalanceTx(ctx, tx, from)
			if err != nil {
				return err
			}
			pending, err := s.builder.Create(txType, amount, from, to, desc, refID)
			if err != nil {
				return err
			}
			if err := ledger.Validate(pending, bal); err != nil {
				return err
			}
			if _, err := s.profiles.GetByIDTx(ctx, tx, to); err != nil {
				return err
			}
			out, err = s.builder.Finalize(pending)
			if err != nil {
				return err
			}

			next := bal
			next.Available = bal.Available.Sub(amount)
			if err := s.profiles.SetBalanceIfMatch(ctx, tx, from, bal, next); err != nil {
				return err
			}
			if err := s.profiles.Credit(ctx, tx, to, out.Distribution.CreatorShare); err != nil {
				return err
			}
			if err := s.transactions.CreateWithTx(ctx, tx, out); err != nil {
				return err
			}
			if err := s.audit.LogWithTx(ctx, tx, from, action, domain.AuditCategoryLedger, map[string]interface{}{
				"transaction_id": out.ID,
				"to_user":        to,
				"amount":         amount.String(),
			}); err != nil {
				return err
			}
			if txType == domain.TxTypeTip {
				note = newNotification(to, domain.NotificationTipReceived, "You received a tip", map[string]interface{}{
					"transaction_id": out.ID,
					"from_user":      from,
					"amount":         out.Distribution.CreatorShare.String(),
				})
				return s.notifications.CreateWithTx(ctx, tx, note)
			}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	s.record(done)
	if note != nil {
		s.notifier.Notify(note)
	}
	logger.WithContext(ctx).Info("payment completed",
		"type", txType, "transaction_id", done.ID, "from", from, "to", to, "amount", amount.String())
	return done, nil
}

// Refund lets the recipient of a payment return what it was credited.
func (s *WalletService) Refund(ctx context.Context, actor, txID, reason string) (*domain.Transaction, error) {
	orig, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if orig.ToUser != actor {
		return nil, economy.Errorf(economy.KindNotFound, "transaction %s not found", txID)
	}

	done, err := withRetry(ctx, s.retry, "refund", func() (*domain.Transaction, error) {
		var out *domain.Transaction
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			exists, err := s.transactions.RefundExists(ctx, tx, orig.ID)
			if err != nil {
				return err
			}
			if exists {
				return economy.Errorf(economy.KindInvalidTransition, "transaction %s already refunded", orig.ID)
			}
			pending, err := s.builder.Refund(orig, reason)
			if err != nil {
				return err
			}
			bal, err := s.profiles.BalanceTx(ctx, tx, actor)
			if err != nil {
				return err
			}
			if err := ledger.Validate(pending, bal); err != nil {
				return err
			}
			out, err = s.builder.Finalize(pending)
			if err != nil {
				return err
			}

			next := bal
			next.Available = bal.Available.Sub(out.Amount)
			if err := s.profiles.SetBalanceIfMatch(ctx, tx, actor, bal, next); err != nil {
				return err
			}
			if err := s.profiles.Credit(ctx, tx, out.ToUser, out.Amount); err != nil {
				return err
			}
			if err := s.transactions.CreateWithTx(ctx, tx, out); err != nil {
				return err
			}
			return s.audit.LogWithTx(ctx, tx, actor, domain.AuditActionRefund, domain.AuditCategoryLedger, map[string]interface{}{
				"transaction_id": out.ID,
				"refunds":        orig.ID,
				"amount":         out.Amount.String(),
			})
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.record(done)
	return done, nil
}

func (s *WalletService) record(tx *domain.Transaction) {
	recordTx(s.totals, tx)
}

// recordTx feeds a committed transaction into the aggregate and metrics.
func recordTx(totals *ledger.Totals, tx *domain.Transaction) {
	if err := totals.Record(tx); err != nil {
		logger.Error("failed to record ledger totals", "transaction_id", tx.ID, "error", err)
		return
	}
	TransactionsTotal.WithLabelValues(string(tx.Type)).Inc()
	if ledger.PassThrough(tx.Type) {
		return
	}
	DistributedTotal.WithLabelValues("creator").Add(tx.Distribution.CreatorShare.InexactFloat64())
	DistributedTotal.WithLabelValues("resilience").Add(tx.Distribution.ResilienceShare.InexactFloat64())
	DistributedTotal.WithLabelValues("kernel").Add(tx.Distribution.KernelShare.InexactFloat64())
}

// settleWithTx books a payment inside a caller-owned transaction. The payer
// is not debited here; callers that hold the funds elsewhere (auction
// escrow) move them themselves.
func (s *WalletService) settleWithTx(ctx context.Context, tx pgx.Tx, txType domain.TransactionType, from, to string, amount decimal.Decimal, desc string, refID *string) (*domain.Transaction, error) {
	pending, err := s.builder.Create(txType, amount, from, to, desc, refID)
	if err != nil {
		return nil, err
	}
	if pending.FromUser == pending.ToUser {
		return nil, economy.ErrSelfTransferNotAllowed
	}
	done, err := s.builder.Finalize(pending)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Credit(ctx, tx, to, done.Distribution.CreatorShare); err != nil {
		return nil, err
	}
	if err := s.transactions.CreateWithTx(ctx, tx, done); err != nil {
		return nil, err
	}
	return done, nil
}

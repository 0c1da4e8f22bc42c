package ledger

import (
	"sync"
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Builder constructs and finalizes transactions. It holds no ledger state;
// see Totals for the running aggregate.
type Builder struct {
	dist  *economy.Distributor
	now   func() time.Time
	newID func() string
}

// NewBuilder returns a builder using dist for splits. A nil dist uses the
// platform defaults.
func NewBuilder(dist *economy.Distributor) *Builder {
	if dist == nil {
		dist = economy.DefaultDistributor()
	}
	return &Builder{
		dist:  dist,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SetNowFunc overrides the clock for deterministic tests.
func (b *Builder) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	b.now = now
}

// SetIDFunc overrides id generation.
func (b *Builder) SetIDFunc(newID func() string) {
	if newID == nil {
		newID = uuid.NewString
	}
	b.newID = newID
}

// ScheduleFor maps a transaction type to its revenue schedule.
func ScheduleFor(t domain.TransactionType) economy.Schedule {
	if t == domain.TxTypeStaking {
		return economy.ScheduleStaking
	}
	return economy.ScheduleLedger
}

// PassThrough reports whether t moves value without a platform split.
// Refunds and achievement rewards credit the full amount to the recipient.
func PassThrough(t domain.TransactionType) bool {
	return t == domain.TxTypeRefund || t == domain.TxTypeReward
}

// Create builds a pending transaction with its distribution computed.
func (b *Builder) Create(txType domain.TransactionType, amount decimal.Decimal, from, to, desc string, refID *string) (*domain.Transaction, error) {
	if !txType.Valid() {
		return nil, economy.Errorf(economy.KindInvalidTransition, "unknown transaction type %q", txType)
	}
	var dist economy.Distribution
	if PassThrough(txType) {
		if !amount.IsPositive() {
			return nil, economy.Errorf(economy.KindInvalidAmount, "amount must be positive, got %s", amount)
		}
		dist = economy.Distribution{CreatorShare: amount, ResilienceShare: decimal.Zero, KernelShare: decimal.Zero}
	} else {
		var err error
		if dist, err = b.dist.Distribute(amount, ScheduleFor(txType)); err != nil {
			return nil, err
		}
	}
	return &domain.Transaction{
		ID:           b.newID(),
		Type:         txType,
		Status:       domain.TxStatusPending,
		Amount:       amount,
		FromUser:     from,
		ToUser:       to,
		Description:  desc,
		ReferenceID:  refID,
		Distribution: dist,
		Timestamp:    b.now(),
	}, nil
}

// Refund builds the compensating transaction for a completed payment. The
// recipient returns what it was credited, so platform shares stay booked.
func (b *Builder) Refund(orig *domain.Transaction, desc string) (*domain.Transaction, error) {
	if orig.Status != domain.TxStatusCompleted {
		return nil, economy.Errorf(economy.KindInvalidTransition, "cannot refund %s transaction", orig.Status)
	}
	if PassThrough(orig.Type) || orig.Type == domain.TxTypeStaking {
		return nil, economy.Errorf(economy.KindInvalidTransition, "%s transactions are not refundable", orig.Type)
	}
	refID := orig.ID
	return b.Create(domain.TxTypeRefund, orig.Distribution.CreatorShare, orig.ToUser, orig.FromUser, desc, &refID)
}

// Finalize returns a completed copy of a pending transaction with its block
// hash attached. The input is not modified.
func (b *Builder) Finalize(tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.Status != domain.TxStatusPending {
		return nil, economy.Errorf(economy.KindInvalidTransition, "cannot finalize %s transaction", tx.Status)
	}
	out := *tx
	out.Status = domain.TxStatusCompleted
	out.BlockHash = BlockHash(tx.ID, tx.Amount, tx.Timestamp.UnixMilli())
	return &out, nil
}

// Fail marks a pending transaction failed.
func Fail(tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.Status != domain.TxStatusPending {
		return nil, economy.Errorf(economy.KindInvalidTransition, "cannot fail %s transaction", tx.Status)
	}
	out := *tx
	out.Status = domain.TxStatusFailed
	return &out, nil
}

// Reverse marks a completed transaction reversed. Totals are not touched;
// the compensating refund is a separate transaction.
func Reverse(tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.Status != domain.TxStatusCompleted {
		return nil, economy.Errorf(economy.KindInvalidTransition, "cannot reverse %s transaction", tx.Status)
	}
	out := *tx
	out.Status = domain.TxStatusReversed
	return &out, nil
}

// Validate checks a transaction against the sender's balance.
func Validate(tx *domain.Transaction, balance domain.Balance) error {
	if !tx.Amount.IsPositive() {
		return economy.Errorf(economy.KindInvalidAmount, "amount must be positive")
	}
	if tx.Amount.GreaterThan(balance.Available) {
		return economy.Errorf(economy.KindInsufficientBalance, "need %s, available %s", tx.Amount, balance.Available)
	}
	if tx.FromUser == tx.ToUser {
		return economy.ErrSelfTransferNotAllowed
	}
	return nil
}

// Totals accumulates distributed amounts. It only ever grows.
type Totals struct {
	mu     sync.RWMutex
	totals domain.LedgerTotals
	count  int64
}

// NewTotals starts from a persisted snapshot.
func NewTotals(start domain.LedgerTotals) *Totals {
	return &Totals{totals: start}
}

// Record adds a completed transaction's distribution. Pass-through
// transactions are not revenue and are skipped.
func (t *Totals) Record(tx *domain.Transaction) error {
	if tx.Status != domain.TxStatusCompleted {
		return economy.Errorf(economy.KindInvalidTransition, "only completed transactions are recorded, got %s", tx.Status)
	}
	if PassThrough(tx.Type) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals.ToCreators = t.totals.ToCreators.Add(tx.Distribution.CreatorShare)
	t.totals.ToResilience = t.totals.ToResilience.Add(tx.Distribution.ResilienceShare)
	t.totals.ToKernel = t.totals.ToKernel.Add(tx.Distribution.KernelShare)
	t.count++
	return nil
}

// Snapshot returns the current totals.
func (t *Totals) Snapshot() domain.LedgerTotals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totals
}

// Count returns the number of recorded transactions.
func (t *Totals) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

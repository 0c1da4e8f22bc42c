package service

import (
	"context"
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/governance"
	"tamv/internal/logger"
	"tamv/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Defaults for proposals created without explicit rules.
var (
	DefaultQuorum    = decimal.NewFromInt(10)
	DefaultThreshold = decimal.NewFromInt(50)
)

// GovernanceService stores proposals and ballots
type GovernanceService struct {
	db            *pgxpool.Pool
	engine        *governance.Engine
	proposals     *repository.GovernanceRepository
	profiles      *repository.ProfileRepository
	notifications *repository.NotificationRepository
	audit         *AuditService
	notifier      Notifier
	retry         RetryPolicy
}

func NewGovernanceService(db *pgxpool.Pool, engine *governance.Engine, audit *AuditService, notifier Notifier) *GovernanceService {
	return &GovernanceService{
		db:            db,
		engine:        engine,
		proposals:     repository.NewGovernanceRepository(db),
		profiles:      repository.NewProfileRepository(db),
		notifications: repository.NewNotificationRepository(db),
		audit:         audit,
		notifier:      orNoop(notifier),
		retry:         DefaultRetry,
	}
}

// NewProposal is the input for a community proposal.
type NewProposal struct {
	Title            string              `json:"title" binding:"required"`
	Summary          string              `json:"summary"`
	Type             domain.ProposalType `json:"type" binding:"required"`
	QuorumRequired   *decimal.Decimal    `json:"quorum_required"`
	PassingThreshold *decimal.Decimal    `json:"passing_threshold"`
	DiscussionHours  int                 `json:"discussion_hours"`
	VotingHours      int                 `json:"voting_hours" binding:"required"`
}

// limits returns the quorum and passing threshold. Only a missing value
// takes the default; an explicit 0 is kept.
func (r NewProposal) limits() (quorum, threshold decimal.Decimal, err error) {
	quorum, threshold = DefaultQuorum, DefaultThreshold
	if r.QuorumRequired != nil {
		quorum = *r.QuorumRequired
	}
	if r.PassingThreshold != nil {
		threshold = *r.PassingThreshold
	}
	hundred := decimal.NewFromInt(100)
	if quorum.IsNegative() || quorum.GreaterThan(hundred) || threshold.IsNegative() || threshold.GreaterThan(hundred) {
		return decimal.Zero, decimal.Zero, economy.Errorf(economy.KindInvalidAmount, "quorum and threshold are percentages")
	}
	return quorum, threshold, nil
}

// Power returns a user's current voting power.
func (s *GovernanceService) Power(ctx context.Context, userID string) (decimal.Decimal, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := s.profiles.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.engine.VotingPower(bal.Staked, p.Reputation, p.Role, p.DelegatedPower), nil
}

// TotalPower sums the voting power of every eligible profile.
func (s *GovernanceService) TotalPower(ctx context.Context) (decimal.Decimal, error) {
	bases, err := s.profiles.VotingBases(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range bases {
		total = total.Add(s.engine.VotingPower(b.Stake, b.Reputation, b.Role, b.Delegated))
	}
	return total, nil
}

// Create opens a proposal for discussion. The power snapshot taken here is
// the quorum denominator for the proposal's whole life.
func (s *GovernanceService) Create(ctx context.Context, proposerID string, req NewProposal) (*domain.Proposal, error) {
	switch req.Type {
	case domain.ProposalTypeParameter, domain.ProposalTypeTreasury, domain.ProposalTypeFeature, domain.ProposalTypeCommunity:
	default:
		return nil, economy.Errorf(economy.KindInvalidTransition, "unknown proposal type %q", req.Type)
	}
	if req.VotingHours <= 0 || req.DiscussionHours < 0 {
		return nil, economy.Errorf(economy.KindInvalidAmount, "voting window must be positive")
	}
	quorum, threshold, err := req.limits()
	if err != nil {
		return nil, err
	}

	total, err := s.TotalPower(ctx)
	if err != nil {
		return nil, err
	}
	at := now()
	discussionEnd := at.Add(time.Duration(req.DiscussionHours) * time.Hour)
	p := &domain.Proposal{
		ID:               uuid.NewString(),
		ProposerID:       proposerID,
		Title:            req.Title,
		Summary:          req.Summary,
		Type:             req.Type,
		Status:           domain.ProposalDiscussion,
		QuorumRequired:   quorum,
		PassingThreshold: threshold,
		TotalVotingPower: total,
		DiscussionEndAt:  discussionEnd,
		VotingStartAt:    discussionEnd,
		VotingEndAt:      discussionEnd.Add(time.Duration(req.VotingHours) * time.Hour),
	}
	if err := s.proposals.CreateProposal(ctx, p); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("proposal created", "proposal_id", p.ID, "proposer_id", proposerID, "total_power", total.String())
	return p, nil
}

// Get returns a proposal with its current tally.
func (s *GovernanceService) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	p, err := s.proposals.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	votes, err := s.proposals.ListVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VoteStats = governance.Tally(p, votes)
	return p, nil
}

// CastVote records the voter's ballot weighted by current voting power. A
// repeated vote replaces the earlier ballot.
func (s *GovernanceService) CastVote(ctx context.Context, voterID, proposalID string, choice domain.VoteChoice) (*domain.Proposal, error) {
	out, err := withRetry(ctx, s.retry, "vote", func() (*domain.Proposal, error) {
		var res *domain.Proposal
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			p, err := s.proposals.GetProposalTx(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			votes, err := s.proposals.ListVotesTx(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			profile, err := s.profiles.GetByIDTx(ctx, tx, voterID)
			if err != nil {
				return err
			}
			bal, err := s.profiles.BalanceTx(ctx, tx, voterID)
			if err != nil {
				return err
			}
			power := s.engine.VotingPower(bal.Staked, profile.Reputation, profile.Role, profile.DelegatedPower)

			updated, err := governance.CastVote(p, votes, domain.Vote{
				VoterID:     voterID,
				Choice:      choice,
				VotingPower: power,
			}, now())
			if err != nil {
				return err
			}
			ballot := updated[len(updated)-1]
			if err := s.proposals.UpsertVoteWithTx(ctx, tx, &ballot); err != nil {
				return err
			}
			p.VoteStats = governance.Tally(p, updated)
			res = p
			return s.audit.LogWithTx(ctx, tx, voterID, domain.AuditActionVote, domain.AuditCategoryGovernance, map[string]interface{}{
				"proposal_id":  proposalID,
				"choice":       string(choice),
				"voting_power": power.String(),
			})
		})
		return res, err
	})
	if err != nil {
		return nil, err
	}
	VotesTotal.Inc()
	logger.WithContext(ctx).Info("vote cast", "proposal_id", proposalID, "voter_id", voterID, "choice", choice)
	return out, nil
}

// Advance applies a due timed transition. Closing a vote notifies the
// proposer of the outcome.
func (s *GovernanceService) Advance(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	var note *domain.Notification
	out, err := withRetry(ctx, s.retry, "advance_proposal", func() (*domain.Proposal, error) {
		note = nil
		var res *domain.Proposal
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			p, err := s.proposals.GetProposalTx(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			votes, err := s.proposals.ListVotesTx(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			next, changed, err := governance.Advance(p, votes, now())
			if err != nil {
				return err
			}
			next.VoteStats = governance.Tally(next, votes)
			res = next
			if !changed {
				return nil
			}
			if err := s.proposals.UpdateStatusIfUnchanged(ctx, tx, p, next); err != nil {
				return err
			}
			if err := s.audit.LogWithTx(ctx, tx, p.ProposerID, domain.AuditActionAdvance, domain.AuditCategoryGovernance, map[string]interface{}{
				"proposal_id": p.ID,
				"from":        string(p.Status),
				"to":          string(next.Status),
			}); err != nil {
				return err
			}
			if next.Status != domain.ProposalPassed && next.Status != domain.ProposalRejected {
				return nil
			}
			note = newNotification(p.ProposerID, domain.NotificationProposalClosed, "Voting closed: "+string(next.Status), map[string]interface{}{
				"proposal_id":        p.ID,
				"status":             string(next.Status),
				"current_percentage": next.VoteStats.CurrentPercentage.String(),
				"quorum_reached":     next.VoteStats.QuorumReached,
			})
			return s.notifications.CreateWithTx(ctx, tx, note)
		})
		return res, err
	})
	if err != nil {
		return nil, err
	}
	if note != nil {
		s.notifier.Notify(note)
	}
	return out, nil
}

// Cancel withdraws a proposal before voting. Only the proposer can.
func (s *GovernanceService) Cancel(ctx context.Context, actor, proposalID string) (*domain.Proposal, error) {
	return s.transition(ctx, actor, proposalID, "cancel_proposal", func(p *domain.Proposal, at time.Time) (*domain.Proposal, error) {
		return governance.Cancel(p, at)
	})
}

// Execute marks a passed proposal as carried out. Only the proposer can.
func (s *GovernanceService) Execute(ctx context.Context, actor, proposalID string) (*domain.Proposal, error) {
	return s.transition(ctx, actor, proposalID, "execute_proposal", func(p *domain.Proposal, at time.Time) (*domain.Proposal, error) {
		return governance.Transition(p, domain.ProposalExecuted, at)
	})
}

func (s *GovernanceService) transition(ctx context.Context, actor, proposalID, op string, apply func(*domain.Proposal, time.Time) (*domain.Proposal, error)) (*domain.Proposal, error) {
	return withRetry(ctx, s.retry, op, func() (*domain.Proposal, error) {
		var res *domain.Proposal
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			p, err := s.proposals.GetProposalTx(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			if p.ProposerID != actor {
				return economy.Errorf(economy.KindNotFound, "proposal %s not found", proposalID)
			}
			if res, err = apply(p, now()); err != nil {
				return err
			}
			if err := s.proposals.UpdateStatusIfUnchanged(ctx, tx, p, res); err != nil {
				return err
			}
			return s.audit.LogWithTx(ctx, tx, actor, domain.AuditActionAdvance, domain.AuditCategoryGovernance, map[string]interface{}{
				"proposal_id": p.ID,
				"from":        string(p.Status),
				"to":          string(res.Status),
			})
		})
		return res, err
	})
}

// AdvanceDue moves every proposal whose window has ended. Used by the
// background poller.
func (s *GovernanceService) AdvanceDue(ctx context.Context) error {
	due, err := s.proposals.DueForAdvance(ctx, now(), 100)
	if err != nil {
		return err
	}
	for _, p := range due {
		if _, err := s.Advance(ctx, p.ID); err != nil {
			logger.Warn("proposal advance failed", "proposal_id", p.ID, "error", err)
		}
	}
	return nil
}

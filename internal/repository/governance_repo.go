package repository

import (
	"context"
	"time"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GovernanceRepository struct {
	db *pgxpool.Pool
}

func NewGovernanceRepository(db *pgxpool.Pool) *GovernanceRepository {
	return &GovernanceRepository{db: db}
}

const proposalColumns = `id, proposer_id, title, summary, type, status, quorum_required, passing_threshold,
		total_voting_power, discussion_end_at, voting_start_at, voting_end_at, executed_at, created_at`

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var (
		p           domain.Proposal
		votingStart *time.Time
	)
	err := row.Scan(&p.ID, &p.ProposerID, &p.Title, &p.Summary, &p.Type, &p.Status, &p.QuorumRequired, &p.PassingThreshold,
		&p.TotalVotingPower, &p.DiscussionEndAt, &votingStart, &p.VotingEndAt, &p.ExecutedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if votingStart != nil {
		p.VotingStartAt = *votingStart
	}
	return &p, nil
}

// CreateProposal inserts a proposal.
func (r *GovernanceRepository) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	return classify("create proposal", r.db.QueryRow(ctx,
		`INSERT INTO proposals (id, proposer_id, title, summary, type, status, quorum_required, passing_threshold,
		        total_voting_power, discussion_end_at, voting_start_at, voting_end_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		p.ID, p.ProposerID, p.Title, p.Summary, p.Type, p.Status, p.QuorumRequired, p.PassingThreshold,
		p.TotalVotingPower, p.DiscussionEndAt, nullTime(p.VotingStartAt), p.VotingEndAt,
	).Scan(&p.CreatedAt))
}

// GetProposal returns a proposal without its tally.
func (r *GovernanceRepository) GetProposal(ctx context.Context, id string) (*domain.Proposal, error) {
	return getProposal(ctx, r.db, id)
}

// GetProposalTx reads a proposal inside tx.
func (r *GovernanceRepository) GetProposalTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Proposal, error) {
	return getProposal(ctx, tx, id)
}

func getProposal(ctx context.Context, q Querier, id string) (*domain.Proposal, error) {
	p, err := scanProposal(q.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get proposal", err)
	}
	return p, nil
}

// UpdateStatusIfUnchanged moves a proposal from prev.Status to next.Status.
func (r *GovernanceRepository) UpdateStatusIfUnchanged(ctx context.Context, tx pgx.Tx, prev, next *domain.Proposal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE proposals
		 SET status = $2, voting_start_at = $3, executed_at = $4
		 WHERE id = $1 AND status = $5`,
		next.ID, next.Status, nullTime(next.VotingStartAt), next.ExecutedAt, prev.Status,
	)
	return expectOne("update proposal", tag, err)
}

// DueForAdvance returns proposals whose discussion or voting window ended.
func (r *GovernanceRepository) DueForAdvance(ctx context.Context, now time.Time, limit int) ([]*domain.Proposal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+proposalColumns+`
		 FROM proposals
		 WHERE (status = $1 AND discussion_end_at <= $3)
		    OR (status = $2 AND voting_end_at <= $3)
		 LIMIT $4`,
		domain.ProposalDiscussion, domain.ProposalVoting, now, limit)
	if err != nil {
		return nil, classify("due proposals", err)
	}
	defer rows.Close()

	var result []*domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, classify("scan proposal", err)
		}
		result = append(result, p)
	}
	return result, classify("due proposals", rows.Err())
}

// ListVotes returns every ballot of a proposal.
func (r *GovernanceRepository) ListVotes(ctx context.Context, proposalID string) ([]domain.Vote, error) {
	return listVotes(ctx, r.db, proposalID)
}

// ListVotesTx reads ballots inside tx.
func (r *GovernanceRepository) ListVotesTx(ctx context.Context, tx pgx.Tx, proposalID string) ([]domain.Vote, error) {
	return listVotes(ctx, tx, proposalID)
}

func listVotes(ctx context.Context, q Querier, proposalID string) ([]domain.Vote, error) {
	rows, err := q.Query(ctx,
		`SELECT proposal_id, voter_id, choice, voting_power, created_at
		 FROM votes
		 WHERE proposal_id = $1
		 ORDER BY created_at`, proposalID)
	if err != nil {
		return nil, classify("list votes", err)
	}
	defer rows.Close()

	var result []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ProposalID, &v.VoterID, &v.Choice, &v.VotingPower, &v.Timestamp); err != nil {
			return nil, classify("scan vote", err)
		}
		result = append(result, v)
	}
	return result, classify("list votes", rows.Err())
}

// UpsertVoteWithTx stores a ballot; a re-vote replaces the voter's row.
func (r *GovernanceRepository) UpsertVoteWithTx(ctx context.Context, tx pgx.Tx, v *domain.Vote) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO votes (proposal_id, voter_id, choice, voting_power, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (proposal_id, voter_id)
		 DO UPDATE SET choice = EXCLUDED.choice, voting_power = EXCLUDED.voting_power, created_at = EXCLUDED.created_at`,
		v.ProposalID, v.VoterID, v.Choice, v.VotingPower, v.Timestamp,
	)
	return classify("upsert vote", err)
}

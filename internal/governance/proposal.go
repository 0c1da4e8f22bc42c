package governance

import (
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"
)

var transitions = map[domain.ProposalStatus][]domain.ProposalStatus{
	domain.ProposalDraft:      {domain.ProposalDiscussion, domain.ProposalCancelled},
	domain.ProposalDiscussion: {domain.ProposalVoting, domain.ProposalCancelled},
	domain.ProposalVoting:     {domain.ProposalPassed, domain.ProposalRejected},
	domain.ProposalPassed:     {domain.ProposalExecuted},
}

// CanTransition reports whether a proposal may move from one status to another.
func CanTransition(from, to domain.ProposalStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of p moved to status to.
func Transition(p *domain.Proposal, to domain.ProposalStatus, now time.Time) (*domain.Proposal, error) {
	if !CanTransition(p.Status, to) {
		return nil, economy.Errorf(economy.KindInvalidTransition, "proposal %s cannot move from %s to %s", p.ID, p.Status, to)
	}
	next := *p
	next.Status = to
	switch to {
	case domain.ProposalVoting:
		if next.VotingStartAt.IsZero() || next.VotingStartAt.After(now) {
			next.VotingStartAt = now
		}
	case domain.ProposalExecuted:
		at := now
		next.ExecutedAt = &at
	}
	return &next, nil
}

// VotingOpen reports whether ballots are accepted at now.
func VotingOpen(p *domain.Proposal, now time.Time) bool {
	if p.Status != domain.ProposalVoting {
		return false
	}
	if !p.VotingStartAt.IsZero() && now.Before(p.VotingStartAt) {
		return false
	}
	return now.Before(p.VotingEndAt)
}

// CastVote records or updates a ballot. A later ballot from the same voter
// replaces the earlier one. The returned slice is a fresh copy.
func CastVote(p *domain.Proposal, votes []domain.Vote, ballot domain.Vote, now time.Time) ([]domain.Vote, error) {
	if !VotingOpen(p, now) {
		return nil, economy.Errorf(economy.KindVotingClosed, "proposal %s is not accepting votes", p.ID)
	}
	if !ballot.Choice.Valid() {
		return nil, economy.Errorf(economy.KindInvalidAmount, "unknown vote choice %q", ballot.Choice)
	}
	if !ballot.VotingPower.IsPositive() {
		return nil, economy.Errorf(economy.KindInvalidAmount, "voting power must be positive")
	}
	ballot.ProposalID = p.ID
	ballot.Timestamp = now

	out := make([]domain.Vote, 0, len(votes)+1)
	for _, v := range votes {
		if v.VoterID == ballot.VoterID {
			continue
		}
		out = append(out, v)
	}
	return append(out, ballot), nil
}

// Tally recomputes p's stats from votes.
func Tally(p *domain.Proposal, votes []domain.Vote) domain.VoteStats {
	return CalculateVoteStats(votes, p.TotalVotingPower, p.QuorumRequired)
}

// Advance moves p along its timeline: discussion opens voting once
// DiscussionEndAt passes, voting closes as passed or rejected once
// VotingEndAt passes. The bool reports whether anything changed.
func Advance(p *domain.Proposal, votes []domain.Vote, now time.Time) (*domain.Proposal, bool, error) {
	switch p.Status {
	case domain.ProposalDiscussion:
		if now.Before(p.DiscussionEndAt) {
			return p, false, nil
		}
		next, err := Transition(p, domain.ProposalVoting, now)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	case domain.ProposalVoting:
		if now.Before(p.VotingEndAt) {
			return p, false, nil
		}
		stats := Tally(p, votes)
		to := domain.ProposalRejected
		if HasPassed(stats, p.PassingThreshold) {
			to = domain.ProposalPassed
		}
		next, err := Transition(p, to, now)
		if err != nil {
			return nil, false, err
		}
		next.VoteStats = stats
		return next, true, nil
	}
	return p, false, nil
}

// Cancel withdraws a proposal that has not reached voting.
func Cancel(p *domain.Proposal, now time.Time) (*domain.Proposal, error) {
	return Transition(p, domain.ProposalCancelled, now)
}

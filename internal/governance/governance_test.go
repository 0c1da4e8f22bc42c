package governance

import (
	"testing"
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVotingPower(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)

	cases := []struct {
		name      string
		base      string
		rep       int64
		role      domain.Role
		delegated string
		want      string
	}{
		{"delegate", "1000", 100, domain.RoleDelegate, "0", "3000"},
		{"guardian no rep", "100", 0, domain.RoleGuardian, "0", "300"},
		{"citizen floors", "10", 2, domain.RoleCitizen, "0", "11"},
		{"delegated adds", "50", 0, domain.RoleSovereign, "50", "500"},
		{"unknown role", "10", 0, domain.Role("stranger"), "0", "10"},
		{"negative rep", "10", -5, domain.RoleCitizen, "0", "10"},
		{"nothing staked", "0", 400, domain.RoleSovereign, "0", "0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := e.VotingPower(d(c.base), c.rep, c.role, d(c.delegated))
			require.True(t, got.Equal(d(c.want)), "got %s want %s", got, c.want)
		})
	}
}

func TestVotingPowerCustomMultipliers(t *testing.T) {
	e, err := NewEngine(map[domain.Role]decimal.Decimal{domain.RoleCitizen: d("2")})
	require.NoError(t, err)
	require.True(t, e.VotingPower(d("10"), 0, domain.RoleCitizen, decimal.Zero).Equal(d("20")))
	require.True(t, e.Multiplier(domain.RoleGuardian).Equal(d("3")))

	_, err = NewEngine(map[domain.Role]decimal.Decimal{domain.RoleCitizen: decimal.Zero})
	require.Error(t, err)
}

func TestQuorum(t *testing.T) {
	require.True(t, QuorumReached(d("1000"), d("100"), d("10")))
	require.False(t, QuorumReached(d("1000"), d("99.99"), d("10")))
	require.False(t, QuorumReached(decimal.Zero, d("100"), d("10")))
	require.False(t, QuorumReached(d("1000"), decimal.Zero, decimal.Zero))
}

func TestHasPassed(t *testing.T) {
	stats := domain.VoteStats{QuorumReached: true, YesPower: d("60"), NoPower: d("40"), AbstainPower: d("500")}
	require.True(t, HasPassed(stats, d("60")))
	require.False(t, HasPassed(stats, d("60.01")))

	stats.QuorumReached = false
	require.False(t, HasPassed(stats, d("0")))

	onlyAbstain := domain.VoteStats{QuorumReached: true, YesPower: decimal.Zero, NoPower: decimal.Zero, AbstainPower: d("10")}
	require.False(t, HasPassed(onlyAbstain, decimal.Zero))
}

func TestCalculateVoteStatsLatestBallotWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	votes := []domain.Vote{
		{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("100"), Timestamp: t0},
		{VoterID: "b", Choice: domain.VoteNo, VotingPower: d("50"), Timestamp: t0},
		{VoterID: "c", Choice: domain.VoteAbstain, VotingPower: d("25"), Timestamp: t0},
		{VoterID: "a", Choice: domain.VoteNo, VotingPower: d("100"), Timestamp: t0.Add(time.Minute)},
	}
	stats := CalculateVoteStats(votes, d("1000"), d("10"))
	require.Equal(t, 0, stats.YesCount)
	require.Equal(t, 2, stats.NoCount)
	require.Equal(t, 1, stats.AbstainCount)
	require.True(t, stats.NoPower.Equal(d("150")))
	require.True(t, stats.CastPower.Equal(d("175")))
	require.True(t, stats.QuorumReached)
	require.True(t, stats.CurrentPercentage.IsZero())

	// order of arrival does not change the result
	reordered := []domain.Vote{votes[3], votes[2], votes[1], votes[0]}
	again := CalculateVoteStats(reordered, d("1000"), d("10"))
	require.Equal(t, stats.NoCount, again.NoCount)
	require.True(t, stats.CastPower.Equal(again.CastPower))
}

func TestCalculateVoteStatsPercentage(t *testing.T) {
	votes := []domain.Vote{
		{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("2")},
		{VoterID: "b", Choice: domain.VoteNo, VotingPower: d("1")},
	}
	stats := CalculateVoteStats(votes, d("3"), d("50"))
	require.True(t, stats.CurrentPercentage.Equal(d("66.67")), stats.CurrentPercentage.String())

	empty := CalculateVoteStats(nil, d("100"), decimal.Zero)
	require.False(t, empty.QuorumReached)
	require.False(t, HasPassed(empty, decimal.Zero))
}

func votingProposal(t0 time.Time) *domain.Proposal {
	return &domain.Proposal{
		ID:               "p1",
		Status:           domain.ProposalVoting,
		QuorumRequired:   d("10"),
		PassingThreshold: d("50"),
		TotalVotingPower: d("1000"),
		VotingStartAt:    t0,
		VotingEndAt:      t0.Add(72 * time.Hour),
	}
}

func TestCastVoteOverwrites(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := votingProposal(t0)

	votes, err := CastVote(p, nil, domain.Vote{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("100")}, t0.Add(time.Hour))
	require.NoError(t, err)
	votes, err = CastVote(p, votes, domain.Vote{VoterID: "b", Choice: domain.VoteYes, VotingPower: d("30")}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	votes, err = CastVote(p, votes, domain.Vote{VoterID: "a", Choice: domain.VoteNo, VotingPower: d("100")}, t0.Add(3*time.Hour))
	require.NoError(t, err)

	require.Len(t, votes, 2)
	stats := Tally(p, votes)
	require.Equal(t, 1, stats.YesCount)
	require.Equal(t, 1, stats.NoCount)
	require.Equal(t, "p1", votes[1].ProposalID)
}

func TestCastVoteRejected(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := votingProposal(t0)
	ballot := domain.Vote{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("1")}

	_, err := CastVote(p, nil, ballot, p.VotingEndAt)
	require.ErrorIs(t, err, economy.ErrVotingClosed)

	_, err = CastVote(p, nil, ballot, t0.Add(-time.Second))
	require.ErrorIs(t, err, economy.ErrVotingClosed)

	discussion := *p
	discussion.Status = domain.ProposalDiscussion
	_, err = CastVote(&discussion, nil, ballot, t0.Add(time.Hour))
	require.ErrorIs(t, err, economy.ErrVotingClosed)

	bad := ballot
	bad.Choice = "maybe"
	_, err = CastVote(p, nil, bad, t0.Add(time.Hour))
	require.ErrorIs(t, err, economy.ErrInvalidAmount)

	powerless := ballot
	powerless.VotingPower = decimal.Zero
	_, err = CastVote(p, nil, powerless, t0.Add(time.Hour))
	require.ErrorIs(t, err, economy.ErrInvalidAmount)
}

func TestAdvanceLifecycle(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &domain.Proposal{
		ID:               "p2",
		Status:           domain.ProposalDiscussion,
		QuorumRequired:   d("10"),
		PassingThreshold: d("50"),
		TotalVotingPower: d("1000"),
		DiscussionEndAt:  t0.Add(24 * time.Hour),
		VotingEndAt:      t0.Add(96 * time.Hour),
	}

	same, changed, err := Advance(p, nil, t0)
	require.NoError(t, err)
	require.False(t, changed)
	require.Same(t, p, same)

	voting, changed, err := Advance(p, nil, p.DiscussionEndAt)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, domain.ProposalVoting, voting.Status)
	require.Equal(t, p.DiscussionEndAt, voting.VotingStartAt)
	require.Equal(t, domain.ProposalDiscussion, p.Status)

	votes, err := CastVote(voting, nil, domain.Vote{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("200")}, voting.VotingStartAt.Add(time.Hour))
	require.NoError(t, err)

	closed, changed, err := Advance(voting, votes, voting.VotingEndAt)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, domain.ProposalPassed, closed.Status)
	require.True(t, closed.VoteStats.QuorumReached)

	executed, err := Transition(closed, domain.ProposalExecuted, voting.VotingEndAt.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, executed.ExecutedAt)
}

func TestAdvanceRejectsWithoutQuorum(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := votingProposal(t0)
	votes := []domain.Vote{{VoterID: "a", Choice: domain.VoteYes, VotingPower: d("99"), Timestamp: t0}}

	closed, changed, err := Advance(p, votes, p.VotingEndAt)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, domain.ProposalRejected, closed.Status)
}

func TestTransitions(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	draft := &domain.Proposal{ID: "p3", Status: domain.ProposalDraft}

	cancelled, err := Cancel(draft, t0)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalCancelled, cancelled.Status)

	_, err = Cancel(votingProposal(t0), t0)
	require.ErrorIs(t, err, economy.ErrInvalidTransition)

	_, err = Transition(draft, domain.ProposalPassed, t0)
	require.ErrorIs(t, err, economy.ErrInvalidTransition)

	require.True(t, CanTransition(domain.ProposalPassed, domain.ProposalExecuted))
	require.False(t, CanTransition(domain.ProposalRejected, domain.ProposalExecuted))
}

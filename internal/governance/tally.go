package governance

import (
	"tamv/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// QuorumReached reports whether castPower is at least quorumPct percent of
// totalPower. Nothing cast never reaches quorum.
func QuorumReached(totalPower, castPower, quorumPct decimal.Decimal) bool {
	if !totalPower.IsPositive() || !castPower.IsPositive() {
		return false
	}
	return castPower.Mul(hundred).GreaterThanOrEqual(quorumPct.Mul(totalPower))
}

// HasPassed requires quorum and a yes share of the deciding (yes+no) power
// of at least threshold percent. Without deciding power a proposal fails.
func HasPassed(stats domain.VoteStats, threshold decimal.Decimal) bool {
	if !stats.QuorumReached {
		return false
	}
	deciding := stats.YesPower.Add(stats.NoPower)
	if !deciding.IsPositive() {
		return false
	}
	return stats.YesPower.Mul(hundred).GreaterThanOrEqual(threshold.Mul(deciding))
}

// CalculateVoteStats recomputes the tally from the full ballot set. Only the
// latest ballot of each voter counts; on equal timestamps the later entry in
// votes wins. The result depends only on the inputs.
func CalculateVoteStats(votes []domain.Vote, totalPower, quorumPct decimal.Decimal) domain.VoteStats {
	latest := make(map[string]int, len(votes))
	for i, v := range votes {
		if j, ok := latest[v.VoterID]; ok && votes[j].Timestamp.After(v.Timestamp) {
			continue
		}
		latest[v.VoterID] = i
	}

	stats := domain.VoteStats{
		YesPower:          decimal.Zero,
		NoPower:           decimal.Zero,
		AbstainPower:      decimal.Zero,
		CastPower:         decimal.Zero,
		TotalPower:        totalPower,
		CurrentPercentage: decimal.Zero,
	}
	for i, v := range votes {
		if latest[v.VoterID] != i {
			continue
		}
		switch v.Choice {
		case domain.VoteYes:
			stats.YesCount++
			stats.YesPower = stats.YesPower.Add(v.VotingPower)
		case domain.VoteNo:
			stats.NoCount++
			stats.NoPower = stats.NoPower.Add(v.VotingPower)
		case domain.VoteAbstain:
			stats.AbstainCount++
			stats.AbstainPower = stats.AbstainPower.Add(v.VotingPower)
		default:
			continue
		}
		stats.CastPower = stats.CastPower.Add(v.VotingPower)
	}

	if deciding := stats.YesPower.Add(stats.NoPower); deciding.IsPositive() {
		stats.CurrentPercentage = stats.YesPower.Mul(hundred).Div(deciding).Round(2)
	}
	stats.QuorumReached = QuorumReached(totalPower, stats.CastPower, quorumPct)
	return stats
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProposalType - тип предложения
type ProposalType string

const (
	ProposalTypeParameter ProposalType = "parameter"
	ProposalTypeTreasury  ProposalType = "treasury"
	ProposalTypeFeature   ProposalType = "feature"
	ProposalTypeCommunity ProposalType = "community"
)

// ProposalStatus walks draft -> discussion -> voting -> passed|rejected ->
// executed, with cancelled reachable before voting.
type ProposalStatus string

const (
	ProposalDraft      ProposalStatus = "draft"
	ProposalDiscussion ProposalStatus = "discussion"
	ProposalVoting     ProposalStatus = "voting"
	ProposalPassed     ProposalStatus = "passed"
	ProposalRejected   ProposalStatus = "rejected"
	ProposalExecuted   ProposalStatus = "executed"
	ProposalCancelled  ProposalStatus = "cancelled"
)

// Proposal is a DAO proposal
type Proposal struct {
	ID               string          `db:"id" json:"id"`
	ProposerID       string          `db:"proposer_id" json:"proposer_id"`
	Title            string          `db:"title" json:"title"`
	Summary          string          `db:"summary" json:"summary"`
	Type             ProposalType    `db:"type" json:"type"`
	Status           ProposalStatus  `db:"status" json:"status"`
	QuorumRequired   decimal.Decimal `db:"quorum_required" json:"quorum_required"`
	PassingThreshold decimal.Decimal `db:"passing_threshold" json:"passing_threshold"`
	TotalVotingPower decimal.Decimal `db:"total_voting_power" json:"total_voting_power"`
	DiscussionEndAt  time.Time       `db:"discussion_end_at" json:"discussion_end_at"`
	VotingStartAt    time.Time       `db:"voting_start_at" json:"voting_start_at"`
	VotingEndAt      time.Time       `db:"voting_end_at" json:"voting_end_at"`
	ExecutedAt       *time.Time      `db:"executed_at" json:"executed_at,omitempty"`
	VoteStats        VoteStats       `db:"-" json:"vote_stats"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// VoteChoice - вариант голоса
type VoteChoice string

const (
	VoteYes     VoteChoice = "yes"
	VoteNo      VoteChoice = "no"
	VoteAbstain VoteChoice = "abstain"
)

// Valid reports whether the choice is supported.
func (c VoteChoice) Valid() bool {
	switch c {
	case VoteYes, VoteNo, VoteAbstain:
		return true
	}
	return false
}

// Vote is one ballot; a later ballot from the same voter replaces it.
type Vote struct {
	ProposalID  string          `db:"proposal_id" json:"proposal_id"`
	VoterID     string          `db:"voter_id" json:"voter_id"`
	Choice      VoteChoice      `db:"choice" json:"choice"`
	VotingPower decimal.Decimal `db:"voting_power" json:"voting_power"`
	Timestamp   time.Time       `db:"created_at" json:"timestamp"`
}

// VoteStats aggregates a proposal's ballots
type VoteStats struct {
	YesCount          int             `json:"yes_count"`
	NoCount           int             `json:"no_count"`
	AbstainCount      int             `json:"abstain_count"`
	YesPower          decimal.Decimal `json:"yes_power"`
	NoPower           decimal.Decimal `json:"no_power"`
	AbstainPower      decimal.Decimal `json:"abstain_power"`
	CastPower         decimal.Decimal `json:"cast_power"`
	TotalPower        decimal.Decimal `json:"total_power"`
	QuorumReached     bool            `json:"quorum_reached"`
	CurrentPercentage decimal.Decimal `json:"current_percentage"`
}

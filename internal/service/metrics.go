package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_transactions_total",
			Help: "Completed ledger transactions by type",
		},
		[]string{"type"},
	)
	DistributedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_distributed_msr_total",
			Help: "MSR distributed by share",
		},
		[]string{"share"},
	)
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_write_retries_total",
			Help: "Retried economy writes by operation and reason",
		},
		[]string{"op", "reason"},
	)
	CompoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staking_compounds_total",
			Help: "Settled staking rewards by trigger",
		},
		[]string{"trigger"},
	)
	BidsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Accepted auction bids",
		},
	)
	VotesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_votes_total",
			Help: "Recorded governance ballots",
		},
	)
)

func init() {
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(DistributedTotal)
	prometheus.MustRegister(RetriesTotal)
	prometheus.MustRegister(CompoundsTotal)
	prometheus.MustRegister(BidsTotal)
	prometheus.MustRegister(VotesTotal)
}

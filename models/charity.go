package models

import (
	"hash/fnv"
	"time"
)

// CharityPoolShards is the number of accumulation rows the pool is spread over
const CharityPoolShards = 16

// CharityPool is the global skim aggregate
type CharityPool struct {
	Total         int64     `json:"total"`
	Contributions int64     `json:"contributions"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CharityStats is the caller-facing view of the pool
type CharityStats struct {
	Total             int64 `json:"total"`
	Contributions     int64 `json:"contributions"`
	SkimBasisPoints   int64 `json:"skim_basis_points"`
	LedgerSkimTotal   int64 `json:"ledger_total"`
	MatchesLedgerSkim bool  `json:"matches_ledger"`
}

// SkimAmount computes floor(|amount| * basisPoints / 10000)
func SkimAmount(amount int64, basisPoints int64) int64 {
	if amount < 0 {
		amount = -amount
	}
	if basisPoints <= 0 {
		return 0
	}
	return amount * basisPoints / 10000
}

// CharityShard picks the accumulation row for an account
func CharityShard(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32() % CharityPoolShards)
}

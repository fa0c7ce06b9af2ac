// Package student defines the student entity and its token buckets.
package student

import (
	"fmt"
	"time"
)

// Starting balances for a newly created student. These are fixed product
// constants and must not drift.
const (
	StartingSpend = 100
	StartingSave  = 40
	StartingGrow  = 50

	// DefaultSaveGoal is used for display when a student has not chosen one.
	DefaultSaveGoal = 200
)

// Bucket identifies one of the three token balances.
type Bucket string

const (
	BucketSpend Bucket = "spend"
	BucketSave  Bucket = "save"
	BucketGrow  Bucket = "grow"
)

// ParseBucket validates a bucket name coming from a caller.
func ParseBucket(raw string) (Bucket, error) {
	switch Bucket(raw) {
	case BucketSpend, BucketSave, BucketGrow:
		return Bucket(raw), nil
	}
	return "", fmt.Errorf("unknown token bucket %q", raw)
}

// HistoryEntry is one weekly balance snapshot, recorded after interest is
// applied. Used only for reporting.
type HistoryEntry struct {
	Week         int `json:"week"`
	SpendBalance int `json:"spendBalance"`
	SaveBalance  int `json:"saveBalance"`
	GrowBalance  int `json:"growBalance"`
}

// Student is a classroom participant with three independent token balances.
// All balances are non-negative integers at all times; they are mutated only
// through ledger operations.
type Student struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	PIN              string         `json:"-"`
	SpendTokens      int            `json:"spendTokens"`
	SaveTokens       int            `json:"saveTokens"`
	GrowTokens       int            `json:"growTokens"`
	AssignedMissions []string       `json:"assignedMissions"`
	PurchasedRewards []string       `json:"purchasedRewards"`
	SaveGoal         int            `json:"saveGoal,omitempty"`
	History          []HistoryEntry `json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Balance returns the balance of the given bucket.
func (s Student) Balance(b Bucket) int {
	switch b {
	case BucketSpend:
		return s.SpendTokens
	case BucketSave:
		return s.SaveTokens
	case BucketGrow:
		return s.GrowTokens
	}
	return 0
}

// SetBalance overwrites the balance of the given bucket.
func (s *Student) SetBalance(b Bucket, amount int) {
	switch b {
	case BucketSpend:
		s.SpendTokens = amount
	case BucketSave:
		s.SaveTokens = amount
	case BucketGrow:
		s.GrowTokens = amount
	}
}

// TotalTokens sums all three buckets.
func (s Student) TotalTokens() int {
	return s.SpendTokens + s.SaveTokens + s.GrowTokens
}

// HasMission reports whether the mission id is in the assigned set.
func (s Student) HasMission(missionID string) bool {
	for _, id := range s.AssignedMissions {
		if id == missionID {
			return true
		}
	}
	return false
}

// HasReward reports whether the reward id is in the purchased set.
func (s Student) HasReward(rewardID string) bool {
	for _, id := range s.PurchasedRewards {
		if id == rewardID {
			return true
		}
	}
	return false
}

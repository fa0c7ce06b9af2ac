// Package storage declares the persistence interfaces the application is
// written against. The ledger owns all four entity collections; stores only
// persist what the services hand them.
package storage

import (
	"context"
	"errors"

	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
)

// ErrNotFound is wrapped by store implementations when a record does not
// exist, so callers can translate lookups uniformly.
var ErrNotFound = errors.New("not found")

// StudentStore persists student records. Students are never deleted.
type StudentStore interface {
	CreateStudent(ctx context.Context, s student.Student) (student.Student, error)
	UpdateStudent(ctx context.Context, s student.Student) (student.Student, error)
	GetStudent(ctx context.Context, id string) (student.Student, error)
	ListStudents(ctx context.Context) ([]student.Student, error)
}

// MissionStore persists marketplace missions.
type MissionStore interface {
	CreateMission(ctx context.Context, m mission.Mission) (mission.Mission, error)
	UpdateMission(ctx context.Context, m mission.Mission) (mission.Mission, error)
	GetMission(ctx context.Context, id string) (mission.Mission, error)
	ListMissions(ctx context.Context) ([]mission.Mission, error)
	DeleteMission(ctx context.Context, id string) error
}

// RewardStore persists shop reward definitions.
type RewardStore interface {
	CreateReward(ctx context.Context, r reward.Reward) (reward.Reward, error)
	UpdateReward(ctx context.Context, r reward.Reward) (reward.Reward, error)
	GetReward(ctx context.Context, id string) (reward.Reward, error)
	ListRewards(ctx context.Context) ([]reward.Reward, error)
	DeleteReward(ctx context.Context, id string) error
}

// PendingRewardStore persists claimable rewards between mission completion
// and claim.
type PendingRewardStore interface {
	CreatePendingReward(ctx context.Context, p reward.Pending) (reward.Pending, error)
	GetPendingReward(ctx context.Context, id string) (reward.Pending, error)
	ListPendingRewards(ctx context.Context, studentID string) ([]reward.Pending, error)
	DeletePendingReward(ctx context.Context, id string) error
}

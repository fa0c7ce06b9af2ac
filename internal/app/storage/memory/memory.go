// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests, local development and single-classroom deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
	"github.com/classbank/ledger/internal/app/storage"
)

// Store keeps all entity collections in maps guarded by a single RWMutex.
// Every read and write hands out defensive copies so callers never share
// slices with the store.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	students map[string]student.Student
	missions map[string]mission.Mission
	rewards  map[string]reward.Reward
	pending  map[string]reward.Pending
}

var _ storage.StudentStore = (*Store)(nil)
var _ storage.MissionStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.PendingRewardStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		students: make(map[string]student.Student),
		missions: make(map[string]mission.Mission),
		rewards:  make(map[string]reward.Reward),
		pending:  make(map[string]reward.Pending),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// StudentStore implementation ------------------------------------------------

func (s *Store) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = s.nextIDLocked()
	} else if _, exists := s.students[st.ID]; exists {
		return student.Student{}, fmt.Errorf("student %s already exists", st.ID)
	}

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	s.students[st.ID] = cloneStudent(st)
	return cloneStudent(st), nil
}

func (s *Store) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.students[st.ID]
	if !ok {
		return student.Student{}, fmt.Errorf("student %s: %w", st.ID, storage.ErrNotFound)
	}

	st.CreatedAt = original.CreatedAt
	st.UpdatedAt = time.Now().UTC()

	s.students[st.ID] = cloneStudent(st)
	return cloneStudent(st), nil
}

func (s *Store) GetStudent(_ context.Context, id string) (student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return student.Student{}, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	return cloneStudent(st), nil
}

func (s *Store) ListStudents(_ context.Context) ([]student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]student.Student, 0, len(s.students))
	for _, st := range s.students {
		result = append(result, cloneStudent(st))
	}
	return result, nil
}

// MissionStore implementation ------------------------------------------------

func (s *Store) CreateMission(_ context.Context, m mission.Mission) (mission.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.nextIDLocked()
	} else if _, exists := s.missions[m.ID]; exists {
		return mission.Mission{}, fmt.Errorf("mission %s already exists", m.ID)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	s.missions[m.ID] = cloneMission(m)
	return cloneMission(m), nil
}

func (s *Store) UpdateMission(_ context.Context, m mission.Mission) (mission.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.missions[m.ID]
	if !ok {
		return mission.Mission{}, fmt.Errorf("mission %s: %w", m.ID, storage.ErrNotFound)
	}

	m.CreatedAt = original.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	s.missions[m.ID] = cloneMission(m)
	return cloneMission(m), nil
}

func (s *Store) GetMission(_ context.Context, id string) (mission.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.missions[id]
	if !ok {
		return mission.Mission{}, fmt.Errorf("mission %s: %w", id, storage.ErrNotFound)
	}
	return cloneMission(m), nil
}

func (s *Store) ListMissions(_ context.Context) ([]mission.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]mission.Mission, 0, len(s.missions))
	for _, m := range s.missions {
		result = append(result, cloneMission(m))
	}
	return result, nil
}

func (s *Store) DeleteMission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missions[id]; !ok {
		return fmt.Errorf("mission %s: %w", id, storage.ErrNotFound)
	}
	delete(s.missions, id)
	return nil
}

// RewardStore implementation -------------------------------------------------

func (s *Store) CreateReward(_ context.Context, r reward.Reward) (reward.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, exists := s.rewards[r.ID]; exists {
		return reward.Reward{}, fmt.Errorf("reward %s already exists", r.ID)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	s.rewards[r.ID] = r
	return r, nil
}

func (s *Store) UpdateReward(_ context.Context, r reward.Reward) (reward.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.rewards[r.ID]
	if !ok {
		return reward.Reward{}, fmt.Errorf("reward %s: %w", r.ID, storage.ErrNotFound)
	}

	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	s.rewards[r.ID] = r
	return r, nil
}

func (s *Store) GetReward(_ context.Context, id string) (reward.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rewards[id]
	if !ok {
		return reward.Reward{}, fmt.Errorf("reward %s: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

func (s *Store) ListRewards(_ context.Context) ([]reward.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]reward.Reward, 0, len(s.rewards))
	for _, r := range s.rewards {
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) DeleteReward(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[id]; !ok {
		return fmt.Errorf("reward %s: %w", id, storage.ErrNotFound)
	}
	delete(s.rewards, id)
	return nil
}

// PendingRewardStore implementation ------------------------------------------

func (s *Store) CreatePendingReward(_ context.Context, p reward.Pending) (reward.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.pending[p.ID]; exists {
		return reward.Pending{}, fmt.Errorf("pending reward %s already exists", p.ID)
	}

	p.CreatedAt = time.Now().UTC()

	s.pending[p.ID] = p
	return p, nil
}

func (s *Store) GetPendingReward(_ context.Context, id string) (reward.Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[id]
	if !ok {
		return reward.Pending{}, fmt.Errorf("pending reward %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListPendingRewards(_ context.Context, studentID string) ([]reward.Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]reward.Pending, 0)
	for _, p := range s.pending {
		if studentID == "" || p.StudentID == studentID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *Store) DeletePendingReward(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return fmt.Errorf("pending reward %s: %w", id, storage.ErrNotFound)
	}
	delete(s.pending, id)
	return nil
}

// Clone helpers ---------------------------------------------------------------

func cloneStudent(st student.Student) student.Student {
	st.AssignedMissions = append([]string(nil), st.AssignedMissions...)
	st.PurchasedRewards = append([]string(nil), st.PurchasedRewards...)
	st.History = append([]student.HistoryEntry(nil), st.History...)
	return st
}

func cloneMission(m mission.Mission) mission.Mission {
	m.RequestedBy = append([]string(nil), m.RequestedBy...)
	return m
}

// Package query serves every read-only view of the economy: marketplace
// boards, leaderboards, balance history and growth reports. It never writes.
package query

import (
	"context"
	"hash/fnv"
	"sort"

	"github.com/classbank/ledger/internal/app/domain/growth"
	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
	"github.com/classbank/ledger/internal/app/storage"
)

// syntheticWeeks is how many weeks of history are fabricated for a student
// who has not lived through an interest cycle yet.
const syntheticWeeks = 8

// Service answers read queries against the stores.
type Service struct {
	students storage.StudentStore
	missions storage.MissionStore
	rewards  storage.RewardStore
	pending  storage.PendingRewardStore
}

// New creates a query service over the given stores.
func New(students storage.StudentStore, missions storage.MissionStore,
	rewards storage.RewardStore, pending storage.PendingRewardStore) *Service {
	return &Service{
		students: students,
		missions: missions,
		rewards:  rewards,
		pending:  pending,
	}
}

// Student returns one student by id.
func (s *Service) Student(ctx context.Context, id string) (student.Student, error) {
	return s.students.GetStudent(ctx, id)
}

// Students lists every student.
func (s *Service) Students(ctx context.Context) ([]student.Student, error) {
	return s.students.ListStudents(ctx)
}

// Mission returns one mission by id.
func (s *Service) Mission(ctx context.Context, id string) (mission.Mission, error) {
	return s.missions.GetMission(ctx, id)
}

// Missions lists every mission.
func (s *Service) Missions(ctx context.Context) ([]mission.Mission, error) {
	return s.missions.ListMissions(ctx)
}

// Rewards lists every shop reward.
func (s *Service) Rewards(ctx context.Context) ([]reward.Reward, error) {
	return s.rewards.ListRewards(ctx)
}

// Reward returns one shop reward by id.
func (s *Service) Reward(ctx context.Context, id string) (reward.Reward, error) {
	return s.rewards.GetReward(ctx, id)
}

// AvailableMissions lists missions a student could still request: no
// assignee, regardless of how many requests they have collected.
func (s *Service) AvailableMissions(ctx context.Context) ([]mission.Mission, error) {
	all, err := s.missions.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]mission.Mission, 0, len(all))
	for _, m := range all {
		if m.AssignedStudentID == "" && m.Status != mission.StatusCompleted {
			open = append(open, m)
		}
	}
	return open, nil
}

// StudentMissions lists the missions currently assigned to a student.
func (s *Service) StudentMissions(ctx context.Context, studentID string) ([]mission.Mission, error) {
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	all, err := s.missions.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]mission.Mission, 0)
	for _, m := range all {
		if m.AssignedStudentID == studentID {
			mine = append(mine, m)
		}
	}
	return mine, nil
}

// PendingApprovals lists assigned missions still in progress, the sign-off
// queue for completed work.
func (s *Service) PendingApprovals(ctx context.Context) ([]mission.Mission, error) {
	all, err := s.missions.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	queue := make([]mission.Mission, 0)
	for _, m := range all {
		if m.Status == mission.StatusInProgress && m.AssignedStudentID != "" {
			queue = append(queue, m)
		}
	}
	return queue, nil
}

// PendingRewards lists a student's unclaimed rewards.
func (s *Service) PendingRewards(ctx context.Context, studentID string) ([]reward.Pending, error) {
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.pending.ListPendingRewards(ctx, studentID)
}

// AllPendingRewards lists every unclaimed reward across students.
func (s *Service) AllPendingRewards(ctx context.Context) ([]reward.Pending, error) {
	return s.pending.ListPendingRewards(ctx, "")
}

// LeaderboardEntry is one ranked row of the class leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	StudentID   string `json:"studentId"`
	Name        string `json:"name"`
	SpendTokens int    `json:"spendTokens"`
	SaveTokens  int    `json:"saveTokens"`
	GrowTokens  int    `json:"growTokens"`
	TotalTokens int    `json:"totalTokens"`
}

// Leaderboard ranks students by total tokens, ties broken by name so the
// order is stable across refreshes.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(students))
	for _, st := range students {
		entries = append(entries, LeaderboardEntry{
			StudentID:   st.ID,
			Name:        st.Name,
			SpendTokens: st.SpendTokens,
			SaveTokens:  st.SaveTokens,
			GrowTokens:  st.GrowTokens,
			TotalTokens: st.TotalTokens(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalTokens != entries[j].TotalTokens {
			return entries[i].TotalTokens > entries[j].TotalTokens
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// MissionBoard groups every mission by lifecycle stage for the classroom
// display.
type MissionBoard struct {
	Available  []mission.Mission `json:"available"`
	Requested  []mission.Mission `json:"requested"`
	InProgress []mission.Mission `json:"inProgress"`
	Completed  []mission.Mission `json:"completed"`
}

// Board returns the full mission board.
func (s *Service) Board(ctx context.Context) (MissionBoard, error) {
	all, err := s.missions.ListMissions(ctx)
	if err != nil {
		return MissionBoard{}, err
	}

	board := MissionBoard{
		Available:  []mission.Mission{},
		Requested:  []mission.Mission{},
		InProgress: []mission.Mission{},
		Completed:  []mission.Mission{},
	}
	for _, m := range all {
		switch m.Status {
		case mission.StatusAvailable:
			board.Available = append(board.Available, m)
		case mission.StatusRequested:
			board.Requested = append(board.Requested, m)
		case mission.StatusInProgress:
			board.InProgress = append(board.InProgress, m)
		case mission.StatusCompleted:
			board.Completed = append(board.Completed, m)
		}
	}
	return board, nil
}

// BalanceHistory returns a student's weekly snapshots, oldest first. Students
// who have not been through an interest cycle get a deterministic synthetic
// ramp ending exactly at their current balances, so charts never start empty.
func (s *Service) BalanceHistory(ctx context.Context, studentID string) ([]student.HistoryEntry, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(st.History) > 0 {
		out := make([]student.HistoryEntry, len(st.History))
		copy(out, st.History)
		return out, nil
	}
	return syntheticHistory(st), nil
}

// GrowthReport bundles everything the growth screen shows for one student.
type GrowthReport struct {
	GrowTokens       int               `json:"growTokens"`
	WeeklyRate       float64           `json:"weeklyRate"`
	Projections      growth.Projection `json:"projections"`
	GrowthPercentage int               `json:"growthPercentage"`
	WhatIfGrow       []int             `json:"whatIfGrow"`
}

// Growth computes projections and the what-if timeline for a student.
// The growth percentage compares the current grow balance to the earliest
// recorded one.
func (s *Service) Growth(ctx context.Context, studentID string) (GrowthReport, error) {
	history, err := s.BalanceHistory(ctx, studentID)
	if err != nil {
		return GrowthReport{}, err
	}
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return GrowthReport{}, err
	}

	initialGrow := student.StartingGrow
	points := make([]growth.Point, len(history))
	for i, h := range history {
		points[i] = growth.Point{Spend: h.SpendBalance, Grow: h.GrowBalance}
	}
	if len(history) > 0 {
		initialGrow = history[0].GrowBalance
	}

	return GrowthReport{
		GrowTokens:       st.GrowTokens,
		WeeklyRate:       growth.WeeklyRate,
		Projections:      growth.Projections(st.GrowTokens),
		GrowthPercentage: growth.GrowthPercentage(initialGrow, st.GrowTokens),
		WhatIfGrow:       growth.WhatIfGrow(points),
	}, nil
}

// syntheticHistory fabricates a ramp of weekly snapshots for a student with
// no recorded history. The grow series is back-projected through the weekly
// rate, spend and save ramp up with a per-student wobble so the class's
// charts don't all look identical, and the final week equals the student's
// real balances.
func syntheticHistory(st student.Student) []student.HistoryEntry {
	entries := make([]student.HistoryEntry, syntheticWeeks)
	seed := idSeed(st.ID)

	spend := st.SpendTokens
	save := st.SaveTokens
	grow := st.GrowTokens

	for i := syntheticWeeks - 1; i >= 0; i-- {
		entries[i] = student.HistoryEntry{
			Week:         i + 1,
			SpendBalance: spend,
			SaveBalance:  save,
			GrowBalance:  grow,
		}
		if i == 0 {
			break
		}
		wobble := int(seed>>(uint(i)*3)%7) - 3
		spend = clampZero(spend - spend/10 - wobble)
		save = clampZero(save - save/12 + wobble/2)
		grow = int(float64(grow) / (1 + growth.WeeklyRate))
	}
	return entries
}

func idSeed(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32()
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

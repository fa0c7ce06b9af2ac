// Package ledger implements every state-changing operation on students,
// missions, rewards and pending rewards. All mutations go through this
// service; reads live in the query package.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/classbank/ledger/internal/app/domain/growth"
	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/pricing"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
	"github.com/classbank/ledger/internal/app/metrics"
	"github.com/classbank/ledger/internal/app/storage"
	"github.com/classbank/ledger/pkg/logger"
)

// Errors returned for caller-correctable conditions. Operations never
// partially apply: on any error the stores are left untouched.
var (
	ErrMissionAssigned    = errors.New("mission already assigned")
	ErrAlreadyRequested   = errors.New("mission already requested by student")
	ErrNoAssignee         = errors.New("mission has no assigned student")
	ErrAlreadyCompleted   = errors.New("mission already completed")
	ErrInsufficientTokens = errors.New("insufficient balance")
	ErrSplitMismatch      = errors.New("claim split does not sum to reward amount")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrSameBucket         = errors.New("transfer buckets must differ")
	ErrSoldOut            = errors.New("reward is sold out")
)

// Service is the mutable core of the token economy.
//
// A single mutex serializes mutations: every operation is a short
// read-modify-write over one or two records, and classroom throughput does
// not justify per-entity locking. Reads served by the query package go
// straight to the store and never observe a half-applied mutation because
// each entity is written exactly once per operation, student last.
type Service struct {
	students storage.StudentStore
	missions storage.MissionStore
	rewards  storage.RewardStore
	pending  storage.PendingRewardStore
	log      *logger.Logger

	mu sync.Mutex
}

// New creates a configured ledger service.
func New(students storage.StudentStore, missions storage.MissionStore,
	rewards storage.RewardStore, pending storage.PendingRewardStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		students: students,
		missions: missions,
		rewards:  rewards,
		pending:  pending,
		log:      log,
	}
}

// Student administration ------------------------------------------------------

// CreateStudent provisions a student with the fixed starting balances.
func (s *Service) CreateStudent(ctx context.Context, name, pin string, saveGoal int) (student.Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return student.Student{}, fmt.Errorf("name is required")
	}
	if err := validatePIN(pin); err != nil {
		return student.Student{}, err
	}
	if saveGoal < 0 {
		return student.Student{}, fmt.Errorf("save goal cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.students.CreateStudent(ctx, student.Student{
		Name:        name,
		PIN:         pin,
		SpendTokens: student.StartingSpend,
		SaveTokens:  student.StartingSave,
		GrowTokens:  student.StartingGrow,
		SaveGoal:    saveGoal,
	})
	if err != nil {
		return student.Student{}, err
	}

	s.log.WithField("student_id", st.ID).WithField("name", st.Name).Info("student created")
	return st, nil
}

// SetSaveGoal updates a student's savings goal. Zero clears it back to the
// display default.
func (s *Service) SetSaveGoal(ctx context.Context, studentID string, goal int) (student.Student, error) {
	if goal < 0 {
		return student.Student{}, fmt.Errorf("save goal cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}
	st.SaveGoal = goal
	return s.students.UpdateStudent(ctx, st)
}

// VerifyPIN checks a student's PIN. A missing student is an error; a wrong
// PIN is not.
func (s *Service) VerifyPIN(ctx context.Context, studentID, pin string) (bool, error) {
	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return false, err
	}
	return st.PIN == pin, nil
}

// Mission definitions ---------------------------------------------------------

// CreateMission posts a new mission on the marketplace.
func (s *Service) CreateMission(ctx context.Context, title, description string, baseReward int, bandColor string) (mission.Mission, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return mission.Mission{}, fmt.Errorf("title is required")
	}
	if baseReward <= 0 {
		return mission.Mission{}, fmt.Errorf("base reward must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.missions.CreateMission(ctx, mission.Mission{
		Title:         title,
		Description:   description,
		BaseReward:    baseReward,
		CurrentReward: baseReward,
		Status:        mission.StatusAvailable,
		BandColor:     bandColor,
	})
	if err != nil {
		return mission.Mission{}, err
	}

	s.log.WithField("mission_id", m.ID).WithField("base_reward", m.BaseReward).Info("mission created")
	return m, nil
}

// UpdateMission edits mission fields. Changing the base reward recomputes the
// current reward against the existing demand.
func (s *Service) UpdateMission(ctx context.Context, missionID string, title, description *string, baseReward *int, bandColor *string) (mission.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.missions.GetMission(ctx, missionID)
	if err != nil {
		return mission.Mission{}, err
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return mission.Mission{}, fmt.Errorf("title cannot be empty")
		}
		m.Title = trimmed
	}
	if description != nil {
		m.Description = *description
	}
	if baseReward != nil {
		if *baseReward <= 0 {
			return mission.Mission{}, fmt.Errorf("base reward must be positive")
		}
		m.BaseReward = *baseReward
		m.CurrentReward = pricing.CurrentReward(m.BaseReward, len(m.RequestedBy))
	}
	if bandColor != nil {
		m.BandColor = *bandColor
	}

	return s.missions.UpdateMission(ctx, m)
}

// DeleteMission removes a mission entirely. If assigned, the mission is also
// removed from the former assignee's set. Pending rewards already created for
// the mission are unaffected.
func (s *Service) DeleteMission(ctx context.Context, missionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.missions.GetMission(ctx, missionID)
	if err != nil {
		return err
	}

	if m.AssignedStudentID != "" {
		if st, err := s.students.GetStudent(ctx, m.AssignedStudentID); err == nil {
			st.AssignedMissions = removeID(st.AssignedMissions, missionID)
			if _, err := s.students.UpdateStudent(ctx, st); err != nil {
				return err
			}
		}
	}

	if err := s.missions.DeleteMission(ctx, missionID); err != nil {
		return err
	}
	s.log.WithField("mission_id", missionID).Info("mission deleted")
	return nil
}

// Mission lifecycle -----------------------------------------------------------

// RequestMission adds a student to a mission's demand set and reprices it.
// Fails if the mission is already assigned or the student already requested
// it. Not idempotent across distinct students: each new request lowers the
// price further.
func (s *Service) RequestMission(ctx context.Context, studentID, missionID string) (m mission.Mission, err error) {
	defer func() { metrics.RecordLedgerOp("request_mission", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err = s.students.GetStudent(ctx, studentID); err != nil {
		return mission.Mission{}, err
	}
	m, err = s.missions.GetMission(ctx, missionID)
	if err != nil {
		return mission.Mission{}, err
	}
	if m.AssignedStudentID != "" {
		return mission.Mission{}, ErrMissionAssigned
	}
	if m.RequestedByStudent(studentID) {
		return mission.Mission{}, ErrAlreadyRequested
	}

	m.RequestedBy = append(m.RequestedBy, studentID)
	m.RequestCount = len(m.RequestedBy)
	m.CurrentReward = pricing.CurrentReward(m.BaseReward, m.RequestCount)
	m.Status = mission.StatusRequested

	m, err = s.missions.UpdateMission(ctx, m)
	if err != nil {
		return mission.Mission{}, err
	}

	s.log.WithField("mission_id", m.ID).
		WithField("student_id", studentID).
		WithField("request_count", m.RequestCount).
		WithField("current_reward", m.CurrentReward).
		Info("mission requested")
	return m, nil
}

// AssignMission gives a mission to a student. Fails if a different student is
// already assigned; re-assigning the same student is an idempotent success.
func (s *Service) AssignMission(ctx context.Context, missionID, studentID string) (m mission.Mission, err error) {
	defer func() { metrics.RecordLedgerOp("assign_mission", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return mission.Mission{}, err
	}
	m, err = s.missions.GetMission(ctx, missionID)
	if err != nil {
		return mission.Mission{}, err
	}
	if m.AssignedStudentID != "" && m.AssignedStudentID != studentID {
		return mission.Mission{}, ErrMissionAssigned
	}

	m.AssignedStudentID = studentID
	m.Status = mission.StatusInProgress

	m, err = s.missions.UpdateMission(ctx, m)
	if err != nil {
		return mission.Mission{}, err
	}

	if !st.HasMission(missionID) {
		st.AssignedMissions = append(st.AssignedMissions, missionID)
		if _, err = s.students.UpdateStudent(ctx, st); err != nil {
			return mission.Mission{}, err
		}
	}

	s.log.WithField("mission_id", m.ID).WithField("student_id", studentID).Info("mission assigned")
	return m, nil
}

// UnassignMission resets an assigned mission back to AVAILABLE. Demand
// history is deliberately kept: a reset mission keeps its discounted price
// until requests are cleared separately.
func (s *Service) UnassignMission(ctx context.Context, missionID string) (m mission.Mission, err error) {
	defer func() { metrics.RecordLedgerOp("unassign_mission", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err = s.missions.GetMission(ctx, missionID)
	if err != nil {
		return mission.Mission{}, err
	}
	if m.AssignedStudentID == "" {
		return mission.Mission{}, ErrNoAssignee
	}

	if st, err := s.students.GetStudent(ctx, m.AssignedStudentID); err == nil {
		st.AssignedMissions = removeID(st.AssignedMissions, missionID)
		if _, err := s.students.UpdateStudent(ctx, st); err != nil {
			return mission.Mission{}, err
		}
	}

	m.AssignedStudentID = ""
	m.Status = mission.StatusAvailable

	m, err = s.missions.UpdateMission(ctx, m)
	if err != nil {
		return mission.Mission{}, err
	}

	s.log.WithField("mission_id", m.ID).Info("mission unassigned")
	return m, nil
}

// CompleteMission marks an assigned mission as completed and freezes its
// current reward into exactly one pending reward. No tokens move until the
// student claims the split.
func (s *Service) CompleteMission(ctx context.Context, missionID string) (p reward.Pending, err error) {
	defer func() { metrics.RecordLedgerOp("complete_mission", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.missions.GetMission(ctx, missionID)
	if err != nil {
		return reward.Pending{}, err
	}
	if m.AssignedStudentID == "" {
		return reward.Pending{}, ErrNoAssignee
	}
	if m.Status == mission.StatusCompleted {
		return reward.Pending{}, ErrAlreadyCompleted
	}

	// The pending reward is written before the status flip so a store
	// failure cannot leave a completed mission with nothing to claim. If the
	// mission write fails instead, the orphan pending reward is removed.
	p, err = s.pending.CreatePendingReward(ctx, reward.Pending{
		MissionID:    m.ID,
		StudentID:    m.AssignedStudentID,
		MissionTitle: m.Title,
		TotalAmount:  m.CurrentReward,
	})
	if err != nil {
		return reward.Pending{}, err
	}

	m.Status = mission.StatusCompleted
	if _, err = s.missions.UpdateMission(ctx, m); err != nil {
		if delErr := s.pending.DeletePendingReward(ctx, p.ID); delErr != nil {
			s.log.WithError(delErr).WithField("pending_id", p.ID).Error("remove orphan pending reward")
		}
		return reward.Pending{}, err
	}

	metrics.RecordMissionCompleted()
	s.refreshPendingGauge(ctx)
	s.log.WithField("mission_id", m.ID).
		WithField("student_id", p.StudentID).
		WithField("total_amount", p.TotalAmount).
		Info("mission completed, reward pending claim")
	return p, nil
}

// ClaimPendingReward applies a student-chosen three-way split of a pending
// reward. The split must be non-negative and sum exactly to the frozen
// amount. This is the only path by which mission tokens enter balances.
func (s *Service) ClaimPendingReward(ctx context.Context, pendingID string, spend, save, grow int) (st student.Student, err error) {
	defer func() { metrics.RecordLedgerOp("claim_pending_reward", err) }()

	if spend < 0 || save < 0 || grow < 0 {
		return student.Student{}, ErrSplitMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pending.GetPendingReward(ctx, pendingID)
	if err != nil {
		return student.Student{}, err
	}
	if spend+save+grow != p.TotalAmount {
		return student.Student{}, ErrSplitMismatch
	}

	st, err = s.students.GetStudent(ctx, p.StudentID)
	if err != nil {
		return student.Student{}, err
	}

	st.SpendTokens += spend
	st.SaveTokens += save
	st.GrowTokens += grow

	st, err = s.students.UpdateStudent(ctx, st)
	if err != nil {
		return student.Student{}, err
	}
	if err = s.pending.DeletePendingReward(ctx, pendingID); err != nil {
		return student.Student{}, err
	}

	metrics.RecordCredit(string(student.BucketSpend), spend)
	metrics.RecordCredit(string(student.BucketSave), save)
	metrics.RecordCredit(string(student.BucketGrow), grow)
	s.refreshPendingGauge(ctx)
	s.log.WithField("pending_id", pendingID).
		WithField("student_id", st.ID).
		WithField("split", fmt.Sprintf("%d/%d/%d", spend, save, grow)).
		Info("pending reward claimed")
	return st, nil
}

// Tokens ----------------------------------------------------------------------

// TransferTokens moves tokens between two of a student's buckets. Debit and
// credit land in one store write, so no reader can observe only one side.
func (s *Service) TransferTokens(ctx context.Context, studentID string, amount int, from, to student.Bucket) (st student.Student, err error) {
	defer func() { metrics.RecordLedgerOp("transfer_tokens", err) }()

	if from == to {
		return student.Student{}, ErrSameBucket
	}
	if amount <= 0 {
		return student.Student{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err = s.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}
	if st.Balance(from) < amount {
		return student.Student{}, ErrInsufficientTokens
	}

	st.SetBalance(from, st.Balance(from)-amount)
	st.SetBalance(to, st.Balance(to)+amount)

	st, err = s.students.UpdateStudent(ctx, st)
	if err != nil {
		return student.Student{}, err
	}

	metrics.RecordDebit(string(from), amount)
	metrics.RecordCredit(string(to), amount)
	s.log.WithField("student_id", studentID).
		WithField("amount", amount).
		WithField("from", string(from)).
		WithField("to", string(to)).
		Info("tokens transferred")
	return st, nil
}

// PurchaseReward debits a student's spend balance for a shop reward. The
// purchased set is deduplicated, but the cost is deducted on every call;
// guarding against double-submission is the caller's job.
func (s *Service) PurchaseReward(ctx context.Context, studentID, rewardID string) (st student.Student, err error) {
	defer func() { metrics.RecordLedgerOp("purchase_reward", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.rewards.GetReward(ctx, rewardID)
	if err != nil {
		return student.Student{}, err
	}
	if r.SoldOut {
		return student.Student{}, ErrSoldOut
	}

	st, err = s.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}
	if st.SpendTokens < r.Cost {
		return student.Student{}, ErrInsufficientTokens
	}

	st.SpendTokens -= r.Cost
	if !st.HasReward(rewardID) {
		st.PurchasedRewards = append(st.PurchasedRewards, rewardID)
	}

	st, err = s.students.UpdateStudent(ctx, st)
	if err != nil {
		return student.Student{}, err
	}

	metrics.RecordDebit(string(student.BucketSpend), r.Cost)
	s.log.WithField("student_id", studentID).
		WithField("reward_id", rewardID).
		WithField("cost", r.Cost).
		Info("reward purchased")
	return st, nil
}

// Reward definitions ----------------------------------------------------------

// CreateReward adds a shop item.
func (s *Service) CreateReward(ctx context.Context, title, description string, cost int, icon string) (reward.Reward, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return reward.Reward{}, fmt.Errorf("title is required")
	}
	if cost <= 0 {
		return reward.Reward{}, fmt.Errorf("cost must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rewards.CreateReward(ctx, reward.Reward{
		Title:       title,
		Description: description,
		Cost:        cost,
		Icon:        icon,
	})
}

// UpdateReward edits a shop item, including marking it sold out.
func (s *Service) UpdateReward(ctx context.Context, rewardID string, title, description *string, cost *int, icon *string, soldOut *bool) (reward.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.rewards.GetReward(ctx, rewardID)
	if err != nil {
		return reward.Reward{}, err
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return reward.Reward{}, fmt.Errorf("title cannot be empty")
		}
		r.Title = trimmed
	}
	if description != nil {
		r.Description = *description
	}
	if cost != nil {
		if *cost <= 0 {
			return reward.Reward{}, fmt.Errorf("cost must be positive")
		}
		r.Cost = *cost
	}
	if icon != nil {
		r.Icon = *icon
	}
	if soldOut != nil {
		r.SoldOut = *soldOut
	}

	return s.rewards.UpdateReward(ctx, r)
}

// DeleteReward removes a shop item. Already-purchased references on students
// are kept as opaque history.
func (s *Service) DeleteReward(ctx context.Context, rewardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rewards.DeleteReward(ctx, rewardID)
}

// Weekly interest -------------------------------------------------------------

// AdvanceWeek compounds every grow balance by the weekly rate and appends a
// balance snapshot to each student's history. Returns the number of students
// advanced. Called by the interest scheduler and the admin API.
func (s *Service) AdvanceWeek(ctx context.Context) (n int, err error) {
	defer func() { metrics.RecordLedgerOp("advance_week", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return 0, err
	}

	for _, st := range students {
		before := st.GrowTokens
		st.GrowTokens = growth.ProjectedValue(st.GrowTokens, 1)

		week := 1
		if len(st.History) > 0 {
			week = st.History[len(st.History)-1].Week + 1
		}
		st.History = append(st.History, student.HistoryEntry{
			Week:         week,
			SpendBalance: st.SpendTokens,
			SaveBalance:  st.SaveTokens,
			GrowBalance:  st.GrowTokens,
		})

		if _, err := s.students.UpdateStudent(ctx, st); err != nil {
			return n, err
		}
		metrics.RecordCredit(string(student.BucketGrow), st.GrowTokens-before)
		n++
	}

	s.log.WithField("students", n).Info("week advanced, interest applied")
	return n, nil
}

// Helpers ----------------------------------------------------------------------

func (s *Service) refreshPendingGauge(ctx context.Context) {
	if outstanding, err := s.pending.ListPendingRewards(ctx, ""); err == nil {
		metrics.SetPendingRewards(len(outstanding))
	}
}

func validatePIN(pin string) error {
	if len(pin) != 4 {
		return fmt.Errorf("pin must be 4 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("pin must be 4 digits")
		}
	}
	return nil
}

func removeID(ids []string, target string) []string {
	result := ids[:0]
	for _, id := range ids {
		if id != target {
			result = append(result, id)
		}
	}
	return result
}

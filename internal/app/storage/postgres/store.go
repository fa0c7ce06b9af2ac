// Package postgres implements the storage interfaces backed by PostgreSQL.
// Set-valued columns (assigned missions, requested-by, history) are stored as
// JSONB; run internal/platform/migrations before constructing a Store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
	"github.com/classbank/ledger/internal/app/storage"
)

// Store implements the storage interfaces over a *sql.DB handle.
type Store struct {
	db *sql.DB
}

var _ storage.StudentStore = (*Store)(nil)
var _ storage.MissionStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.PendingRewardStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- StudentStore -------------------------------------------------------------

func (s *Store) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	assigned, purchased, history, err := marshalStudentSets(st)
	if err != nil {
		return student.Student{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO students (id, name, pin, spend_tokens, save_tokens, grow_tokens,
			assigned_missions, purchased_rewards, save_goal, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, st.ID, st.Name, st.PIN, st.SpendTokens, st.SaveTokens, st.GrowTokens,
		assigned, purchased, st.SaveGoal, history, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.UpdatedAt = time.Now().UTC()

	assigned, purchased, history, err := marshalStudentSets(st)
	if err != nil {
		return student.Student{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, pin = $3, spend_tokens = $4, save_tokens = $5, grow_tokens = $6,
			assigned_missions = $7, purchased_rewards = $8, save_goal = $9, history = $10,
			updated_at = $11
		WHERE id = $1
	`, st.ID, st.Name, st.PIN, st.SpendTokens, st.SaveTokens, st.GrowTokens,
		assigned, purchased, st.SaveGoal, history, st.UpdatedAt)
	if err != nil {
		return student.Student{}, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return student.Student{}, fmt.Errorf("student %s: %w", st.ID, storage.ErrNotFound)
	}
	return s.GetStudent(ctx, st.ID)
}

func (s *Store) GetStudent(ctx context.Context, id string) (student.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, pin, spend_tokens, save_tokens, grow_tokens,
			assigned_missions, purchased_rewards, save_goal, history, created_at, updated_at
		FROM students WHERE id = $1
	`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Student{}, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	return st, err
}

func (s *Store) ListStudents(ctx context.Context) ([]student.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pin, spend_tokens, save_tokens, grow_tokens,
			assigned_missions, purchased_rewards, save_goal, history, created_at, updated_at
		FROM students ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []student.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row scanner) (student.Student, error) {
	var st student.Student
	var assigned, purchased, history []byte
	if err := row.Scan(&st.ID, &st.Name, &st.PIN, &st.SpendTokens, &st.SaveTokens, &st.GrowTokens,
		&assigned, &purchased, &st.SaveGoal, &history, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return student.Student{}, err
	}
	if err := json.Unmarshal(assigned, &st.AssignedMissions); err != nil {
		return student.Student{}, fmt.Errorf("decode assigned missions: %w", err)
	}
	if err := json.Unmarshal(purchased, &st.PurchasedRewards); err != nil {
		return student.Student{}, fmt.Errorf("decode purchased rewards: %w", err)
	}
	if err := json.Unmarshal(history, &st.History); err != nil {
		return student.Student{}, fmt.Errorf("decode history: %w", err)
	}
	return st, nil
}

func marshalStudentSets(st student.Student) (assigned, purchased, history []byte, err error) {
	if assigned, err = json.Marshal(emptyIfNil(st.AssignedMissions)); err != nil {
		return nil, nil, nil, err
	}
	if purchased, err = json.Marshal(emptyIfNil(st.PurchasedRewards)); err != nil {
		return nil, nil, nil, err
	}
	entries := st.History
	if entries == nil {
		entries = []student.HistoryEntry{}
	}
	if history, err = json.Marshal(entries); err != nil {
		return nil, nil, nil, err
	}
	return assigned, purchased, history, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// --- MissionStore ---------------------------------------------------------------

func (s *Store) CreateMission(ctx context.Context, m mission.Mission) (mission.Mission, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	requestedBy, err := json.Marshal(emptyIfNil(m.RequestedBy))
	if err != nil {
		return mission.Mission{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO missions (id, title, description, base_reward, current_reward,
			requested_by, assigned_student_id, status, band_color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, m.ID, m.Title, m.Description, m.BaseReward, m.CurrentReward,
		requestedBy, m.AssignedStudentID, string(m.Status), m.BandColor, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return mission.Mission{}, err
	}
	return m, nil
}

func (s *Store) UpdateMission(ctx context.Context, m mission.Mission) (mission.Mission, error) {
	m.UpdatedAt = time.Now().UTC()

	requestedBy, err := json.Marshal(emptyIfNil(m.RequestedBy))
	if err != nil {
		return mission.Mission{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE missions
		SET title = $2, description = $3, base_reward = $4, current_reward = $5,
			requested_by = $6, assigned_student_id = $7, status = $8, band_color = $9,
			updated_at = $10
		WHERE id = $1
	`, m.ID, m.Title, m.Description, m.BaseReward, m.CurrentReward,
		requestedBy, m.AssignedStudentID, string(m.Status), m.BandColor, m.UpdatedAt)
	if err != nil {
		return mission.Mission{}, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return mission.Mission{}, fmt.Errorf("mission %s: %w", m.ID, storage.ErrNotFound)
	}
	return s.GetMission(ctx, m.ID)
}

func (s *Store) GetMission(ctx context.Context, id string) (mission.Mission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, base_reward, current_reward,
			requested_by, assigned_student_id, status, band_color, created_at, updated_at
		FROM missions WHERE id = $1
	`, id)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mission.Mission{}, fmt.Errorf("mission %s: %w", id, storage.ErrNotFound)
	}
	return m, err
}

func (s *Store) ListMissions(ctx context.Context) ([]mission.Mission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, base_reward, current_reward,
			requested_by, assigned_student_id, status, band_color, created_at, updated_at
		FROM missions ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []mission.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM missions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("mission %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanMission(row scanner) (mission.Mission, error) {
	var m mission.Mission
	var requestedBy []byte
	var status string
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.BaseReward, &m.CurrentReward,
		&requestedBy, &m.AssignedStudentID, &status, &m.BandColor, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return mission.Mission{}, err
	}
	if err := json.Unmarshal(requestedBy, &m.RequestedBy); err != nil {
		return mission.Mission{}, fmt.Errorf("decode requested_by: %w", err)
	}
	parsed, err := mission.ParseStatus(status)
	if err != nil {
		return mission.Mission{}, err
	}
	m.Status = parsed
	m.RequestCount = len(m.RequestedBy)
	return m, nil
}

// --- RewardStore ----------------------------------------------------------------

func (s *Store) CreateReward(ctx context.Context, r reward.Reward) (reward.Reward, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (id, title, description, cost, icon, sold_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.Title, r.Description, r.Cost, r.Icon, r.SoldOut, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return reward.Reward{}, err
	}
	return r, nil
}

func (s *Store) UpdateReward(ctx context.Context, r reward.Reward) (reward.Reward, error) {
	r.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE rewards
		SET title = $2, description = $3, cost = $4, icon = $5, sold_out = $6, updated_at = $7
		WHERE id = $1
	`, r.ID, r.Title, r.Description, r.Cost, r.Icon, r.SoldOut, r.UpdatedAt)
	if err != nil {
		return reward.Reward{}, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return reward.Reward{}, fmt.Errorf("reward %s: %w", r.ID, storage.ErrNotFound)
	}
	return s.GetReward(ctx, r.ID)
}

func (s *Store) GetReward(ctx context.Context, id string) (reward.Reward, error) {
	var r reward.Reward
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, cost, icon, sold_out, created_at, updated_at
		FROM rewards WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.Description, &r.Cost, &r.Icon, &r.SoldOut, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reward.Reward{}, fmt.Errorf("reward %s: %w", id, storage.ErrNotFound)
	}
	return r, err
}

func (s *Store) ListRewards(ctx context.Context) ([]reward.Reward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, cost, icon, sold_out, created_at, updated_at
		FROM rewards ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reward.Reward
	for rows.Next() {
		var r reward.Reward
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Cost, &r.Icon, &r.SoldOut,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) DeleteReward(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("reward %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- PendingRewardStore -----------------------------------------------------------

func (s *Store) CreatePendingReward(ctx context.Context, p reward.Pending) (reward.Pending, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_rewards (id, mission_id, student_id, mission_title, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.MissionID, p.StudentID, p.MissionTitle, p.TotalAmount, p.CreatedAt)
	if err != nil {
		return reward.Pending{}, err
	}
	return p, nil
}

func (s *Store) GetPendingReward(ctx context.Context, id string) (reward.Pending, error) {
	var p reward.Pending
	err := s.db.QueryRowContext(ctx, `
		SELECT id, mission_id, student_id, mission_title, total_amount, created_at
		FROM pending_rewards WHERE id = $1
	`, id).Scan(&p.ID, &p.MissionID, &p.StudentID, &p.MissionTitle, &p.TotalAmount, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reward.Pending{}, fmt.Errorf("pending reward %s: %w", id, storage.ErrNotFound)
	}
	return p, err
}

func (s *Store) ListPendingRewards(ctx context.Context, studentID string) ([]reward.Pending, error) {
	query := `
		SELECT id, mission_id, student_id, mission_title, total_amount, created_at
		FROM pending_rewards`
	args := []interface{}{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reward.Pending
	for rows.Next() {
		var p reward.Pending
		if err := rows.Scan(&p.ID, &p.MissionID, &p.StudentID, &p.MissionTitle,
			&p.TotalAmount, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePendingReward(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_rewards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("pending reward %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

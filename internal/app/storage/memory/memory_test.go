package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/classbank/ledger/internal/app/domain/mission"
	"github.com/classbank/ledger/internal/app/domain/reward"
	"github.com/classbank/ledger/internal/app/domain/student"
	"github.com/classbank/ledger/internal/app/storage"
)

func TestStudentCRUD(t *testing.T) {
	store := New()
	ctx := context.Background()

	st, err := store.CreateStudent(ctx, student.Student{Name: "Alex", PIN: "1111"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.ID == "" || st.CreatedAt.IsZero() {
		t.Fatalf("missing generated fields: %+v", st)
	}

	st.SpendTokens = 42
	updated, err := store.UpdateStudent(ctx, st)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SpendTokens != 42 || !updated.CreatedAt.Equal(st.CreatedAt) {
		t.Fatalf("update result = %+v", updated)
	}

	if _, err := store.UpdateStudent(ctx, student.Student{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing err = %v, want not found", err)
	}
	if _, err := store.GetStudent(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing err = %v, want not found", err)
	}
}

func TestStoreHandsOutCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	m, _ := store.CreateMission(ctx, mission.Mission{Title: "Garden Maintenance", RequestedBy: []string{"a"}})

	got, _ := store.GetMission(ctx, m.ID)
	got.RequestedBy[0] = "mutated"
	got.RequestedBy = append(got.RequestedBy, "b")

	again, _ := store.GetMission(ctx, m.ID)
	if len(again.RequestedBy) != 1 || again.RequestedBy[0] != "a" {
		t.Fatalf("caller mutation leaked into store: %v", again.RequestedBy)
	}
}

func TestPendingRewardFilter(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.CreatePendingReward(ctx, reward.Pending{StudentID: "alex", TotalAmount: 100})
	store.CreatePendingReward(ctx, reward.Pending{StudentID: "alex", TotalAmount: 50})
	store.CreatePendingReward(ctx, reward.Pending{StudentID: "jordan", TotalAmount: 80})

	mine, err := store.ListPendingRewards(ctx, "alex")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("filtered list = %d entries, want 2", len(mine))
	}

	all, _ := store.ListPendingRewards(ctx, "")
	if len(all) != 3 {
		t.Fatalf("unfiltered list = %d entries, want 3", len(all))
	}
}

func TestDeleteMission(t *testing.T) {
	store := New()
	ctx := context.Background()

	m, _ := store.CreateMission(ctx, mission.Mission{Title: "Create Welcome Poster"})
	if err := store.DeleteMission(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteMission(ctx, m.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete err = %v, want not found", err)
	}
}

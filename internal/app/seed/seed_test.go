package seed

import (
	"context"
	"testing"

	"github.com/classbank/ledger/internal/app/services/ledger"
	"github.com/classbank/ledger/internal/app/storage/memory"
)

func TestApplyPopulatesEmptyStore(t *testing.T) {
	store := memory.New()
	led := ledger.New(store, store, store, store, nil)
	ctx := context.Background()

	if err := Apply(ctx, led, store, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}

	students, _ := store.ListStudents(ctx)
	if len(students) != 3 {
		t.Fatalf("students = %d, want 3", len(students))
	}
	for _, st := range students {
		if st.SpendTokens != 100 || st.SaveTokens != 40 || st.GrowTokens != 50 {
			t.Fatalf("seeded student %s has balances %d/%d/%d", st.Name,
				st.SpendTokens, st.SaveTokens, st.GrowTokens)
		}
	}

	missions, _ := store.ListMissions(ctx)
	if len(missions) != 8 {
		t.Fatalf("missions = %d, want 8", len(missions))
	}
	for _, m := range missions {
		if m.CurrentReward != m.BaseReward {
			t.Fatalf("seeded mission %s already discounted", m.Title)
		}
	}

	rewards, _ := store.ListRewards(ctx)
	if len(rewards) != 4 {
		t.Fatalf("rewards = %d, want 4", len(rewards))
	}
}

func TestApplyIdempotent(t *testing.T) {
	store := memory.New()
	led := ledger.New(store, store, store, store, nil)
	ctx := context.Background()

	if err := Apply(ctx, led, store, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(ctx, led, store, nil); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	students, _ := store.ListStudents(ctx)
	if len(students) != 3 {
		t.Fatalf("students after double seed = %d, want 3", len(students))
	}
}

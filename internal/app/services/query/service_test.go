package query

import (
	"context"
	"testing"

	"github.com/classbank/ledger/internal/app/services/ledger"
	"github.com/classbank/ledger/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	led := ledger.New(store, store, store, store, nil)
	return New(store, store, store, store), led, store
}

func TestAvailableMissionsExcludesAssignedAndCompleted(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	open, _ := led.CreateMission(ctx, "Create Welcome Poster", "", 80, "")
	requested, _ := led.CreateMission(ctx, "Garden Maintenance", "", 110, "")
	taken, _ := led.CreateMission(ctx, "Tech Helper for Week", "", 150, "")
	done, _ := led.CreateMission(ctx, "Lunch Monitor Assistant", "", 90, "")

	led.RequestMission(ctx, alex.ID, requested.ID)
	led.AssignMission(ctx, taken.ID, alex.ID)
	led.AssignMission(ctx, done.ID, alex.ID)
	led.CompleteMission(ctx, done.ID)

	got, err := q.AvailableMissions(ctx)
	if err != nil {
		t.Fatalf("available missions: %v", err)
	}
	ids := map[string]bool{}
	for _, m := range got {
		ids[m.ID] = true
	}
	if !ids[open.ID] || !ids[requested.ID] {
		t.Fatalf("open/requested missions missing from %v", ids)
	}
	if ids[taken.ID] || ids[done.ID] {
		t.Fatalf("assigned or completed mission leaked into available set: %v", ids)
	}
}

func TestPendingApprovalsListsInProgressMissions(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	jordan, _ := led.CreateStudent(ctx, "Jordan", "2222", 0)

	working, _ := led.CreateMission(ctx, "Organize Classroom Library", "", 100, "")
	led.RequestMission(ctx, alex.ID, working.ID)
	led.AssignMission(ctx, working.ID, alex.ID)

	requested, _ := led.CreateMission(ctx, "Create Welcome Poster", "", 80, "")
	led.RequestMission(ctx, jordan.ID, requested.ID)

	done, _ := led.CreateMission(ctx, "Lunch Monitor Assistant", "", 90, "")
	led.AssignMission(ctx, done.ID, jordan.ID)
	led.CompleteMission(ctx, done.ID)

	queue, err := q.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("pending approvals: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != working.ID {
		t.Fatalf("queue = %+v, want only the in-progress assigned mission", queue)
	}
	if queue[0].AssignedStudentID != alex.ID {
		t.Fatalf("queue entry assignee = %q, want %s", queue[0].AssignedStudentID, alex.ID)
	}

	// Approving the mission clears it from the queue.
	led.CompleteMission(ctx, working.ID)
	queue, _ = q.PendingApprovals(ctx)
	if len(queue) != 0 {
		t.Fatalf("queue after completion = %+v, want empty", queue)
	}
}

func TestLeaderboardRanksAndBreaksTiesByName(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	led.CreateStudent(ctx, "Jordan", "2222", 0)
	led.CreateStudent(ctx, "Alex", "1111", 0)
	sam, _ := led.CreateStudent(ctx, "Sam", "3333", 0)

	m, _ := led.CreateMission(ctx, "Peer Tutoring Session", "", 130, "")
	led.AssignMission(ctx, m.ID, sam.ID)
	p, _ := led.CompleteMission(ctx, m.ID)
	led.ClaimPendingReward(ctx, p.ID, 130, 0, 0)

	board, err := q.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board[0].Name != "Sam" || board[0].Rank != 1 || board[0].TotalTokens != 320 {
		t.Fatalf("top entry = %+v, want Sam with 320", board[0])
	}
	// Alex and Jordan are tied on starting balances; alphabetical order wins.
	if board[1].Name != "Alex" || board[2].Name != "Jordan" {
		t.Fatalf("tie order = %s, %s; want Alex, Jordan", board[1].Name, board[2].Name)
	}
}

func TestBoardGroupsByStatus(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	led.CreateMission(ctx, "Create Welcome Poster", "", 80, "")
	req, _ := led.CreateMission(ctx, "Garden Maintenance", "", 110, "")
	led.RequestMission(ctx, alex.ID, req.ID)
	prog, _ := led.CreateMission(ctx, "Tech Helper for Week", "", 150, "")
	led.AssignMission(ctx, prog.ID, alex.ID)

	board, err := q.Board(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Available) != 1 || len(board.Requested) != 1 || len(board.InProgress) != 1 || len(board.Completed) != 0 {
		t.Fatalf("board sizes = %d/%d/%d/%d, want 1/1/1/0",
			len(board.Available), len(board.Requested), len(board.InProgress), len(board.Completed))
	}
}

func TestStudentMissions(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	jordan, _ := led.CreateStudent(ctx, "Jordan", "2222", 0)
	mine, _ := led.CreateMission(ctx, "Event Planning Helper", "", 140, "")
	other, _ := led.CreateMission(ctx, "Lunch Monitor Assistant", "", 90, "")
	led.AssignMission(ctx, mine.ID, alex.ID)
	led.AssignMission(ctx, other.ID, jordan.ID)

	got, err := q.StudentMissions(ctx, alex.ID)
	if err != nil {
		t.Fatalf("student missions: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("student missions = %v, want only own mission", got)
	}
}

func TestBalanceHistorySyntheticFallback(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)

	history, err := q.BalanceHistory(ctx, alex.ID)
	if err != nil {
		t.Fatalf("balance history: %v", err)
	}
	if len(history) != syntheticWeeks {
		t.Fatalf("synthetic history length = %d, want %d", len(history), syntheticWeeks)
	}

	last := history[len(history)-1]
	if last.SpendBalance != 100 || last.SaveBalance != 40 || last.GrowBalance != 50 {
		t.Fatalf("final synthetic week = %+v, want current balances", last)
	}
	for i, h := range history {
		if h.Week != i+1 {
			t.Fatalf("week numbering = %+v", history)
		}
		if h.SpendBalance < 0 || h.SaveBalance < 0 || h.GrowBalance < 0 {
			t.Fatalf("negative synthetic balance: %+v", h)
		}
	}

	// Deterministic per student.
	again, _ := q.BalanceHistory(ctx, alex.ID)
	for i := range history {
		if history[i] != again[i] {
			t.Fatalf("synthetic history not deterministic at week %d", i+1)
		}
	}
}

func TestBalanceHistoryUsesRealSnapshots(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	led.AdvanceWeek(ctx)
	led.AdvanceWeek(ctx)

	history, err := q.BalanceHistory(ctx, alex.ID)
	if err != nil {
		t.Fatalf("balance history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2 real snapshots", len(history))
	}
	if history[1].GrowBalance != 52 {
		t.Fatalf("week 2 grow = %d, want 52", history[1].GrowBalance)
	}
}

func TestGrowthReport(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)

	report, err := q.Growth(ctx, alex.ID)
	if err != nil {
		t.Fatalf("growth report: %v", err)
	}
	if report.GrowTokens != 50 {
		t.Fatalf("grow tokens = %d, want 50", report.GrowTokens)
	}
	if report.Projections.OneMonth != 54 { // floor(50 * 1.02^4)
		t.Fatalf("one month projection = %d, want 54", report.Projections.OneMonth)
	}
	if report.Projections.OneYear != 140 { // floor(50 * 1.02^52)
		t.Fatalf("one year projection = %d, want 140", report.Projections.OneYear)
	}
	if len(report.WhatIfGrow) != syntheticWeeks {
		t.Fatalf("what-if length = %d, want %d", len(report.WhatIfGrow), syntheticWeeks)
	}
	for i := 1; i < len(report.WhatIfGrow); i++ {
		if report.WhatIfGrow[i] < report.WhatIfGrow[i-1] {
			t.Fatalf("what-if series decreased at %d: %v", i, report.WhatIfGrow)
		}
	}
}

func TestPendingRewardsScopedToStudent(t *testing.T) {
	q, led, _ := newFixture(t)
	ctx := context.Background()

	alex, _ := led.CreateStudent(ctx, "Alex", "1111", 0)
	jordan, _ := led.CreateStudent(ctx, "Jordan", "2222", 0)

	m1, _ := led.CreateMission(ctx, "Organize Classroom Library", "", 100, "")
	m2, _ := led.CreateMission(ctx, "Help Setup Science Lab", "", 120, "")
	led.AssignMission(ctx, m1.ID, alex.ID)
	led.AssignMission(ctx, m2.ID, jordan.ID)
	led.CompleteMission(ctx, m1.ID)
	led.CompleteMission(ctx, m2.ID)

	mine, err := q.PendingRewards(ctx, alex.ID)
	if err != nil {
		t.Fatalf("pending rewards: %v", err)
	}
	if len(mine) != 1 || mine[0].StudentID != alex.ID {
		t.Fatalf("pending rewards = %+v, want only Alex's", mine)
	}

	all, _ := q.AllPendingRewards(ctx)
	if len(all) != 2 {
		t.Fatalf("all pending rewards = %d, want 2", len(all))
	}
}

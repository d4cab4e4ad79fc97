package store

import (
	"testing"
	"time"

	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
)

func newTestStore(t *testing.T) *Store {
	s, err := Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInvestigation_SaveAndGetRoundTrips(t *testing.T) {
	s := newTestStore(t)

	result := &strategy.InvestigationResult{
		WalletAddress:    "So11111111111111111111111111111111111111112",
		OverallRiskScore: 12.5,
		RiskLevel:        "LOW",
		Degraded:         false,
		Timestamp:        time.Now().UTC().Truncate(time.Second),
	}

	id, err := s.SaveInvestigation(result)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetInvestigation(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WalletAddress != result.WalletAddress || got.RiskLevel != result.RiskLevel {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, result)
	}
}

func TestListInvestigations_FiltersByWallet(t *testing.T) {
	s := newTestStore(t)

	for _, addr := range []string{"wallet-a", "wallet-b", "wallet-a"} {
		if _, err := s.SaveInvestigation(&strategy.InvestigationResult{WalletAddress: addr, RiskLevel: "LOW"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	results, err := s.ListInvestigations("wallet-a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results for wallet-a, got %d", len(results))
	}
}

func TestAgent_UpsertIsIdempotentByID(t *testing.T) {
	s := newTestStore(t)

	rec := AgentRecord{ID: "agent-1", Name: "watcher", Strategy: "detective_investigation", State: "CREATED"}
	if err := s.UpsertAgent(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rec.State = "RUNNING"
	if err := s.UpsertAgent(rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetAgent("agent-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "RUNNING" {
		t.Fatalf("expected updated state RUNNING, got %s", got.State)
	}

	all, err := s.ListAgents()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one agent row after upsert, got %d", len(all))
	}
}

func TestAgent_DeleteRemovesAgentAndTasks(t *testing.T) {
	s := newTestStore(t)
	s.UpsertAgent(AgentRecord{ID: "agent-1", Name: "watcher", Strategy: "detective_investigation", State: "CREATED"})
	s.UpsertTask(TaskRecord{ID: "task-1", AgentID: "agent-1", WalletAddress: "w", Status: "PENDING"})

	if err := s.DeleteAgent("agent-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAgent("agent-1"); err == nil {
		t.Fatal("expected agent to be gone")
	}
	tasks, err := s.ListTasksForAgent("agent-1", "", 10)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks after agent deletion, got %d", len(tasks))
	}
}

func TestTask_ListFiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	s.UpsertAgent(AgentRecord{ID: "agent-1", Name: "watcher", Strategy: "detective_investigation", State: "CREATED"})
	s.UpsertTask(TaskRecord{ID: "task-1", AgentID: "agent-1", WalletAddress: "w", Status: "COMPLETED"})
	s.UpsertTask(TaskRecord{ID: "task-2", AgentID: "agent-1", WalletAddress: "w", Status: "PENDING"})

	completed, err := s.ListTasksForAgent("agent-1", "COMPLETED", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "task-1" {
		t.Fatalf("expected only task-1, got %+v", completed)
	}
}

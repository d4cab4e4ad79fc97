package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghost-wallet-hunter/hunter/pkg/agent"
	"github.com/ghost-wallet-hunter/hunter/pkg/store"
	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
)

func noopInvestigate(ctx context.Context, address string, subset []string, depth strategy.Depth) (*strategy.InvestigationResult, error) {
	if address == "bad-address" {
		return nil, &strategy.InvalidAddressError{Address: address, Reason: "malformed"}
	}
	return &strategy.InvestigationResult{WalletAddress: address, RiskLevel: "LOW", Timestamp: time.Now().UTC()}, nil
}

func newTestServer() *Server {
	registry := agent.NewRegistry()
	return New(registry, noopInvestigate, nil, nil, nil, false)
}

func TestCreateAndListAgents(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"name": "watcher"})
	resp, err := http.Post(srv.URL+"/api/v1/agents/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/api/v1/agents/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var list []agentView
	json.NewDecoder(resp2.Body).Decode(&list)
	if len(list) != 1 || list[0].Name != "watcher" {
		t.Fatalf("expected one listed agent named watcher, got %+v", list)
	}
}

func TestGetUnknownAgent_ReturnsNotFound(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/agents/does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var env errorEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	if env.ErrorCode != ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", env.ErrorCode)
	}
}

func TestLifecycleStartIsIdempotent(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"name": "watcher"})
	resp, _ := http.Post(srv.URL+"/api/v1/agents/", "application/json", bytes.NewReader(body))
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	id := created["id"]

	for i := 0; i < 2; i++ {
		r, err := http.Post(srv.URL+"/api/v1/agents/"+id+"/start", "application/json", nil)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if r.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on start #%d, got %d", i, r.StatusCode)
		}
	}
}

func TestInvestigate_InvalidAddressReturns400(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"wallet_address": "bad-address"})
	resp, err := http.Post(srv.URL+"/api/v1/investigate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var env errorEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	if env.ErrorCode != ErrInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %s", env.ErrorCode)
	}
}

func TestInvestigate_ValidAddressReturns200(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"wallet_address": "So11111111111111111111111111111111111111112"})
	resp, err := http.Post(srv.URL+"/api/v1/investigate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result strategy.InvestigationResult
	json.NewDecoder(resp.Body).Decode(&result)
	if result.RiskLevel != "LOW" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAuth_RejectsMissingAPIKeyWhenRequired(t *testing.T) {
	registry := agent.NewRegistry()
	s := New(registry, noopInvestigate, nil, nil, []string{"secret"}, true)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/agents/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing api key, got %d", resp.StatusCode)
	}
}

func TestCreateAgent_PlanAndExecuteStrategyDispatchesToPlanExecute(t *testing.T) {
	registry := agent.NewRegistry()
	called := make(chan string, 1)
	planExecute := func(ctx context.Context, task string) (*strategy.PlanAndExecuteResult, error) {
		called <- task
		return &strategy.PlanAndExecuteResult{Plan: []string{"1. done"}}, nil
	}
	s := New(registry, noopInvestigate, planExecute, nil, nil, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"name": "planner", "strategy": "plan_and_execute"})
	resp, _ := http.Post(srv.URL+"/api/v1/agents/", "application/json", bytes.NewReader(body))
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	id := created["id"]

	http.Post(srv.URL+"/api/v1/agents/"+id+"/start", "application/json", nil)

	webhookBody, _ := json.Marshal(map[string]string{"wallet_address": "summarize the last 24h of activity"})
	whResp, err := http.Post(srv.URL+"/api/v1/agents/"+id+"/webhook", "application/json", bytes.NewReader(webhookBody))
	if err != nil {
		t.Fatalf("webhook post: %v", err)
	}
	if whResp.StatusCode != http.StatusAccepted && whResp.StatusCode != http.StatusOK {
		t.Fatalf("expected webhook to be accepted, got %d", whResp.StatusCode)
	}

	select {
	case task := <-called:
		if task != "summarize the last 24h of activity" {
			t.Fatalf("unexpected task text: %q", task)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("plan_and_execute was never invoked")
	}
}

func TestCreateAgent_PersistsAndSurvivesRestoreAgents(t *testing.T) {
	db, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	registry := agent.NewRegistry()
	s := New(registry, noopInvestigate, nil, db, nil, false)
	srv := httptest.NewServer(s.Handler())

	body, _ := json.Marshal(map[string]string{"name": "watcher"})
	resp, _ := http.Post(srv.URL+"/api/v1/agents/", "application/json", bytes.NewReader(body))
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	id := created["id"]
	http.Post(srv.URL+"/api/v1/agents/"+id+"/start", "application/json", nil)
	srv.Close()

	// Simulate a process restart: fresh in-memory registry, same store.
	registry2 := agent.NewRegistry()
	s2 := New(registry2, noopInvestigate, nil, db, nil, false)
	if err := s2.RestoreAgents(); err != nil {
		t.Fatalf("restore agents: %v", err)
	}

	restored, ok := registry2.Get(id)
	if !ok {
		t.Fatalf("agent %s was not restored from the store", id)
	}
	if restored.Name != "watcher" {
		t.Fatalf("expected restored name watcher, got %q", restored.Name)
	}
	if restored.State() != agent.StateRunning {
		t.Fatalf("expected restored agent to resume RUNNING state, got %s", restored.State())
	}
}

func TestAuth_AcceptsValidAPIKey(t *testing.T) {
	registry := agent.NewRegistry()
	s := New(registry, noopInvestigate, nil, nil, []string{"secret"}, true)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/agents/", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d", resp.StatusCode)
	}
}

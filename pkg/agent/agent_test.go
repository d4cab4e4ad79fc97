package agent

import (
	"context"
	"testing"
	"time"
)

func noopInvestigate(ctx context.Context, task *Task) (interface{}, error) {
	return map[string]string{"wallet": task.WalletAddress}, nil
}

func blockingInvestigate(release chan struct{}) InvestigateFunc {
	return func(ctx context.Context, task *Task) (interface{}, error) {
		<-release
		return "done", nil
	}
}

func TestLifecycle_StartIsIdempotentOnRunning(t *testing.T) {
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, noopInvestigate)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("second start should be a no-op success, got %v", err)
	}
	if a.State() != StateRunning {
		t.Fatalf("expected RUNNING, got %s", a.State())
	}
	a.Stop()
}

func TestLifecycle_StoppedIsTerminal(t *testing.T) {
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, noopInvestigate)
	a.Start(context.Background())
	a.Stop()

	if err := a.Start(context.Background()); err != ErrStopped {
		t.Fatalf("expected ErrStopped after stop, got %v", err)
	}
	if err := a.Pause(); err != ErrStopped {
		t.Fatalf("expected ErrStopped for pause after stop, got %v", err)
	}
	if err := a.Resume(); err != ErrStopped {
		t.Fatalf("expected ErrStopped for resume after stop, got %v", err)
	}
	if a.State() != StateStopped {
		t.Fatal("STOPPED must never transition to anything else")
	}
}

func TestRegistry_DuplicateNamesGetDistinctIDs(t *testing.T) {
	r := NewRegistry()
	a1 := r.Create("dup", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, noopInvestigate)
	a2 := r.Create("dup", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, noopInvestigate)

	if a1.ID == a2.ID {
		t.Fatal("expected distinct ids for duplicate names")
	}
	if _, ok := r.Get(a1.ID); !ok {
		t.Fatal("a1 should be retrievable")
	}
	if _, ok := r.Get(a2.ID); !ok {
		t.Fatal("a2 should be retrievable")
	}
}

func TestEnqueue_RejectsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 1, 10, blockingInvestigate(release))
	a.Start(context.Background())
	defer close(release)

	if err := a.Enqueue(NewTask("t1", a.ID, "wallet1", nil, DepthBasic, TriggerWebhook)); err != nil {
		t.Fatalf("first enqueue should succeed, got %v", err)
	}
	time.Sleep(20 * time.Millisecond) // let the worker pick up t1, blocking on release

	if err := a.Enqueue(NewTask("t2", a.ID, "wallet2", nil, DepthBasic, TriggerWebhook)); err != nil {
		t.Fatalf("second enqueue should fit the capacity-1 queue, got %v", err)
	}
	err := a.Enqueue(NewTask("t3", a.ID, "wallet3", nil, DepthBasic, TriggerWebhook))
	if err != errQueueFull {
		t.Fatalf("expected QUEUE_FULL, got %v", err)
	}
}

func TestTaskHistory_BoundedFIFOEviction(t *testing.T) {
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 100, 3, noopInvestigate)
	a.Start(context.Background())
	defer a.Stop()

	for i := 0; i < 10; i++ {
		a.Enqueue(NewTask(string(rune('a'+i)), a.ID, "wallet", nil, DepthBasic, TriggerWebhook))
	}
	time.Sleep(50 * time.Millisecond)

	history := a.Tasks("", 0)
	if len(history) > 3 {
		t.Fatalf("expected history bounded to 3, got %d", len(history))
	}
	if history[len(history)-1].ID != string(rune('a'+9)) {
		t.Fatalf("expected most recent task retained, got %v", history[len(history)-1].ID)
	}
}

func TestGate_CooldownDropsSecondInvestigation(t *testing.T) {
	r := NewRegistry()
	trigger := TriggerConfig{Kind: TriggerPeriodic, Profile: ProfileRoutine, WalletCooldown: 24 * time.Hour}
	a := r.Create("agent1", "", "", "detective_investigation", nil, trigger, 10, 10, noopInvestigate)

	ok1, _ := a.ShouldTriggerInvestigation("wallet1", 0)
	if !ok1 {
		t.Fatal("first trigger should pass the gate")
	}
	ok2, reason := a.ShouldTriggerInvestigation("wallet1", 0)
	if ok2 {
		t.Fatal("second trigger within cooldown should be dropped")
	}
	if reason != "cooldown" {
		t.Fatalf("expected cooldown reason, got %q", reason)
	}
}

func TestGate_RateLimitPerProfile(t *testing.T) {
	r := NewRegistry()
	trigger := TriggerConfig{Kind: TriggerPeriodic, Profile: ProfileDeep, WalletCooldown: time.Nanosecond}
	a := r.Create("agent1", "", "", "detective_investigation", nil, trigger, 10, 10, noopInvestigate)

	passed := 0
	for i := 0; i < 5; i++ {
		wallet := string(rune('a' + i))
		ok, _ := a.ShouldTriggerInvestigation(wallet, 0)
		if ok {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("expected exactly 2 passes for deep profile (max 2/hr), got %d", passed)
	}
}

func TestCancelTask_PendingCancelsSynchronously(t *testing.T) {
	release := make(chan struct{})
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, blockingInvestigate(release))
	a.Start(context.Background())
	defer a.Stop()
	defer close(release) // runs before Stop, so the blocked worker can finish

	task := NewTask("t1", a.ID, "wallet1", nil, DepthBasic, TriggerWebhook)
	a.Enqueue(task)
	time.Sleep(20 * time.Millisecond) // let the worker pick up t1, blocking on release

	task2 := NewTask("t2", a.ID, "wallet2", nil, DepthBasic, TriggerWebhook)
	a.Enqueue(task2)
	if err := a.CancelTask("t2"); err != nil {
		t.Fatalf("expected pending cancel to succeed, got %v", err)
	}
}

func TestWebhook_InvalidAddressRejected(t *testing.T) {
	r := NewRegistry()
	a := r.Create("agent1", "", "", "detective_investigation", nil, TriggerConfig{}, 10, 10, noopInvestigate)
	a.Start(context.Background())
	defer a.Stop()

	_, _, _, err := a.HandleWebhook(WebhookPayload{})
	if err == nil {
		t.Fatal("expected error for missing wallet address")
	}
}

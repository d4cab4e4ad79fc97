// Package agent implements the Agent Lifecycle (C8): CRUD, the
// CREATED→RUNNING↔PAUSED→STOPPED state machine, trigger evaluation, a
// bounded per-agent task queue with a single draining worker, and bounded
// task history. Lifecycle state is guarded by a per-agent mutex, and each
// agent has its own queue and history.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is a position in the agent lifecycle state machine.
type State string

const (
	StateCreated State = "CREATED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
)

// ErrStopped is returned by Start, Pause, Resume and enqueue operations on
// a terminally stopped agent; Stop on a stopped agent returns nil.
var ErrStopped = fmt.Errorf("agent is stopped")

// TriggerKind distinguishes the two ways a task can be enqueued.
type TriggerKind string

const (
	TriggerWebhook  TriggerKind = "webhook"
	TriggerPeriodic TriggerKind = "periodic"
)

// TriggerConfig configures both gate behavior and, for periodic triggers,
// the schedule itself.
type TriggerConfig struct {
	Kind                TriggerKind
	Profile             Profile
	WalletCooldown      time.Duration
	MinPatternCacheSize int
	CronSpec            string // only meaningful for TriggerPeriodic
}

// InvestigateFunc is the strategy callback an agent's worker invokes per
// task; injected so this package has no direct dependency on the strategy
// engine's concrete type.
type InvestigateFunc func(ctx context.Context, task *Task) (result interface{}, err error)

// Agent is one configured, independently-scheduled investigation runner.
type Agent struct {
	ID            string
	Name          string
	Description   string
	Blueprint     string
	Strategy      string
	ToolNames     []string
	TriggerConfig TriggerConfig
	CreatedAt     time.Time

	investigate InvestigateFunc

	mu    sync.Mutex
	state State
	gate  *gate

	queue      chan *Task
	queueCap   int
	maxHistory int
	history    []*Task
	byID       map[string]*Task

	workerStarted bool
	workerDone    chan struct{}
	logLines      []string

	onTaskUpdate func(*Task)
}

// SetTaskObserver registers a callback invoked after every task status
// transition (enqueued, running, completed, failed, cancelled), for a
// caller that wants to mirror task state into a store. Overwrites any
// previously set observer; intended to be called once, right after
// creation, before the agent is started.
func (a *Agent) SetTaskObserver(fn func(*Task)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onTaskUpdate = fn
}

func (a *Agent) notifyTask(task *Task) {
	a.mu.Lock()
	fn := a.onTaskUpdate
	a.mu.Unlock()
	if fn != nil {
		fn(task)
	}
}

type cancelToken struct {
	mu        sync.Mutex
	cancelled bool
}

func (c *cancelToken) set() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

func (c *cancelToken) isSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// newAgent builds an agent in CREATED state. Not exported; use Registry.Create.
func newAgent(id, name, description, blueprint, strategyName string, tools []string, trigger TriggerConfig, queueCap, maxHistory int, fn InvestigateFunc) *Agent {
	if queueCap <= 0 {
		queueCap = 100
	}
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Agent{
		ID:            id,
		Name:          name,
		Description:   description,
		Blueprint:     blueprint,
		Strategy:      strategyName,
		ToolNames:     tools,
		TriggerConfig: trigger,
		CreatedAt:     time.Now().UTC(),
		investigate:   fn,
		state:         StateCreated,
		gate:          newGate(),
		queue:         make(chan *Task, queueCap),
		queueCap:      queueCap,
		maxHistory:    maxHistory,
		byID:          make(map[string]*Task),
	}
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start transitions CREATED|PAUSED->RUNNING. A second start on a RUNNING
// agent is a no-op success, per spec.md §4.8.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateStopped:
		return ErrStopped
	case StateRunning:
		return nil
	}
	a.state = StateRunning
	if !a.workerStarted {
		a.workerStarted = true
		a.workerDone = make(chan struct{})
		go a.runWorker(ctx)
	}
	return nil
}

// Pause transitions RUNNING->PAUSED. Idempotent on an already-paused agent.
func (a *Agent) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateStopped:
		return ErrStopped
	case StateCreated:
		return fmt.Errorf("agent has not been started")
	case StatePaused:
		return nil
	}
	a.state = StatePaused
	return nil
}

// Resume transitions PAUSED->RUNNING. Idempotent on an already-running agent.
func (a *Agent) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateStopped:
		return ErrStopped
	case StateCreated:
		return fmt.Errorf("agent has not been started")
	case StateRunning:
		return nil
	}
	a.state = StateRunning
	return nil
}

// Stop transitions CREATED|RUNNING|PAUSED->STOPPED. Terminal; idempotent.
func (a *Agent) Stop() error {
	a.mu.Lock()
	if a.state == StateStopped {
		a.mu.Unlock()
		return nil
	}
	a.state = StateStopped
	started := a.workerStarted
	done := a.workerDone
	a.mu.Unlock()

	close(a.queue)
	if started {
		<-done
	}
	return nil
}

func (a *Agent) appendLog(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logLines = append(a.logLines, fmt.Sprintf(format, args...))
	if len(a.logLines) > 200 {
		a.logLines = a.logLines[len(a.logLines)-200:]
	}
}

// Logs returns the agent's recent log entries, oldest first.
func (a *Agent) Logs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.logLines))
	copy(out, a.logLines)
	return out
}

func (a *Agent) runWorker(ctx context.Context) {
	defer close(a.workerDone)
	for task := range a.queue {
		a.mu.Lock()
		state := a.state
		a.mu.Unlock()
		if state != StateRunning {
			task.setStatus(TaskCancelled)
			a.appendLog("task %s dropped: agent not running", task.ID)
			a.notifyTask(task)
			continue
		}

		task.setStatus(TaskRunning)
		a.notifyTask(task)
		result, err := a.investigate(ctx, task)
		if task.cancelRequested() {
			task.setStatus(TaskCancelled)
			a.appendLog("task %s cancelled mid-run", task.ID)
			a.notifyTask(task)
			continue
		}
		if err != nil {
			task.setError(err.Error())
			a.appendLog("task %s failed: %v", task.ID, err)
			a.notifyTask(task)
			continue
		}
		task.setResult(result)
		a.appendLog("task %s completed", task.ID)
		a.notifyTask(task)
	}
}

// ShouldTriggerInvestigation evaluates the cooldown/rate/pattern-cache gate
// for a candidate wallet under this agent's trigger profile, per spec.md
// §4.8. patternCacheSize is the caller-observed current size.
func (a *Agent) ShouldTriggerInvestigation(wallet string, patternCacheSize int) (bool, string) {
	cooldown := a.TriggerConfig.WalletCooldown
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return a.gate.evaluate(wallet, a.TriggerConfig.Profile, cooldown, patternCacheSize, a.TriggerConfig.MinPatternCacheSize)
}

var errQueueFull = fmt.Errorf("QUEUE_FULL")

// ErrQueueFull is returned by Enqueue when the bounded task queue is full.
func ErrQueueFull() error { return errQueueFull }

// Enqueue adds a task to the FIFO queue, rejecting with QUEUE_FULL if the
// queue is at capacity, and recording it in the bounded task history.
func (a *Agent) Enqueue(task *Task) error {
	a.mu.Lock()
	if a.state == StateStopped {
		a.mu.Unlock()
		return ErrStopped
	}
	a.byID[task.ID] = task
	a.history = append(a.history, task)
	if len(a.history) > a.maxHistory {
		a.history = a.history[len(a.history)-a.maxHistory:]
	}
	a.mu.Unlock()

	select {
	case a.queue <- task:
		a.notifyTask(task)
		return nil
	default:
		task.setStatus(TaskCancelled)
		task.setError("QUEUE_FULL")
		log.Warn().Str("agent", a.ID).Str("task", task.ID).Msg("task queue full")
		a.notifyTask(task)
		return errQueueFull
	}
}

// CancelTask transitions PENDING->CANCELLED synchronously, or flags a
// RUNNING task for cooperative cancellation.
func (a *Agent) CancelTask(taskID string) error {
	a.mu.Lock()
	task, ok := a.byID[taskID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %q not found", taskID)
	}

	switch task.Status() {
	case TaskPending:
		task.setStatus(TaskCancelled)
		return nil
	case TaskRunning:
		task.requestCancel()
		task.setStatus(TaskCancelling)
		return nil
	default:
		return fmt.Errorf("TASK_NOT_CANCELLABLE")
	}
}

// Tasks returns the bounded task history, optionally filtered by status and
// limited to the most recent `limit` entries (0 = all).
func (a *Agent) Tasks(statusFilter string, limit int) []*Task {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*Task
	for _, t := range a.history {
		if statusFilter != "" && string(t.Status()) != statusFilter {
			continue
		}
		out = append(out, t)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// TaskByID looks up a single task by id.
func (a *Agent) TaskByID(id string) (*Task, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.byID[id]
	return t, ok
}

package agent

import (
	"sync"
	"time"
)

// TaskStatus is the lifecycle status of one InvestigationTask.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskRunning    TaskStatus = "RUNNING"
	TaskCancelling TaskStatus = "CANCELLING"
	TaskCancelled  TaskStatus = "CANCELLED"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Depth mirrors strategy.Depth without introducing a dependency on that
// package from this one.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthStandard      Depth = "standard"
	DepthComprehensive Depth = "comprehensive"
)

// Task is one InvestigationTask, owned by exactly one agent run and never
// mutated after reaching a terminal status.
type Task struct {
	ID              string
	AgentID         string
	WalletAddress   string
	DetectiveSubset []string
	Depth           Depth
	CreatedAt       time.Time
	Trigger         TriggerKind

	mu     sync.Mutex
	status TaskStatus
	result interface{}
	errMsg string
	cancel cancelToken
}

// NewTask builds a task in PENDING status.
func NewTask(id, agentID, wallet string, subset []string, depth Depth, trigger TriggerKind) *Task {
	return &Task{
		ID:              id,
		AgentID:         agentID,
		WalletAddress:   wallet,
		DetectiveSubset: subset,
		Depth:           depth,
		CreatedAt:       time.Now().UTC(),
		Trigger:         trigger,
		status:          TaskPending,
	}
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Task) setStatus(s TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isTerminal(t.status) {
		return
	}
	t.status = s
}

func (t *Task) setResult(r interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isTerminal(t.status) {
		return
	}
	t.result = r
	t.status = TaskCompleted
}

func (t *Task) setError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isTerminal(t.status) {
		return
	}
	t.errMsg = msg
	t.status = TaskFailed
}

// Result returns the task's result and error message (one of which is
// meaningful once the task reaches a terminal status).
func (t *Task) Result() (interface{}, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.errMsg
}

func (t *Task) requestCancel() {
	t.cancel.set()
}

func (t *Task) cancelRequested() bool {
	return t.cancel.isSet()
}

func isTerminal(s TaskStatus) bool {
	switch s {
	case TaskCancelled, TaskCompleted, TaskFailed:
		return true
	default:
		return false
	}
}

package agent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Registry is the concurrency-safe agent map, per spec.md §5: one mutex per
// agent plus a registry-level mutex for creation/deletion.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*Agent
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Create builds and registers a new agent in CREATED state. Creating two
// agents with the same name yields distinct ids; both remain retrievable.
func (r *Registry) Create(name, description, blueprint, strategyName string, tools []string, trigger TriggerConfig, queueCap, maxHistory int, fn InvestigateFunc) *Agent {
	a := newAgent(newID(), name, description, blueprint, strategyName, tools, trigger, queueCap, maxHistory, fn)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return a
}

// Restore re-registers a previously persisted agent under its original id
// and replays it into the given lifecycle state, for use at startup once a
// store's agent records have been loaded. state CREATED leaves the agent
// untouched; RUNNING and PAUSED start the worker goroutine first.
func (r *Registry) Restore(id, name, description, blueprint, strategyName string, tools []string, trigger TriggerConfig, queueCap, maxHistory int, state State, fn InvestigateFunc) *Agent {
	a := newAgent(id, name, description, blueprint, strategyName, tools, trigger, queueCap, maxHistory, fn)

	r.mu.Lock()
	r.agents[a.ID] = a
	r.mu.Unlock()

	switch state {
	case StateRunning:
		_ = a.Start(context.Background())
	case StatePaused:
		_ = a.Start(context.Background())
		_ = a.Pause()
	case StateStopped:
		_ = a.Stop()
	}
	return a
}

// Get looks up an agent by id.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns every registered agent.
func (r *Registry) List() []*Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Delete stops (if needed) and removes an agent from the registry.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	a, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
	}
	r.mu.Unlock()

	if ok {
		_ = a.Stop()
	}
	return ok
}

func newID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Package httpapi implements the HTTP Boundary (C10): the versioned
// /api/v1 surface over the agent registry and the one-shot investigation
// endpoint. Routing and the middleware chain follow this codebase's
// stdlib net/http.ServeMux + cors-wrapper idiom rather than reaching for a
// router framework.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ghost-wallet-hunter/hunter/pkg/agent"
	"github.com/ghost-wallet-hunter/hunter/pkg/store"
	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
)

// ErrorCode is one of the stable error identifiers of spec.md §7.
type ErrorCode string

const (
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrAgentActionFailed   ErrorCode = "AGENT_ACTION_FAILED"
	ErrAgentNotReady       ErrorCode = "AGENT_NOT_READY"
	ErrTaskNotCancellable  ErrorCode = "TASK_NOT_CANCELLABLE"
	ErrTaskExecutionFailed ErrorCode = "TASK_EXECUTION_FAILED"
	ErrQueueFull           ErrorCode = "QUEUE_FULL"
	ErrExternalService     ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrServer              ErrorCode = "SERVER_ERROR"
)

// errorEnvelope is the wire shape of every non-2xx response.
type errorEnvelope struct {
	Error     string                 `json:"error"`
	ErrorCode ErrorCode              `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

var statusForCode = map[ErrorCode]int{
	ErrInvalidInput:        http.StatusBadRequest,
	ErrNotFound:            http.StatusNotFound,
	ErrAgentActionFailed:   http.StatusConflict,
	ErrAgentNotReady:       http.StatusConflict,
	ErrTaskNotCancellable:  http.StatusConflict,
	ErrTaskExecutionFailed: http.StatusInternalServerError,
	ErrQueueFull:           http.StatusTooManyRequests,
	ErrExternalService:     http.StatusServiceUnavailable,
	ErrServer:              http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code ErrorCode, msg string) {
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorEnvelope{Error: msg, ErrorCode: code})
}

// InvestigateFn runs a one-shot investigation outside any agent's task
// queue, used by POST /investigate.
type InvestigateFn func(ctx context.Context, address string, subset []string, depth strategy.Depth) (*strategy.InvestigationResult, error)

// PlanExecuteFn runs the plan_and_execute strategy for a free-form task
// string. Agents created with strategy "plan_and_execute" dispatch here
// instead of through InvestigateFn; the task's WalletAddress field carries
// the free-form task text since pkg/agent's Task has no separate field for
// it.
type PlanExecuteFn func(ctx context.Context, task string) (*strategy.PlanAndExecuteResult, error)

// Server wires the agent registry and a one-shot investigation function
// behind the versioned HTTP surface.
type Server struct {
	Registry       *agent.Registry
	Investigate    InvestigateFn
	PlanExecute    PlanExecuteFn
	Store          *store.Store // optional; nil means agent/task state is memory-only
	APIKeys        map[string]bool
	RequireAPIKey  bool
	AllowedOrigins string // "*" or a concrete origin; empty means "*"
}

// New builds a Server. apiKeys may be empty when requireAPIKey is false.
// planExecute may be nil; agents created with strategy "plan_and_execute"
// then fail their tasks with a "no strategy engine configured" error rather
// than panicking.
// db may be nil, in which case agent/task state lives only in the
// in-memory registry and does not survive a restart.
func New(registry *agent.Registry, investigate InvestigateFn, planExecute PlanExecuteFn, db *store.Store, apiKeys []string, requireAPIKey bool) *Server {
	keys := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		keys[k] = true
	}
	return &Server{Registry: registry, Investigate: investigate, PlanExecute: planExecute, Store: db, APIKeys: keys, RequireAPIKey: requireAPIKey, AllowedOrigins: "*"}
}

// persistAgent mirrors one agent's current configuration and lifecycle
// state into the store, if one is configured.
func (s *Server) persistAgent(a *agent.Agent) {
	if s.Store == nil {
		return
	}
	triggerJSON, err := json.Marshal(a.TriggerConfig)
	if err != nil {
		log.Warn().Err(err).Str("agent", a.ID).Msg("failed to marshal trigger config for persistence")
		return
	}
	rec := store.AgentRecord{
		ID:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Blueprint:     a.Blueprint,
		Strategy:      a.Strategy,
		Tools:         a.ToolNames,
		TriggerConfig: string(triggerJSON),
		State:         string(a.State()),
	}
	if err := s.Store.UpsertAgent(rec); err != nil {
		log.Warn().Err(err).Str("agent", a.ID).Msg("failed to persist agent")
	}
}

// persistTask mirrors one task's current status/result into the store, if
// one is configured. Registered as the agent's task observer.
func (s *Server) persistTask(t *agent.Task) {
	if s.Store == nil {
		return
	}
	result, errMsg := t.Result()
	resultJSON := "{}"
	if result != nil {
		if blob, err := json.Marshal(result); err == nil {
			resultJSON = string(blob)
		}
	}
	rec := store.TaskRecord{
		ID:              t.ID,
		AgentID:         t.AgentID,
		WalletAddress:   t.WalletAddress,
		DetectiveSubset: t.DetectiveSubset,
		Depth:           string(t.Depth),
		Trigger:         string(t.Trigger),
		Status:          string(t.Status()),
		Result:          resultJSON,
		Error:           errMsg,
	}
	if err := s.Store.UpsertTask(rec); err != nil {
		log.Warn().Err(err).Str("task", t.ID).Msg("failed to persist task")
	}
}

// RestoreAgents rebuilds the registry from persisted agent records at
// startup, so agents created via POST /api/v1/agents/ survive a restart.
// Each record's strategy name selects whether PlanExecute or Investigate is
// wired in, through the same adaptInvestigate dispatch as agent creation.
func (s *Server) RestoreAgents() error {
	if s.Store == nil {
		return nil
	}
	records, err := s.Store.ListAgents()
	if err != nil {
		return fmt.Errorf("list persisted agents: %w", err)
	}
	for _, rec := range records {
		var trigger agent.TriggerConfig
		_ = json.Unmarshal([]byte(rec.TriggerConfig), &trigger)
		a := s.Registry.Restore(rec.ID, rec.Name, rec.Description, rec.Blueprint, rec.Strategy, rec.Tools, trigger, 0, 0, agent.State(rec.State), s.adaptInvestigate(rec.Strategy))
		a.SetTaskObserver(s.persistTask)
	}
	return nil
}

// Handler builds the full mux with CORS, panic-recovery and auth applied in
// that order (outermost first), matching this codebase's cors(handler)
// wrapping style.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/agents/", s.wrap(s.handleAgentCollectionOrItem))
	mux.HandleFunc("/api/v1/investigate", s.wrap(s.handleInvestigate))

	return mux
}

func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	return s.cors(s.recoverPanics(s.authenticate(h)))
}

func (s *Server) cors(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := s.AllowedOrigins
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h(w, r)
	}
}

func (s *Server) authenticate(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.RequireAPIKey {
			h(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" || !s.APIKeys[key] {
			writeError(w, ErrInvalidInput, "missing or invalid X-API-Key")
			return
		}
		h(w, r)
	}
}

func (s *Server) recoverPanics(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered panic in http handler")
				writeError(w, ErrServer, "internal server error")
			}
		}()
		h(w, r)
	}
}

// agentView is the list/status wire shape.
type agentView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

func toAgentView(a *agent.Agent) agentView {
	return agentView{ID: a.ID, Name: a.Name, Type: a.Strategy, Status: string(a.State())}
}

// handleAgentCollectionOrItem dispatches every /api/v1/agents/... route by
// parsing the trailing path segments, the way this codebase's single
// prefix-registered handler inspects r.URL.Path internally.
func (s *Server) handleAgentCollectionOrItem(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/v1/agents/")
	segments := []string{}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.listAgents(w, r)
		case http.MethodPost:
			s.createAgent(w, r)
		default:
			writeError(w, ErrInvalidInput, "method not allowed")
		}
		return
	}

	id := segments[0]
	a, ok := s.Registry.Get(id)
	if !ok {
		writeError(w, ErrNotFound, fmt.Sprintf("agent %q not found", id))
		return
	}

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, toAgentView(a))
		case http.MethodPut:
			s.updateAgent(w, r, a)
		case http.MethodDelete:
			s.Registry.Delete(id)
			if s.Store != nil {
				if err := s.Store.DeleteAgent(id); err != nil {
					log.Warn().Err(err).Str("agent", id).Msg("failed to delete persisted agent")
				}
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted", "agent_id": id})
		default:
			writeError(w, ErrInvalidInput, "method not allowed")
		}
		return
	}

	switch segments[1] {
	case "start", "stop", "pause", "resume":
		s.lifecycle(w, r, a, segments[1])
	case "webhook":
		s.webhook(w, r, a)
	case "logs":
		writeJSON(w, http.StatusOK, a.Logs())
	case "tasks":
		if len(segments) == 2 {
			s.listTasks(w, r, a)
			return
		}
		taskID := segments[2]
		if len(segments) == 4 && segments[3] == "cancel" {
			s.cancelTask(w, a, taskID)
			return
		}
		s.getTask(w, a, taskID)
	default:
		writeError(w, ErrNotFound, "unknown agent sub-route")
	}
}

type createAgentRequest struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Blueprint      string              `json:"blueprint"`
	Strategy       string              `json:"strategy"`
	Tools          []string            `json:"tools"`
	TriggerKind    string              `json:"trigger_kind"`
	Profile        string              `json:"profile"`
	CooldownHours  float64             `json:"wallet_cooldown_hours"`
	CronSpec       string              `json:"cron_spec"`
	QueueCapacity  int                 `json:"queue_capacity"`
	MaxTaskHistory int                 `json:"max_task_history"`
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.Registry.List()
	out := make([]agentView, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAgentView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidInput, "malformed request body")
		return
	}
	if req.Name == "" {
		writeError(w, ErrInvalidInput, "name is required")
		return
	}
	if req.Strategy == "" {
		req.Strategy = "detective_investigation"
	}

	trigger := agent.TriggerConfig{
		Kind:           agent.TriggerKind(req.TriggerKind),
		Profile:        agent.Profile(req.Profile),
		WalletCooldown: time.Duration(req.CooldownHours * float64(time.Hour)),
		CronSpec:       req.CronSpec,
	}
	if trigger.Kind == "" {
		trigger.Kind = agent.TriggerWebhook
	}

	a := s.Registry.Create(req.Name, req.Description, req.Blueprint, req.Strategy, req.Tools, trigger, req.QueueCapacity, req.MaxTaskHistory, s.adaptInvestigate(req.Strategy))
	a.SetTaskObserver(s.persistTask)
	s.persistAgent(a)
	writeJSON(w, http.StatusCreated, map[string]string{"id": a.ID, "name": a.Name, "status": string(a.State())})
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request, a *agent.Agent) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidInput, "malformed request body")
		return
	}
	a.Description = req.Description
	writeJSON(w, http.StatusOK, toAgentView(a))
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, a *agent.Agent, action string) {
	var err error
	switch action {
	case "start":
		err = a.Start(r.Context())
	case "stop":
		err = a.Stop()
	case "pause":
		err = a.Pause()
	case "resume":
		err = a.Resume()
	}
	if err == agent.ErrStopped {
		writeError(w, ErrAgentActionFailed, "agent is stopped")
		return
	}
	if err != nil {
		writeError(w, ErrAgentActionFailed, err.Error())
		return
	}
	s.persistAgent(a)
	writeJSON(w, http.StatusOK, map[string]string{"new_status": string(a.State())})
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request, a *agent.Agent) {
	var payload agent.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, ErrInvalidInput, "malformed request body")
		return
	}
	taskID, dropped, reason, err := a.HandleWebhook(payload)
	if err == agent.ErrStopped {
		writeError(w, ErrAgentNotReady, "agent is stopped")
		return
	}
	if err != nil {
		if err.Error() == string(ErrQueueFull) {
			writeError(w, ErrQueueFull, "task queue is full")
			return
		}
		if err.Error() == string(ErrAgentNotReady) {
			writeError(w, ErrAgentNotReady, "agent is not running")
			return
		}
		writeError(w, ErrInvalidInput, err.Error())
		return
	}
	if dropped {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"dropped": true, "reason": reason})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, a *agent.Agent) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	tasks := a.Tasks(q.Get("status_filter"), limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": toTaskViews(tasks)})
}

func (s *Server) getTask(w http.ResponseWriter, a *agent.Agent, taskID string) {
	t, ok := a.TaskByID(taskID)
	if !ok {
		writeError(w, ErrNotFound, fmt.Sprintf("task %q not found", taskID))
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(t))
}

func (s *Server) cancelTask(w http.ResponseWriter, a *agent.Agent, taskID string) {
	if err := a.CancelTask(taskID); err != nil {
		if err.Error() == "TASK_NOT_CANCELLABLE" {
			writeError(w, ErrTaskNotCancellable, err.Error())
			return
		}
		writeError(w, ErrNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cancelled", "task_id": taskID})
}

type taskView struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func toTaskView(t *agent.Task) taskView {
	result, errMsg := t.Result()
	return taskView{ID: t.ID, Status: string(t.Status()), Result: result, Error: errMsg}
}

func toTaskViews(tasks []*agent.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskView(t))
	}
	return out
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, ErrInvalidInput, "POST only")
		return
	}
	var req struct {
		WalletAddress   string   `json:"wallet_address"`
		DetectiveSubset []string `json:"detective_subset"`
		Depth           string   `json:"depth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidInput, "malformed request body")
		return
	}
	depth := strategy.Depth(req.Depth)
	if depth == "" {
		depth = strategy.DepthBasic
	}

	result, err := s.Investigate(r.Context(), req.WalletAddress, req.DetectiveSubset, depth)
	if err != nil {
		if _, ok := err.(*strategy.InvalidAddressError); ok {
			writeError(w, ErrInvalidInput, err.Error())
			return
		}
		writeError(w, ErrExternalService, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// adaptInvestigate bridges the package-level InvestigateFn/PlanExecuteFn
// into the shape pkg/agent expects for its per-task worker callback,
// dispatching on the agent's configured strategy name.
func (s *Server) adaptInvestigate(strategyName string) agent.InvestigateFunc {
	if strategyName == "plan_and_execute" {
		return func(ctx context.Context, task *agent.Task) (interface{}, error) {
			if s.PlanExecute == nil {
				return nil, fmt.Errorf("plan_and_execute: no strategy engine configured")
			}
			return s.PlanExecute(ctx, task.WalletAddress)
		}
	}
	return func(ctx context.Context, task *agent.Task) (interface{}, error) {
		return s.Investigate(ctx, task.WalletAddress, task.DetectiveSubset, strategy.Depth(task.Depth))
	}
}

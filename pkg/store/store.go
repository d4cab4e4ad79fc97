// Package store implements the Persistence component (C11): a narrow
// SQLite-backed interface for investigations and agents/tasks, grounded on
// this codebase's schema-constant-plus-database/sql idiom.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
)

const schema = `
CREATE TABLE IF NOT EXISTS investigations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet_address TEXT NOT NULL,
    overall_risk_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    degraded BOOLEAN DEFAULT FALSE,
    result TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agents (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    blueprint TEXT,
    strategy TEXT NOT NULL,
    tools TEXT DEFAULT '[]',
    trigger_config TEXT DEFAULT '{}',
    state TEXT NOT NULL DEFAULT 'CREATED',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL REFERENCES agents(id),
    wallet_address TEXT NOT NULL,
    detective_subset TEXT DEFAULT '[]',
    depth TEXT,
    trigger TEXT,
    status TEXT NOT NULL DEFAULT 'PENDING',
    result TEXT DEFAULT '{}',
    error TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_investigations_wallet ON investigations(wallet_address);
CREATE INDEX IF NOT EXISTS idx_investigations_created ON investigations(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_agent ON tasks(agent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// Store is the concrete SQLite persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- Investigations ----

// SaveInvestigation persists a completed investigation result; returns the
// assigned row id.
func (s *Store) SaveInvestigation(result *strategy.InvestigationResult) (int64, error) {
	blob, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO investigations (wallet_address, overall_risk_score, risk_level, degraded, result)
		 VALUES (?, ?, ?, ?, ?)`,
		result.WalletAddress, result.OverallRiskScore, result.RiskLevel, result.Degraded, string(blob))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetInvestigation looks up one persisted investigation by row id.
func (s *Store) GetInvestigation(id int64) (*strategy.InvestigationResult, error) {
	var blob string
	err := s.db.QueryRow(`SELECT result FROM investigations WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return nil, err
	}
	var result strategy.InvestigationResult
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// ListInvestigations returns the most recent investigations for a wallet
// (all wallets if address is empty), newest first, bounded by limit.
func (s *Store) ListInvestigations(address string, limit int) ([]*strategy.InvestigationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if address == "" {
		rows, err = s.db.Query(`SELECT result FROM investigations ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(`SELECT result FROM investigations WHERE wallet_address = ? ORDER BY created_at DESC LIMIT ?`, address, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*strategy.InvestigationResult
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var result strategy.InvestigationResult
		if err := json.Unmarshal([]byte(blob), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, &result)
	}
	return out, rows.Err()
}

// ---- Agents ----

// AgentRecord is the persisted shape of one agent's configuration and
// lifecycle state.
type AgentRecord struct {
	ID            string
	Name          string
	Description   string
	Blueprint     string
	Strategy      string
	Tools         []string
	TriggerConfig string // JSON blob; decoded by the agent package
	State         string
	CreatedAt     time.Time
}

// UpsertAgent inserts or updates one agent record.
func (s *Store) UpsertAgent(a AgentRecord) error {
	toolsJSON, err := json.Marshal(a.Tools)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO agents (id, name, description, blueprint, strategy, tools, trigger_config, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, description=excluded.description, blueprint=excluded.blueprint,
		   strategy=excluded.strategy, tools=excluded.tools, trigger_config=excluded.trigger_config,
		   state=excluded.state`,
		a.ID, a.Name, a.Description, a.Blueprint, a.Strategy, string(toolsJSON), a.TriggerConfig, a.State)
	return err
}

// GetAgent looks up one agent record by id.
func (s *Store) GetAgent(id string) (*AgentRecord, error) {
	var a AgentRecord
	var toolsJSON string
	err := s.db.QueryRow(
		`SELECT id, name, description, blueprint, strategy, tools, trigger_config, state, created_at
		 FROM agents WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Blueprint, &a.Strategy, &toolsJSON, &a.TriggerConfig, &a.State, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(toolsJSON), &a.Tools)
	return &a, nil
}

// ListAgents returns every persisted agent record.
func (s *Store) ListAgents() ([]AgentRecord, error) {
	rows, err := s.db.Query(`SELECT id, name, description, blueprint, strategy, tools, trigger_config, state, created_at FROM agents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentRecord
	for rows.Next() {
		var a AgentRecord
		var toolsJSON string
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Blueprint, &a.Strategy, &toolsJSON, &a.TriggerConfig, &a.State, &a.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(toolsJSON), &a.Tools)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAgent removes one persisted agent record (and its tasks).
func (s *Store) DeleteAgent(id string) error {
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE agent_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	return err
}

// ---- Tasks ----

// TaskRecord is the persisted shape of one InvestigationTask.
type TaskRecord struct {
	ID              string
	AgentID         string
	WalletAddress   string
	DetectiveSubset []string
	Depth           string
	Trigger         string
	Status          string
	Result          string
	Error           string
	CreatedAt       time.Time
}

// UpsertTask inserts or updates one task record.
func (s *Store) UpsertTask(t TaskRecord) error {
	subsetJSON, err := json.Marshal(t.DetectiveSubset)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks (id, agent_id, wallet_address, detective_subset, depth, trigger, status, result, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, result=excluded.result, error=excluded.error`,
		t.ID, t.AgentID, t.WalletAddress, string(subsetJSON), t.Depth, t.Trigger, t.Status, t.Result, t.Error)
	return err
}

// ListTasksForAgent returns an agent's persisted task history, optionally
// filtered by status, newest first.
func (s *Store) ListTasksForAgent(agentID, statusFilter string, limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if statusFilter == "" {
		rows, err = s.db.Query(`SELECT id, agent_id, wallet_address, detective_subset, depth, trigger, status, result, error, created_at
			FROM tasks WHERE agent_id = ? ORDER BY created_at DESC LIMIT ?`, agentID, limit)
	} else {
		rows, err = s.db.Query(`SELECT id, agent_id, wallet_address, detective_subset, depth, trigger, status, result, error, created_at
			FROM tasks WHERE agent_id = ? AND status = ? ORDER BY created_at DESC LIMIT ?`, agentID, statusFilter, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var subsetJSON string
		if err := rows.Scan(&t.ID, &t.AgentID, &t.WalletAddress, &subsetJSON, &t.Depth, &t.Trigger, &t.Status, &t.Result, &t.Error, &t.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(subsetJSON), &t.DetectiveSubset)
		out = append(out, t)
	}
	return out, rows.Err()
}

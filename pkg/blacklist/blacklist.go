// Package blacklist implements the Blacklist Checker (C4): an in-memory
// set primed from a JSON cache file, with an optional async refresh from a
// Solscan-style reputation collaborator.
package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the verdict for a single address lookup.
type Status string

const (
	StatusClean   Status = "clean"
	StatusFlagged Status = "flagged"
	StatusUnknown Status = "unknown"
)

// Result is the synchronous, non-blocking answer to is_blacklisted.
type Result struct {
	Status     Status
	Sources    []string
	Confidence float64
	Reason     string
}

type cacheFile struct {
	SavedAt   time.Time `json:"saved_at"`
	Count     int       `json:"count"`
	Addresses []string  `json:"addresses"`
}

// Checker holds the in-memory blacklist set behind a reader-writer lock;
// the refresher and Add are the only writers.
type Checker struct {
	cachePath     string
	ttl           time.Duration
	solscanAPIKey string
	httpClient    *http.Client

	mu        sync.RWMutex
	set       map[string]bool
	primedAt  time.Time
}

// New primes the checker from cachePath if the file exists and is younger
// than ttl; a missing or malformed file is equivalent to an empty cache.
func New(cachePath string, ttl time.Duration, solscanAPIKey string) *Checker {
	c := &Checker{
		cachePath:     cachePath,
		ttl:           ttl,
		solscanAPIKey: solscanAPIKey,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		set:           make(map[string]bool),
	}
	c.loadFromDisk()
	return c
}

func (c *Checker) loadFromDisk() {
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return
	}
	var cf cacheFile
	if json.Unmarshal(data, &cf) != nil {
		return
	}
	if time.Since(cf.SavedAt) >= c.ttl {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range cf.Addresses {
		c.set[a] = true
	}
	c.primedAt = cf.SavedAt
}

// IsBlacklisted is the synchronous lookup path. It never blocks on the
// network — a stale or empty set is acceptable, per spec.md §4.4.
func (c *Checker) IsBlacklisted(addr string) Result {
	c.mu.RLock()
	flagged := c.set[addr]
	primed := !c.primedAt.IsZero()
	c.mu.RUnlock()

	if flagged {
		return Result{Status: StatusFlagged, Sources: []string{"cache"}, Confidence: 1.0}
	}
	if !primed {
		return Result{Status: StatusUnknown, Confidence: 0, Reason: "blacklist cache not primed"}
	}
	return Result{Status: StatusClean, Confidence: 1.0}
}

// Add flags an address directly (e.g. an operator-curated entry) without
// waiting for a refresh cycle.
func (c *Checker) Add(addr string) {
	c.mu.Lock()
	c.set[addr] = true
	c.mu.Unlock()
}

// RefreshAsync queries the configured reputation collaborator for each
// address and merges flagged ones into the set, then persists atomically.
// Failures are logged and otherwise ignored — this path must never block a
// caller of IsBlacklisted.
func (c *Checker) RefreshAsync(ctx context.Context, candidates []string) {
	go func() {
		if c.solscanAPIKey == "" {
			return
		}
		var newlyFlagged []string
		for _, addr := range candidates {
			if c.lookupSolscan(ctx, addr) {
				newlyFlagged = append(newlyFlagged, addr)
			}
		}
		if len(newlyFlagged) == 0 {
			return
		}

		c.mu.Lock()
		for _, a := range newlyFlagged {
			c.set[a] = true
		}
		c.mu.Unlock()

		if err := c.persist(); err != nil {
			log.Warn().Err(err).Msg("blacklist cache persist failed")
		}
	}()
}

func (c *Checker) lookupSolscan(ctx context.Context, address string) bool {
	url := fmt.Sprintf("https://pro-api.solscan.io/v2.0/account/%s", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("token", c.solscanAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var data struct {
		Data struct {
			Label string `json:"account_label"`
		} `json:"data"`
	}
	if json.NewDecoder(resp.Body).Decode(&data) != nil {
		return false
	}
	label := strings.ToLower(data.Data.Label)
	return strings.Contains(label, "scam") || strings.Contains(label, "hack") ||
		strings.Contains(label, "phish") || strings.Contains(label, "exploit")
}

// persist writes the cache file atomically via write-temp-rename.
func (c *Checker) persist() error {
	c.mu.RLock()
	addresses := make([]string, 0, len(c.set))
	for a := range c.set {
		addresses = append(addresses, a)
	}
	c.mu.RUnlock()

	cf := cacheFile{SavedAt: time.Now().UTC(), Count: len(addresses), Addresses: addresses}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.cachePath)
	tmp, err := os.CreateTemp(dir, ".blacklist-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, c.cachePath)
}

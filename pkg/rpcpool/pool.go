// Package rpcpool implements the ranked, failover, rate-limited Solana
// JSON-RPC client pool (C1 Provider Pool).
package rpcpool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) isRateLimited() bool {
	if e == nil {
		return false
	}
	if e.Code == -32005 {
		return true
	}
	lower := strings.ToLower(e.Message)
	return strings.Contains(lower, "429") || strings.Contains(lower, "too many requests")
}

// EndpointState tracks per-endpoint health. Mutated only by Pool under its
// own lock, per spec.md §5 shared-resource policy.
type EndpointState struct {
	URL                 string
	Healthy             bool
	ConsecutiveFailures int
	LastError           string
	LastSuccessAt       time.Time
}

// Pool is a ranked list of Solana RPC endpoints with retry and fail-over.
type Pool struct {
	client    *http.Client
	retryMax  int
	retryBase time.Duration

	mu        sync.Mutex
	endpoints []*EndpointState
}

// New builds a Pool over the given ordered, deduplicated endpoint list.
func New(urls []string, timeout time.Duration, retryMax int, retryBase time.Duration) *Pool {
	p := &Pool{
		client:    &http.Client{Timeout: timeout},
		retryMax:  retryMax,
		retryBase: retryBase,
	}
	for _, u := range urls {
		p.endpoints = append(p.endpoints, &EndpointState{URL: u, Healthy: true})
	}
	return p
}

// Snapshot returns a copy of the current endpoint states, for diagnostics.
func (p *Pool) Snapshot() []EndpointState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EndpointState, len(p.endpoints))
	for i, e := range p.endpoints {
		out[i] = *e
	}
	return out
}

// Call performs a JSON-RPC request, iterating the endpoint list in order.
// Each endpoint gets up to retryMax attempts; the backoff after a failed
// attempt grows linearly, retryBase times (endpoint index + attempt number);
// a rate-limit error triggers immediate fail-over to the next endpoint.
// If every endpoint exhausts its retry budget, Call returns the last
// underlying error — never a partial result.
func (p *Pool) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	p.mu.Lock()
	endpoints := make([]*EndpointState, len(p.endpoints))
	copy(endpoints, p.endpoints)
	p.mu.Unlock()

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpcpool: no endpoints configured")
	}

	var lastErr error
	for i, ep := range endpoints {
		for attempt := 1; attempt <= p.retryMax; attempt++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			result, rateLimited, err := p.attempt(ctx, ep, method, params)
			if err == nil {
				p.recordSuccess(ep)
				return result, nil
			}

			lastErr = err
			p.recordFailure(ep, err)

			if rateLimited {
				log.Debug().Str("endpoint", ep.URL).Str("method", method).Msg("rate limited, failing over")
				break // skip remaining attempts on this endpoint, try next
			}

			backoff := p.retryBase * time.Duration(i+attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("rpcpool: all endpoints exhausted")
	}
	return nil, fmt.Errorf("rpcpool: all endpoints failed: %w", lastErr)
}

func (p *Pool) attempt(ctx context.Context, ep *EndpointState, method string, params []interface{}) (json.RawMessage, bool, error) {
	body, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, false, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("http 429 from %s", ep.URL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("http %d from %s", resp.StatusCode, ep.URL)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, false, fmt.Errorf("rpc unmarshal: %w", err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.isRateLimited() {
			return nil, true, fmt.Errorf("rpc rate limited: %s", rpcResp.Error.Message)
		}
		return nil, false, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, false, nil
}

func (p *Pool) recordSuccess(ep *EndpointState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep.Healthy = true
	ep.ConsecutiveFailures = 0
	ep.LastError = ""
	ep.LastSuccessAt = time.Now().UTC()
}

func (p *Pool) recordFailure(ep *EndpointState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep.ConsecutiveFailures++
	ep.LastError = err.Error()
	if ep.ConsecutiveFailures >= 3 {
		ep.Healthy = false
	}
}

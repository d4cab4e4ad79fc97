// Package chain implements the high-level Chain Client (C3): wallet
// operations layered over the Provider Pool and Signature Cache, built on
// the getSignaturesForAddress/getTransaction RPC sequence.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ghost-wallet-hunter/hunter/pkg/rpcpool"
	"github.com/ghost-wallet-hunter/hunter/pkg/sigcache"
)

// DegradedBalance is the distinguished sentinel get_balance returns when
// every RPC endpoint is unavailable. Callers must never treat it as a real
// balance.
const DegradedBalance = -1.0

// Instruction is a best-effort parse of one transaction instruction.
type Instruction struct {
	ProgramID string                 `json:"program_id"`
	Kind      string                 `json:"kind"` // e.g. "system_transfer", "spl_transfer"; "" if unknown
	Accounts  []string               `json:"accounts"`
	RawData   map[string]interface{} `json:"raw_data,omitempty"`
}

// Transaction is the structured detail returned by get_transaction.
type Transaction struct {
	Signature        string
	Slot             uint64
	BlockTime        *time.Time
	Fee              uint64
	ComputeUnitsUsed uint64
	AccountKeys      []string
	Instructions     []Instruction
	PreBalances      []int64
	PostBalances     []int64
	LogMessages      []string
	Err              bool

	preTokenBalances  []TokenBalance
	postTokenBalances []TokenBalance
}

// TokenDiffsFor computes the SPL token balance diffs observed by this
// transaction for the given owner address.
func (tx *Transaction) TokenDiffsFor(owner string) []TokenBalanceDiff {
	return TokenBalanceDiffs(tx.preTokenBalances, tx.postTokenBalances, owner)
}

// TokenBalanceDiff summarizes a single SPL token's pre/post balance change
// for the queried owner.
type TokenBalanceDiff struct {
	Mint   string
	Pre    float64
	Post   float64
	Diff   float64
}

// Client is the high-level chain API. Every operation routes through the
// Provider Pool and, where applicable, the Signature Cache.
type Client struct {
	pool        *rpcpool.Pool
	cache       *sigcache.Cache
	commitment  string
	maxPerCall  int
}

// New constructs a Client. maxPerCall bounds a single getSignaturesForAddress
// page (spec.md §4.3 "up to a configured maximum per call").
func New(pool *rpcpool.Pool, cache *sigcache.Cache, commitment string, maxPerCall int) *Client {
	if maxPerCall <= 0 {
		maxPerCall = 1000
	}
	return &Client{pool: pool, cache: cache, commitment: commitment, maxPerCall: maxPerCall}
}

// GetBalance returns the SOL balance for addr, or DegradedBalance if every
// endpoint is unavailable.
func (c *Client) GetBalance(ctx context.Context, addr string) float64 {
	result, err := c.pool.Call(ctx, "getBalance", []interface{}{
		addr,
		map[string]interface{}{"commitment": c.commitment},
	})
	if err != nil {
		log.Debug().Err(err).Str("addr", addr).Msg("get_balance degraded")
		return DegradedBalance
	}

	var parsed struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return DegradedBalance
	}
	return float64(parsed.Value) / 1e9
}

// GetSignatures fetches a single page of signatures (no cache interaction).
func (c *Client) GetSignatures(ctx context.Context, addr string, limit int) ([]sigcache.Signature, error) {
	if limit <= 0 || limit > c.maxPerCall {
		limit = c.maxPerCall
	}
	return c.fetchPage(ctx, addr, limit, "")
}

// GetSignaturesPaginated repeats getSignaturesForAddress using the `before`
// cursor until limit is reached, an empty page is returned, or the cursor
// is missing. Between pages it yields briefly to avoid overwhelming the
// RPC. The combined list is written through the signature cache.
func (c *Client) GetSignaturesPaginated(ctx context.Context, addr string, limit, pageSize int) ([]sigcache.Signature, error) {
	if cached, ok := c.cache.Get(addr, limit); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	var all []sigcache.Signature
	before := ""
	for len(all) < limit {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		want := pageSize
		if remain := limit - len(all); remain < want {
			want = remain
		}
		page, err := c.fetchPage(ctx, addr, want, before)
		if err != nil {
			return all, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].Signature
		if before == "" {
			break
		}
		if len(page) < want {
			break
		}

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	c.cache.Put(addr, all)
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, addr string, limit int, before string) ([]sigcache.Signature, error) {
	params := map[string]interface{}{"limit": limit}
	if before != "" {
		params["before"] = before
	}
	result, err := c.pool.Call(ctx, "getSignaturesForAddress", []interface{}{addr, params})
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Signature string      `json:"signature"`
		Slot      uint64      `json:"slot"`
		BlockTime *int64      `json:"blockTime"`
		Err       interface{} `json:"err"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal signatures: %w", err)
	}

	out := make([]sigcache.Signature, 0, len(raw))
	for _, r := range raw {
		if r.Err != nil {
			continue
		}
		s := sigcache.Signature{Signature: r.Signature, Slot: r.Slot}
		if r.BlockTime != nil {
			t := time.Unix(*r.BlockTime, 0)
			s.BlockTime = &t
		}
		out = append(out, s)
	}
	return out, nil
}

type TokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmount *float64 `json:"uiAmount"`
	} `json:"uiTokenAmount"`
}

// GetTransaction fetches and best-effort parses one transaction. Parsing
// never panics on malformed data; unrecognized instructions degrade to
// {program_id, raw_data}.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	result, err := c.pool.Call(ctx, "getTransaction", []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
			"commitment":                     c.commitment,
		},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Slot      uint64 `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
		Meta      *struct {
			Fee               uint64            `json:"fee"`
			ComputeUnitsUsed  uint64            `json:"computeUnitsConsumed"`
			PreBalances       []int64           `json:"preBalances"`
			PostBalances      []int64           `json:"postBalances"`
			PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
			PostTokenBalances []TokenBalance `json:"postTokenBalances"`
			LogMessages       []string          `json:"logMessages"`
			Err               interface{}       `json:"err"`
		} `json:"meta"`
		Transaction *struct {
			Message struct {
				AccountKeys []json.RawMessage `json:"accountKeys"`
				Instructions []json.RawMessage `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	if parsed.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no meta", signature)
	}

	tx := &Transaction{
		Signature:        signature,
		Slot:             parsed.Slot,
		Fee:              parsed.Meta.Fee,
		ComputeUnitsUsed: parsed.Meta.ComputeUnitsUsed,
		PreBalances:      parsed.Meta.PreBalances,
		PostBalances:     parsed.Meta.PostBalances,
		LogMessages:      parsed.Meta.LogMessages,
		Err:              parsed.Meta.Err != nil,

		preTokenBalances:  parsed.Meta.PreTokenBalances,
		postTokenBalances: parsed.Meta.PostTokenBalances,
	}
	if parsed.BlockTime != nil {
		t := time.Unix(*parsed.BlockTime, 0)
		tx.BlockTime = &t
	}

	if parsed.Transaction != nil {
		for _, rawKey := range parsed.Transaction.Message.AccountKeys {
			tx.AccountKeys = append(tx.AccountKeys, extractPubkey(rawKey))
		}
		for _, rawIx := range parsed.Transaction.Message.Instructions {
			tx.Instructions = append(tx.Instructions, parseInstruction(rawIx))
		}
	}

	return tx, nil
}

func extractPubkey(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Pubkey
	}
	return ""
}

func parseInstruction(raw json.RawMessage) Instruction {
	var obj struct {
		ProgramID string                 `json:"programId"`
		Program   string                 `json:"program"`
		Accounts  []string               `json:"accounts"`
		Parsed    map[string]interface{} `json:"parsed"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Instruction{}
	}
	ix := Instruction{ProgramID: obj.ProgramID, Accounts: obj.Accounts}

	if kind, ok := classifyProgram(obj.ProgramID, obj.Parsed); ok {
		ix.Kind = kind
	} else {
		ix.RawData = obj.Parsed
		if ix.RawData == nil {
			ix.RawData = map[string]interface{}{"program": obj.Program}
		}
	}
	return ix
}

// knownPrograms maps well-known Solana program ids to the instruction kinds
// this client recognizes without needing the "parsed" field's "type".
var knownPrograms = map[string]string{
	"11111111111111111111111111111111":            "system",
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  "spl_token",
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL": "associated_token_account",
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "raydium",
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4":  "jupiter",
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc":  "orca",
}

var splInstructionKinds = map[string]bool{
	"transfer": true, "transferChecked": true, "mintTo": true, "burn": true,
	"approve": true, "revoke": true, "setAuthority": true,
}

// classifyProgram returns a stable instruction kind label for known
// programs, or false if the instruction should fall through to raw_data.
func classifyProgram(programID string, parsed map[string]interface{}) (string, bool) {
	family, known := knownPrograms[programID]
	if !known {
		return "", false
	}

	typ, _ := parsed["type"].(string)
	switch family {
	case "system":
		if typ == "transfer" || typ == "createAccount" {
			return "system_" + typ, true
		}
	case "spl_token":
		if splInstructionKinds[typ] {
			return "spl_" + typ, true
		}
	case "associated_token_account":
		if typ == "create" || typ == "closeAccount" {
			return "ata_" + typ, true
		}
	case "raydium", "jupiter", "orca":
		return family + "_swap", true
	}
	return "", false
}

// TokenBalanceDiffs computes per-mint SPL token balance changes for owner
// across a transaction's pre/post token balances.
func TokenBalanceDiffs(pre, post []TokenBalance, owner string) []TokenBalanceDiff {
	preMap := mapTokenBalances(pre, owner)
	postMap := mapTokenBalances(post, owner)

	seen := map[string]bool{}
	var diffs []TokenBalanceDiff
	for mint, postAmt := range postMap {
		preAmt := preMap[mint]
		diffs = append(diffs, TokenBalanceDiff{Mint: mint, Pre: preAmt, Post: postAmt, Diff: postAmt - preAmt})
		seen[mint] = true
	}
	for mint, preAmt := range preMap {
		if seen[mint] {
			continue
		}
		diffs = append(diffs, TokenBalanceDiff{Mint: mint, Pre: preAmt, Post: 0, Diff: -preAmt})
	}
	return diffs
}

func mapTokenBalances(balances []TokenBalance, owner string) map[string]float64 {
	result := map[string]float64{}
	for _, b := range balances {
		if b.Owner == owner && b.UITokenAmount.UIAmount != nil {
			result[b.Mint] = *b.UITokenAmount.UIAmount
		}
	}
	return result
}

// Package strategy implements the Strategy Engine (C7): the fixed
// detective_investigation pipeline and the generic plan_and_execute
// reasoning strategy. Concurrent per-detective fan-out is bounded to the
// squad size via golang.org/x/sync/errgroup, a bounded/awaited group since
// every finding must be collected before consensus runs.
package strategy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ghost-wallet-hunter/hunter/pkg/blacklist"
	"github.com/ghost-wallet-hunter/hunter/pkg/chain"
	"github.com/ghost-wallet-hunter/hunter/pkg/consensus"
	"github.com/ghost-wallet-hunter/hunter/pkg/detective"
	"github.com/ghost-wallet-hunter/hunter/pkg/llm"
)

// WalletAnalysis is phase 2's output: a structured snapshot of the target
// account, computed from the fetched signature stream per spec.md §3's
// resolution of the total_transactions ambiguity.
type WalletAnalysis struct {
	Address           string  `json:"address"`
	BalanceSOL        float64 `json:"balance_sol"`
	TotalTransactions int     `json:"total_transactions"`
	AccountType       string  `json:"account_type"` // always "standard"; the account's owner and executable flag are not inspected
	Degraded          bool    `json:"degraded"`
	DegradedReason    string  `json:"degraded_reason,omitempty"`
}

// BlacklistStatus is the wire shape of a C4 lookup embedded in a result.
type BlacklistStatus struct {
	Status     string   `json:"status"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
}

// PerDetectiveFinding is the persisted/wire shape of one detective's
// contribution, per spec.md §3.
type PerDetectiveFinding struct {
	DetectiveID      string   `json:"detective_id"`
	Specialty        string   `json:"specialty"`
	RiskScore        float64  `json:"risk_score"`
	Confidence       float64  `json:"confidence"`
	Notes            string   `json:"notes"`
	PatternsDetected []string `json:"patterns_detected"`
	ExecutionMs      float64  `json:"execution_ms"`
	Status           string   `json:"status"`
}

// InvestigationResult is the final, persisted, never-mutated output of the
// detective_investigation strategy, per spec.md §3.
type InvestigationResult struct {
	WalletAddress      string                `json:"wallet_address"`
	Summary            string                `json:"summary"`
	WalletAnalysis     WalletAnalysis        `json:"wallet_analysis"`
	BlacklistStatus    BlacklistStatus       `json:"blacklist_status"`
	RiskAssessment     float64               `json:"risk_assessment"`
	DetectiveInsights  []PerDetectiveFinding `json:"detective_insights"`
	FinalReport        string                `json:"final_report"`
	OverallRiskScore   float64               `json:"overall_risk_score"`
	RiskLevel          string                `json:"risk_level"`
	Recommendations    []string              `json:"recommendations"`
	Timestamp          time.Time             `json:"timestamp"`
	Degraded           bool                  `json:"degraded"`
}

// InvalidAddressError is returned when phase 1 rejects the target address;
// callers translate this into INVALID_INPUT without issuing any RPC calls.
type InvalidAddressError struct {
	Address string
	Reason  string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// Depth controls how much per-transaction detail phase 5 fetches before
// handing data to the detectives.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthStandard      Depth = "standard"
	DepthComprehensive Depth = "comprehensive"
)

func txFetchCap(depth Depth) int {
	switch depth {
	case DepthComprehensive:
		return 30
	case DepthStandard:
		return 10
	default:
		return 0
	}
}

// Engine runs the detective_investigation pipeline.
type Engine struct {
	Chain     *chain.Client
	Blacklist *blacklist.Checker
	LLM       *llm.Client
	Squad     []detective.Detective

	MaxConnections int
	PageSize       int
}

// NewEngine wires C3, C4, the LLM client and the detective squad together.
func NewEngine(chainClient *chain.Client, blacklistChecker *blacklist.Checker, llmClient *llm.Client, squad []detective.Detective) *Engine {
	return &Engine{
		Chain:          chainClient,
		Blacklist:      blacklistChecker,
		LLM:            llmClient,
		Squad:          squad,
		MaxConnections: 50,
		PageSize:       100,
	}
}

// RunDetectiveInvestigation executes the seven-phase pipeline of spec.md
// §4.7. detectiveSubset is the (possibly partial) list of detective ids to
// run; an empty subset means the full squad.
func (e *Engine) RunDetectiveInvestigation(ctx context.Context, address string, detectiveSubset []string, depth Depth) (*InvestigationResult, error) {
	// Phase 1: validate.
	validation := chain.ValidateAddressDetailed(address)
	if !validation.FormatValid {
		return nil, &InvalidAddressError{Address: address, Reason: validation.Reason}
	}

	// Phase 2: wallet analysis.
	wa := e.walletAnalysis(ctx, address)

	// Phase 3: blacklist check.
	blResult := e.Blacklist.IsBlacklisted(address)
	blStatus := BlacklistStatus{
		Status:     string(blResult.Status),
		Sources:    blResult.Sources,
		Confidence: blResult.Confidence,
		Reason:     blResult.Reason,
	}
	blacklisted := blResult.Status == blacklist.StatusFlagged
	blacklistScore := 0.0
	if blacklisted {
		blacklistScore = blResult.Confidence
	}

	// Phase 4: preliminary risk assessment.
	prelimRisk := preliminaryRiskScore(wa.TotalTransactions, wa.BalanceSOL)

	// Phase 5: per-detective analysis, concurrent, bounded to squad size.
	squad := e.resolveSquad(detectiveSubset)
	txViews := e.buildTxViews(ctx, address, depth)
	baseInput := detective.Input{
		Address:              address,
		TotalTransactions:    wa.TotalTransactions,
		BalanceSOL:           wa.BalanceSOL,
		BlacklistFlagged:     blacklisted,
		BlacklistConfidence:  blResult.Confidence,
		PreliminaryRiskScore: prelimRisk,
		Transactions:         txViews,
		Degraded:             wa.Degraded,
	}

	findings := make([]detective.Finding, len(squad))
	var group errgroup.Group
	group.SetLimit(len(squad))
	for i, d := range squad {
		i, d := i, d
		group.Go(func() error {
			in := baseInput
			if d.Specialty == detective.SpecialtyFinalReport {
				in.NarrativeFn = e.narrativeFn(ctx)
			}
			findings[i] = detective.Analyze(d, in)
			return nil
		})
	}
	_ = group.Wait()

	// Phase 6 (final synthesis) is folded into phase 5 above via the
	// final_report detective; extract its narrative for the result.
	finalReport := ""
	for i, d := range squad {
		if d.Specialty == detective.SpecialtyFinalReport {
			finalReport = findings[i].Notes
		}
	}

	// Phase 7: aggregate.
	consensusFindings := make([]consensus.Finding, 0, len(findings))
	wireFindings := make([]PerDetectiveFinding, 0, len(findings))
	for _, f := range findings {
		consensusFindings = append(consensusFindings, consensus.Finding{
			Score:      f.RiskScore,
			Confidence: f.Confidence,
			Weight:     f.Weight,
			Status:     consensus.FindingStatus(f.Status),
		})
		wireFindings = append(wireFindings, PerDetectiveFinding{
			DetectiveID:      f.DetectiveID,
			Specialty:        string(f.Specialty),
			RiskScore:        f.RiskScore,
			Confidence:       f.Confidence,
			Notes:            f.Notes,
			PatternsDetected: f.PatternsDetected,
			ExecutionMs:      f.ExecutionMs,
			Status:           string(f.Status),
		})
	}
	verdict := consensus.Aggregate(consensusFindings, blacklistScore, prelimRisk, blacklisted)

	summary := fmt.Sprintf("wallet %s classified %s with overall risk score %.1f", address, verdict.RiskLevel, verdict.OverallRiskScore)

	return &InvestigationResult{
		WalletAddress:     address,
		Summary:           summary,
		WalletAnalysis:    wa,
		BlacklistStatus:   blStatus,
		RiskAssessment:    prelimRisk,
		DetectiveInsights: wireFindings,
		FinalReport:       finalReport,
		OverallRiskScore:  verdict.OverallRiskScore,
		RiskLevel:         string(verdict.RiskLevel),
		Recommendations:   verdict.Recommendations,
		Timestamp:         time.Now().UTC(),
		Degraded:          wa.Degraded,
	}, nil
}

func (e *Engine) resolveSquad(subset []string) []detective.Detective {
	if len(subset) == 0 {
		return e.Squad
	}
	want := make(map[string]bool, len(subset))
	for _, id := range subset {
		want[id] = true
	}
	var out []detective.Detective
	for _, d := range e.Squad {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) narrativeFn(ctx context.Context) func(string) (string, bool) {
	return func(summary string) (string, bool) {
		if e.LLM == nil || !e.LLM.Enabled() {
			return "", false
		}
		text, err := e.LLM.Chat(ctx, "Write a brief, factual investigation narrative for: "+summary)
		if err != nil {
			return "", false
		}
		return text, true
	}
}

func (e *Engine) walletAnalysis(ctx context.Context, address string) WalletAnalysis {
	maxConn := e.MaxConnections
	if maxConn <= 0 || maxConn > 1000 {
		maxConn = 50
	}
	balance := e.Chain.GetBalance(ctx, address)

	sigs, err := e.Chain.GetSignaturesPaginated(ctx, address, maxConn, e.PageSize)
	wa := WalletAnalysis{
		Address:           address,
		BalanceSOL:        balance,
		TotalTransactions: len(sigs),
		AccountType:       "standard",
	}
	if err != nil || balance == chain.DegradedBalance {
		wa.Degraded = true
		wa.DegradedReason = "rpc_failure"
	}
	return wa
}

func (e *Engine) buildTxViews(ctx context.Context, address string, depth Depth) []detective.TxView {
	fetchCap := txFetchCap(depth)
	if fetchCap == 0 {
		return nil
	}

	sigs, err := e.Chain.GetSignatures(ctx, address, fetchCap)
	if err != nil {
		return nil
	}

	views := make([]detective.TxView, 0, len(sigs))
	for _, sig := range sigs {
		tx, err := e.Chain.GetTransaction(ctx, sig.Signature)
		if err != nil || tx == nil {
			continue
		}
		views = append(views, txViewFrom(tx, address))
	}
	return views
}

func txViewFrom(tx *chain.Transaction, address string) detective.TxView {
	view := detective.TxView{Signature: tx.Signature, FeeLamports: tx.Fee}
	if tx.BlockTime != nil {
		view.BlockTime = *tx.BlockTime
	}

	idx := -1
	for i, k := range tx.AccountKeys {
		if k == address {
			idx = i
			break
		}
	}
	if idx >= 0 && idx < len(tx.PreBalances) && idx < len(tx.PostBalances) {
		view.SolDelta = float64(tx.PostBalances[idx]-tx.PreBalances[idx]) / 1e9
	}
	for i, k := range tx.AccountKeys {
		if i != idx && k != "" {
			view.Counterparty = k
			break
		}
	}
	for _, ix := range tx.Instructions {
		switch ix.Kind {
		case "raydium_swap", "jupiter_swap", "orca_swap":
			view.Program = "dex"
		}
	}
	return view
}

// preliminaryRiskScore is phase 4's deterministic scoring from the wallet
// analysis alone (volume and balance extremes); kept independent from the
// risk_assessment tool's standalone formula, which serves ad hoc calls
// outside the pipeline.
func preliminaryRiskScore(totalTransactions int, balanceSOL float64) float64 {
	score := 0.0
	if totalTransactions > 500 {
		score += 25
	} else if totalTransactions > 100 {
		score += 12
	}
	if balanceSOL == chain.DegradedBalance {
		score += 10
	} else if balanceSOL < 0.001 {
		score += 15
	} else if balanceSOL > 10000 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

package tools

import (
	"context"

	"github.com/ghost-wallet-hunter/hunter/pkg/blacklist"
	"github.com/ghost-wallet-hunter/hunter/pkg/chain"
)

// CheckBlacklistTool exposes C4's synchronous lookup as a callable tool,
// e.g. for use from the plan_and_execute strategy.
type CheckBlacklistTool struct {
	checker *blacklist.Checker
}

func NewCheckBlacklistTool(checker *blacklist.Checker) *CheckBlacklistTool {
	return &CheckBlacklistTool{checker: checker}
}

func (t *CheckBlacklistTool) Name() string        { return "check_blacklist" }
func (t *CheckBlacklistTool) Description() string { return "checks an address against the blacklist cache" }

func (t *CheckBlacklistTool) Execute(ctx context.Context, input Input) Result {
	addr, ok2 := stringArg(input, "address")
	if !ok2 || addr == "" {
		return fail("missing required string argument \"address\"")
	}
	result := t.checker.IsBlacklisted(addr)
	return ok(map[string]interface{}{
		"status":     string(result.Status),
		"sources":    result.Sources,
		"confidence": result.Confidence,
		"reason":     result.Reason,
	})
}

// AnalyzeWalletTool exposes a light wallet lookup (balance + recent
// signature count) as a callable tool, independent of the full
// detective_investigation pipeline.
type AnalyzeWalletTool struct {
	client *chain.Client
}

func NewAnalyzeWalletTool(client *chain.Client) *AnalyzeWalletTool {
	return &AnalyzeWalletTool{client: client}
}

func (t *AnalyzeWalletTool) Name() string        { return "analyze_wallet" }
func (t *AnalyzeWalletTool) Description() string { return "fetches balance and recent signature count for an address" }

func (t *AnalyzeWalletTool) Execute(ctx context.Context, input Input) Result {
	addr, ok2 := stringArg(input, "address")
	if !ok2 || addr == "" {
		return fail("missing required string argument \"address\"")
	}
	if !chain.ValidateAddress(addr) {
		return fail("analyze_wallet: invalid address format")
	}

	balance := t.client.GetBalance(ctx, addr)
	sigs, err := t.client.GetSignatures(ctx, addr, 50)
	if err != nil {
		return ok(map[string]interface{}{
			"address":            addr,
			"balance_sol":        balance,
			"total_transactions": 0,
			"degraded":           true,
		})
	}

	return ok(map[string]interface{}{
		"address":            addr,
		"balance_sol":        balance,
		"total_transactions": len(sigs),
		"degraded":           balance == chain.DegradedBalance,
	})
}

// RiskAssessmentTool exposes a standalone preliminary risk computation
// given a transaction count and balance, independent of the scoring the
// strategy engine runs before fanning out to detectives.
type RiskAssessmentTool struct{}

func NewRiskAssessmentTool() *RiskAssessmentTool { return &RiskAssessmentTool{} }

func (t *RiskAssessmentTool) Name() string        { return "risk_assessment" }
func (t *RiskAssessmentTool) Description() string { return "computes a deterministic preliminary risk score from wallet summary stats" }

func (t *RiskAssessmentTool) Execute(ctx context.Context, input Input) Result {
	txCount, _ := input["total_transactions"].(float64)
	balance, _ := input["balance_sol"].(float64)

	score := preliminaryRiskScore(int(txCount), balance)
	return ok(map[string]interface{}{"preliminary_risk_score": score})
}

// preliminaryRiskScore is this tool's own deterministic volume/balance
// scoring, for ad hoc calls outside the detective_investigation pipeline.
// It is deliberately not the same formula as the strategy engine's phase 4
// preliminary score (see investigation.go) — the two are independent, each
// tuned for its own caller, and may disagree.
func preliminaryRiskScore(totalTransactions int, balanceSOL float64) float64 {
	score := 0.0
	if totalTransactions > 500 {
		score += 20
	} else if totalTransactions > 100 {
		score += 10
	}
	if balanceSOL == chain.DegradedBalance {
		score += 10
	} else if balanceSOL < 0.001 {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}

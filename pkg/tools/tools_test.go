package tools

import (
	"context"
	"testing"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes input back" }
func (echoTool) Execute(ctx context.Context, input Input) Result {
	return ok(input["msg"])
}

type panicTool struct{}

func (panicTool) Name() string        { return "panic_tool" }
func (panicTool) Description() string { return "always panics" }
func (panicTool) Execute(ctx context.Context, input Input) Result {
	panic("boom")
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "nope", Input{})
	if result.Success {
		t.Fatal("expected failure for unknown tool")
	}
}

func TestRegistry_ExecuteRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})
	result := r.Execute(context.Background(), "echo", Input{"msg": "hi"})
	if !result.Success || result.Output != "hi" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRegistry_PanicNeverEscapes(t *testing.T) {
	r := NewRegistry()
	r.Register(panicTool{})
	result := r.Execute(context.Background(), "panic_tool", Input{})
	if result.Success {
		t.Fatal("expected failure result, not a panic, from a panicking tool")
	}
	if result.Error == "" {
		t.Fatal("expected error message describing the panic")
	}
}

func TestDetectSwearing_FlagsKnownWords(t *testing.T) {
	tool := NewDetectSwearingTool()
	result := tool.Execute(context.Background(), Input{"text": "this is damn annoying"})
	out := result.Output.(map[string]interface{})
	if !out["flagged"].(bool) {
		t.Fatal("expected flagged=true")
	}
}

func TestDetectSwearing_CleanTextNotFlagged(t *testing.T) {
	tool := NewDetectSwearingTool()
	result := tool.Execute(context.Background(), Input{"text": "this is a perfectly nice sentence"})
	out := result.Output.(map[string]interface{})
	if out["flagged"].(bool) {
		t.Fatal("expected flagged=false")
	}
}

func TestRiskAssessmentTool_IsDeterministic(t *testing.T) {
	tool := NewRiskAssessmentTool()
	in := Input{"total_transactions": float64(600), "balance_sol": 0.0005}
	a := tool.Execute(context.Background(), in)
	b := tool.Execute(context.Background(), in)
	if a.Output.(map[string]interface{})["preliminary_risk_score"] != b.Output.(map[string]interface{})["preliminary_risk_score"] {
		t.Fatal("expected deterministic score for identical input")
	}
}

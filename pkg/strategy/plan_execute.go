package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ghost-wallet-hunter/hunter/pkg/llm"
	"github.com/ghost-wallet-hunter/hunter/pkg/tools"
)

var (
	planStepRe  = regexp.MustCompile(`(?m)^\s*\d+\.\s*(.+)$`)
	planFenceRe = regexp.MustCompile("(?s)```plan\\s*(.*?)```")
)

// StepResult is one executed step of a plan_and_execute run.
type StepResult struct {
	Index  int    `json:"index"`
	Step   string `json:"step"`
	Tool   string `json:"tool,omitempty"`
	Status string `json:"status"` // completed | failed
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PlanAndExecuteResult is the generic-agent strategy's output.
type PlanAndExecuteResult struct {
	Plan    []string     `json:"plan"`
	Steps   []StepResult `json:"steps"`
	Context string       `json:"context"`
}

// GenericEngine runs the plan_and_execute reasoning strategy for generic
// (non-investigation) agents: one LLM call to produce a numbered plan, then
// one LLM call per step to produce a {tool, parameters} execution directive.
type GenericEngine struct {
	LLM      *llm.Client
	Registry *tools.Registry
}

// NewGenericEngine wires an LLM client and tool registry for plan_and_execute.
func NewGenericEngine(llmClient *llm.Client, registry *tools.Registry) *GenericEngine {
	return &GenericEngine{LLM: llmClient, Registry: registry}
}

// Run executes the plan_and_execute strategy for a free-form task.
func (g *GenericEngine) Run(ctx context.Context, task string) (*PlanAndExecuteResult, error) {
	if g.LLM == nil || !g.LLM.Enabled() {
		return nil, fmt.Errorf("plan_and_execute: no LLM provider configured")
	}

	planPrompt := fmt.Sprintf(
		"Produce a numbered plan (one step per line, formatted as \"1. ...\") to accomplish this task:\n\n%s", task)
	planText, err := g.LLM.Chat(ctx, planPrompt)
	if err != nil {
		return nil, fmt.Errorf("plan_and_execute: plan generation failed: %w", err)
	}

	steps := parsePlan(planText)
	result := &PlanAndExecuteResult{Plan: steps}

	var contextBuilder strings.Builder
	for i, step := range steps {
		execPrompt := fmt.Sprintf(
			"Task context so far:\n%s\n\nExecute this step and respond with ONLY a JSON object "+
				"{\"tool\": \"<tool name>\", \"parameters\": {...}}.\n\nStep %d: %s",
			contextBuilder.String(), i+1, step)

		stepResult := StepResult{Index: i + 1, Step: step}

		execText, err := g.LLM.Chat(ctx, execPrompt)
		if err != nil {
			stepResult.Status = "failed"
			stepResult.Error = err.Error()
			result.Steps = append(result.Steps, stepResult)
			fmt.Fprintf(&contextBuilder, "Step %d: %s → Result: failed (%v)\n", i+1, step, err)
			continue
		}

		var directive struct {
			Tool       string                 `json:"tool"`
			Parameters map[string]interface{} `json:"parameters"`
		}
		if err := json.Unmarshal(llm.ExtractJSON(execText), &directive); err != nil || directive.Tool == "" {
			stepResult.Status = "failed"
			stepResult.Error = "invalid or missing tool directive"
			result.Steps = append(result.Steps, stepResult)
			fmt.Fprintf(&contextBuilder, "Step %d: %s → Result: failed (invalid directive)\n", i+1, step)
			continue
		}

		stepResult.Tool = directive.Tool
		toolResult := g.Registry.Execute(ctx, directive.Tool, tools.Input(directive.Parameters))
		if !toolResult.Success {
			stepResult.Status = "failed"
			stepResult.Error = toolResult.Error
			fmt.Fprintf(&contextBuilder, "Step %d: %s → Result: failed (%s)\n", i+1, step, toolResult.Error)
		} else {
			stepResult.Status = "completed"
			stepResult.Output = fmt.Sprintf("%v", toolResult.Output)
			fmt.Fprintf(&contextBuilder, "Step %d: %s → Result: %v\n", i+1, step, toolResult.Output)
		}
		result.Steps = append(result.Steps, stepResult)
	}

	result.Context = contextBuilder.String()
	return result, nil
}

// parsePlan extracts numbered plan lines, preferring a ```plan fenced
// block when present, falling back to scanning the whole response.
func parsePlan(text string) []string {
	body := text
	if m := planFenceRe.FindStringSubmatch(text); len(m) == 2 {
		body = m[1]
	}

	matches := planStepRe.FindAllStringSubmatch(body, -1)
	steps := make([]string, 0, len(matches))
	for _, m := range matches {
		step := strings.TrimSpace(m[1])
		if step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

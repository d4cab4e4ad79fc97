package tools

import (
	"context"

	"github.com/ghost-wallet-hunter/hunter/pkg/llm"
)

// LLMChatTool exposes a single-turn chat completion as a named tool. The
// final_report detective, write_blog and the plan_and_execute strategy call
// the same llm.Client directly rather than through this tool.
type LLMChatTool struct {
	client *llm.Client
}

// NewLLMChatTool wires a configured LLM client into the registry.
func NewLLMChatTool(client *llm.Client) *LLMChatTool {
	return &LLMChatTool{client: client}
}

func (t *LLMChatTool) Name() string        { return "llm_chat" }
func (t *LLMChatTool) Description() string { return "sends a single prompt to the configured LLM provider and returns its text response" }

func (t *LLMChatTool) Execute(ctx context.Context, input Input) Result {
	prompt, ok := stringArg(input, "prompt")
	if !ok || prompt == "" {
		return fail("missing required string argument \"prompt\"")
	}
	if t.client == nil || !t.client.Enabled() {
		return fail("no LLM provider configured")
	}

	text, err := t.client.Chat(ctx, prompt)
	if err != nil {
		return fail("llm_chat: %v", err)
	}
	return ok(map[string]interface{}{"text": text})
}

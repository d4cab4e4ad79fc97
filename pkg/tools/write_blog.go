package tools

import (
	"context"
	"fmt"

	"github.com/ghost-wallet-hunter/hunter/pkg/llm"
)

// WriteBlogTool turns a topic and supporting notes into a long-form
// narrative, reusing the same LLM client as llm_chat.
type WriteBlogTool struct {
	client *llm.Client
}

func NewWriteBlogTool(client *llm.Client) *WriteBlogTool {
	return &WriteBlogTool{client: client}
}

func (t *WriteBlogTool) Name() string        { return "write_blog" }
func (t *WriteBlogTool) Description() string { return "drafts a narrative write-up from a topic and supporting notes" }

func (t *WriteBlogTool) Execute(ctx context.Context, input Input) Result {
	topic, ok2 := stringArg(input, "topic")
	if !ok2 || topic == "" {
		return fail("missing required string argument \"topic\"")
	}
	notes, _ := stringArg(input, "notes")

	if t.client == nil || !t.client.Enabled() {
		return ok(map[string]interface{}{
			"title": topic,
			"body":  fmt.Sprintf("Summary of %s. %s", topic, notes),
			"degraded": true,
		})
	}

	prompt := fmt.Sprintf("Write a clear, factual blog post about: %s\n\nSupporting notes:\n%s", topic, notes)
	text, err := t.client.Chat(ctx, prompt)
	if err != nil {
		return ok(map[string]interface{}{
			"title":    topic,
			"body":     fmt.Sprintf("Summary of %s. %s", topic, notes),
			"degraded": true,
		})
	}

	return ok(map[string]interface{}{"title": topic, "body": text, "degraded": false})
}

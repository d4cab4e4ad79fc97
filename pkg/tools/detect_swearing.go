package tools

import (
	"context"
	"regexp"
	"strings"
)

// closed word-list of flagged terms; intentionally small and conservative —
// this tool only needs to catch obvious cases, not police every utterance.
var swearWordRe = regexp.MustCompile(`(?i)\b(damn|hell|crap|shit|fuck|bitch|asshole)\b`)

// DetectSwearingTool is a pure, closed word-list classifier. No third-party
// dependency in the example pack fits a small fixed word-list matcher any
// better than regexp, so this one stays on the standard library.
type DetectSwearingTool struct{}

func NewDetectSwearingTool() *DetectSwearingTool { return &DetectSwearingTool{} }

func (t *DetectSwearingTool) Name() string        { return "detect_swearing" }
func (t *DetectSwearingTool) Description() string { return "flags profanity in a piece of text against a closed word list" }

func (t *DetectSwearingTool) Execute(ctx context.Context, input Input) Result {
	text, ok2 := stringArg(input, "text")
	if !ok2 {
		return fail("missing required string argument \"text\"")
	}

	matches := dedupe(lowerAll(swearWordRe.FindAllString(text, -1)))
	return ok(map[string]interface{}{
		"flagged": len(matches) > 0,
		"matches": matches,
	})
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}

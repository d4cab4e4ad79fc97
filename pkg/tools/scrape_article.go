package tools

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	htmlTagRe      = regexp.MustCompile(`(?is)<script.*?</script>|<style.*?</style>|<[^>]+>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	titleTagRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	solanaAddrRe   = regexp.MustCompile(`\b([1-9A-HJ-NP-Za-km-z]{32,44})\b`)
)

// ScrapeArticleTool fetches a URL and extracts its title, plain-text body
// and any Solana-looking addresses mentioned in it, using regular
// expressions.
type ScrapeArticleTool struct {
	client *http.Client
}

// NewScrapeArticleTool builds the tool with a bounded-timeout HTTP client.
func NewScrapeArticleTool(timeout time.Duration) *ScrapeArticleTool {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ScrapeArticleTool{client: &http.Client{Timeout: timeout}}
}

func (t *ScrapeArticleTool) Name() string { return "scrape_article" }
func (t *ScrapeArticleTool) Description() string {
	return "fetches a URL and extracts its title, plain text and any wallet addresses mentioned"
}

func (t *ScrapeArticleTool) Execute(ctx context.Context, input Input) Result {
	url, ok2 := stringArg(input, "url")
	if !ok2 || url == "" {
		return fail("missing required string argument \"url\"")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail("scrape_article: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GhostWalletHunter/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return fail("scrape_article: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail("scrape_article: upstream returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fail("scrape_article: %v", err)
	}

	html := string(body)
	title := ""
	if m := titleTagRe.FindStringSubmatch(html); len(m) == 2 {
		title = strings.TrimSpace(m[1])
	}

	text := htmlTagRe.ReplaceAllString(html, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > 5000 {
		text = text[:5000]
	}

	addresses := dedupe(solanaAddrRe.FindAllString(text, -1))

	return ok(map[string]interface{}{
		"url":       url,
		"title":     title,
		"text":      text,
		"addresses": addresses,
	})
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, i := range items {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

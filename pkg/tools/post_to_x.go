package tools

import (
	"context"
	"sync"

	twitterscraper "github.com/imperatrona/twitter-scraper"
)

// PostToXTool posts a tweet using an authenticated scraper session, one
// write call per Execute.
type PostToXTool struct {
	username, password string

	mu      sync.Mutex
	scraper *twitterscraper.Scraper
}

// NewPostToXTool defers login until first use. Config validation does not
// check the credentials; the composition root registers the tool only when
// both are set, and Execute fails when either is empty.
func NewPostToXTool(username, password string) *PostToXTool {
	return &PostToXTool{username: username, password: password}
}

func (t *PostToXTool) Name() string        { return "post_to_x" }
func (t *PostToXTool) Description() string { return "publishes a tweet to X/Twitter from the configured account" }

func (t *PostToXTool) Execute(ctx context.Context, input Input) Result {
	text, ok2 := stringArg(input, "text")
	if !ok2 || text == "" {
		return fail("missing required string argument \"text\"")
	}
	if t.username == "" || t.password == "" {
		return fail("post_to_x: no X/Twitter credentials configured")
	}

	scraper, err := t.session()
	if err != nil {
		return fail("post_to_x: %v", err)
	}

	tweet, _, err := scraper.CreateTweet(twitterscraper.NewTweet{Text: text})
	if err != nil {
		return fail("post_to_x: %v", err)
	}

	return ok(map[string]interface{}{"tweet_id": tweet.ID})
}

func (t *PostToXTool) session() (*twitterscraper.Scraper, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scraper != nil && t.scraper.IsLoggedIn() {
		return t.scraper, nil
	}

	s := twitterscraper.New()
	if err := s.Login(t.username, t.password); err != nil {
		return nil, err
	}
	t.scraper = s
	return s, nil
}

// Package llm is the multi-provider LLM client used by the llm_chat tool
// and anything built on top of it (write_blog, the final_report detective,
// the plan_and_execute strategy). It dispatches to one provider per client
// and provides a markdown-fence stripping helper, ExtractJSON.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider selects which upstream API Chat talks to.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderNone      Provider = ""
)

// Client dispatches chat completions to the configured provider.
type Client struct {
	Provider   Provider
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// New builds a Client. An empty baseURL makes the Anthropic and OpenAI
// providers use their public API URLs; Ollama has no default and needs one.
func New(provider Provider, apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		Provider:   provider,
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    baseURL,
		MaxTokens:  maxTokens,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a provider is configured at all.
func (c *Client) Enabled() bool {
	return c != nil && c.Provider != ProviderNone
}

// Chat sends a single-turn prompt and returns the raw text response.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("no LLM provider configured")
	}
	switch c.Provider {
	case ProviderAnthropic:
		return c.chatAnthropic(ctx, prompt)
	case ProviderOpenAI:
		return c.chatOpenAI(ctx, prompt)
	case ProviderOllama:
		return c.chatOllama(ctx, prompt)
	default:
		return "", fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
}

func (c *Client) chatAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.Model,
		"max_tokens": c.MaxTokens,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
	}
	body, _ := json.Marshal(reqBody)
	url := c.BaseURL
	if url == "" {
		url = "https://api.anthropic.com/v1/messages"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return result.Content[0].Text, nil
}

func (c *Client) chatOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.Model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": c.MaxTokens,
	}
	body, _ := json.Marshal(reqBody)
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) chatOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":    c.Model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
	}
	body, _ := json.Marshal(reqBody)
	url := strings.TrimRight(c.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

// ExtractJSON strips markdown code fences and trims to the outermost
// {...} object, ready for json.Unmarshal.
func ExtractJSON(s string) []byte {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}

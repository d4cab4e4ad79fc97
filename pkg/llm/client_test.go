package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChat_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Fatal("expected x-api-key header")
		}
		w.Write([]byte(`{"content":[{"text":"hello from claude"}]}`))
	}))
	defer srv.Close()

	c := New(ProviderAnthropic, "key", "model", srv.URL, 0, time.Second)
	out, err := c.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello from claude" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestChat_NoProviderConfigured(t *testing.T) {
	c := New(ProviderNone, "", "", "", 0, time.Second)
	if _, err := c.Chat(context.Background(), "hi"); err == nil {
		t.Fatal("expected error with no provider configured")
	}
}

func TestExtractJSON_StripsFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	out := ExtractJSON(in)
	if string(out) != `{"a":1}` {
		t.Fatalf("unexpected extraction: %q", out)
	}
}

func TestExtractJSON_TrimsSurroundingText(t *testing.T) {
	in := `some preamble {"a":1} trailing`
	out := ExtractJSON(in)
	if string(out) != `{"a":1}` {
		t.Fatalf("unexpected extraction: %q", out)
	}
}

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghost-wallet-hunter/hunter/pkg/rpcpool"
	"github.com/ghost-wallet-hunter/hunter/pkg/sigcache"
)

// pageScript stubs getSignaturesForAddress to return 100, 100, 50 entries
// for successive calls, per spec.md §8 scenario F.
func pageScript(t *testing.T, sizes []int) *httptest.Server {
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		json.Unmarshal(body, &req)

		if calls >= len(sizes) {
			t.Fatalf("unexpected extra RPC call #%d", calls+1)
		}
		n := sizes[calls]
		calls++

		var sigs []map[string]interface{}
		for i := 0; i < n; i++ {
			sigs = append(sigs, map[string]interface{}{
				"signature": fmt.Sprintf("sig-%d-%d", calls, i),
				"slot":      1,
				"blockTime": 1700000000,
			})
		}
		result, _ := json.Marshal(sigs)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func TestGetSignaturesPaginated_Scenario_F(t *testing.T) {
	srv := pageScript(t, []int{100, 100, 50})
	defer srv.Close()

	pool := rpcpool.New([]string{srv.URL}, time.Second, 2, time.Millisecond)
	cache := sigcache.New(time.Minute)
	client := New(pool, cache, "confirmed", 1000)

	sigs, err := client.GetSignaturesPaginated(context.Background(), "addr1", 250, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 250 {
		t.Fatalf("expected 250 signatures, got %d", len(sigs))
	}
	if cache.Len() != 1 {
		t.Fatalf("expected exactly one cache entry, got %d", cache.Len())
	}
}

func TestGetBalance_Degraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pool := rpcpool.New([]string{srv.URL}, time.Second, 1, time.Millisecond)
	client := New(pool, sigcache.New(time.Minute), "confirmed", 1000)

	bal := client.GetBalance(context.Background(), "addr1")
	if bal != DegradedBalance {
		t.Fatalf("expected degraded sentinel %v, got %v", DegradedBalance, bal)
	}
}

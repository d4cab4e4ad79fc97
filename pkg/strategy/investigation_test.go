package strategy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghost-wallet-hunter/hunter/pkg/blacklist"
	"github.com/ghost-wallet-hunter/hunter/pkg/chain"
	"github.com/ghost-wallet-hunter/hunter/pkg/detective"
	"github.com/ghost-wallet-hunter/hunter/pkg/rpcpool"
	"github.com/ghost-wallet-hunter/hunter/pkg/sigcache"
)

const cleanWalletAddr = "So11111111111111111111111111111111111111112"

func newRPCStub(t *testing.T, balanceLamports int64, signatureCount int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		switch req.Method {
		case "getBalance":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":` + itoa(balanceLamports) + `}}`))
		case "getSignaturesForAddress":
			sigs := make([]map[string]interface{}, 0, signatureCount)
			for i := 0; i < signatureCount; i++ {
				sigs = append(sigs, map[string]interface{}{
					"signature": "sig" + itoa(int64(i)),
					"slot":      1,
					"blockTime": time.Now().Unix(),
				})
			}
			body, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": sigs})
			w.Write(body)
		default:
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
		}
	}))
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func testEngine(t *testing.T, srv *httptest.Server, blacklisted bool) *Engine {
	pool := rpcpool.New([]string{srv.URL}, time.Second, 2, 10*time.Millisecond)
	cache := sigcache.New(time.Minute)
	client := chain.New(pool, cache, "confirmed", 1000)

	checker := blacklist.New(t.TempDir()+"/bl.json", time.Hour, "")
	if blacklisted {
		checker.Add(cleanWalletAddr)
	}

	return NewEngine(client, checker, nil, detective.Squad())
}

func TestRunDetectiveInvestigation_ScenarioA_CleanWallet(t *testing.T) {
	srv := newRPCStub(t, 1_000_000_000_000, 3)
	defer srv.Close()
	engine := testEngine(t, srv, false)

	result, err := engine.RunDetectiveInvestigation(context.Background(), cleanWalletAddr, nil, DepthBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskLevel != "LOW" {
		t.Fatalf("expected LOW risk for clean wallet, got %s", result.RiskLevel)
	}
	if len(result.Recommendations) == 0 || result.Recommendations[0] != "✅ BAIXO RISCO: nenhuma ação imediata necessária" {
		t.Fatalf("unexpected recommendations: %v", result.Recommendations)
	}
	if result.WalletAnalysis.TotalTransactions != 3 {
		t.Fatalf("expected 3 transactions, got %d", result.WalletAnalysis.TotalTransactions)
	}
}

func TestRunDetectiveInvestigation_ScenarioB_Blacklisted(t *testing.T) {
	srv := newRPCStub(t, 1_000_000_000_000, 3)
	defer srv.Close()
	engine := testEngine(t, srv, true)

	result, err := engine.RunDetectiveInvestigation(context.Background(), cleanWalletAddr, nil, DepthBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallRiskScore < 40 {
		t.Fatalf("expected overall risk >= 40 for blacklisted wallet, got %v", result.OverallRiskScore)
	}
	if result.RiskLevel == "LOW" {
		t.Fatal("blacklisted wallet must not resolve to LOW")
	}
}

func TestRunDetectiveInvestigation_ScenarioC_DegradedRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	engine := testEngine(t, srv, false)

	result, err := engine.RunDetectiveInvestigation(context.Background(), cleanWalletAddr, nil, DepthBasic)
	if err != nil {
		t.Fatalf("degraded RPC should still produce a result, got error: %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected degraded=true")
	}
	for _, f := range result.DetectiveInsights {
		if f.Specialty == string(detective.SpecialtyFinalReport) {
			continue
		}
		if f.Status != "failed" {
			t.Fatalf("expected detective %s to fail under degraded input, got status %s", f.DetectiveID, f.Status)
		}
	}
}

func TestRunDetectiveInvestigation_ScenarioD_InvalidAddress(t *testing.T) {
	calls := 0
	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer wrapped.Close()

	pool := rpcpool.New([]string{wrapped.URL}, time.Second, 1, time.Millisecond)
	cache := sigcache.New(time.Minute)
	client := chain.New(pool, cache, "confirmed", 1000)
	checker := blacklist.New(t.TempDir()+"/bl.json", time.Hour, "")
	engine := NewEngine(client, checker, nil, detective.Squad())

	_, err := engine.RunDetectiveInvestigation(context.Background(), "1111111111111111111111111111111111111111111", nil, DepthBasic)
	if err == nil {
		t.Fatal("expected error for invalid address")
	}
	if _, ok := err.(*InvalidAddressError); !ok {
		t.Fatalf("expected InvalidAddressError, got %T", err)
	}
	if calls != 0 {
		t.Fatalf("expected no RPC calls for invalid address, got %d", calls)
	}
}

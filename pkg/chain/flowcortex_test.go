package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balance/0xabc/FloweR" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"account": "0xabc",
			"token":   "FloweR",
			"balance": 42,
		})
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.GetBalance(context.Background(), "0xabc", "FloweR")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if result.Amount != "42" {
		t.Errorf("Amount = %q, want 42", result.Amount)
	}
	if result.Chain != FlowCortexL1 {
		t.Errorf("Chain = %q", result.Chain)
	}
	if result.WalletAddress != "0xabc" || result.Asset != "FloweR" {
		t.Errorf("echo fields = %q/%q", result.WalletAddress, result.Asset)
	}
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.GetBalance(context.Background(), "0xnew", "FloweR")
	if err != nil {
		t.Fatalf("GetBalance on 404: %v", err)
	}
	if result.Amount != "0" {
		t.Errorf("Amount = %q, want 0 for unknown account", result.Amount)
	}
}

func TestGetBalanceNodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	if _, err := adapter.GetBalance(context.Background(), "0xabc", "FloweR"); err == nil {
		t.Fatal("expected error for 500 from node")
	}
}

func TestSubmitTransaction(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfer" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode transfer body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.SubmitTransaction(context.Background(), SubmitRequest{
		From:   "0xfrom",
		To:     "0xto",
		Amount: "1000",
		Asset:  "FloweR",
		Chain:  FlowCortexL1,
	})
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if !result.Accepted {
		t.Error("Accepted = false, want true")
	}
	if want := deriveTxHash("0xfrom", "0xto", "FloweR", "1000", FlowCortexL1); result.TxHash != want {
		t.Errorf("TxHash = %q, want %q", result.TxHash, want)
	}

	if captured["from"] != "0xfrom" || captured["token"] != "FloweR" {
		t.Errorf("payload from/token = %v/%v", captured["from"], captured["token"])
	}
	if amount, ok := captured["amount"].(float64); !ok || amount != 1000 {
		t.Errorf("payload amount = %v, want numeric 1000", captured["amount"])
	}
	rwSet, ok := captured["rw_set"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload rw_set = %v, want object", captured["rw_set"])
	}
	if reads, ok := rwSet["reads"].([]interface{}); !ok || len(reads) != 0 {
		t.Errorf("rw_set.reads = %v, want empty array", rwSet["reads"])
	}
	if writes, ok := rwSet["writes"].([]interface{}); !ok || len(writes) != 0 {
		t.Errorf("rw_set.writes = %v, want empty array", rwSet["writes"])
	}
	if proof, present := captured["proof"]; !present || proof != nil {
		t.Errorf("payload proof = %v, want explicit null", proof)
	}
}

func TestSubmitTransactionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "insufficient balance"})
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.SubmitTransaction(context.Background(), SubmitRequest{
		From:   "0xfrom",
		To:     "0xto",
		Amount: "1000",
		Asset:  "FloweR",
		Chain:  FlowCortexL1,
	})
	if err != nil {
		t.Fatalf("structured rejection should not be an error: %v", err)
	}
	if result.Accepted {
		t.Error("Accepted = true for rejected transfer")
	}
	if result.TxHash != "failed:insufficient balance" {
		t.Errorf("TxHash = %q", result.TxHash)
	}
}

func TestSubmitTransactionRejectedWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.SubmitTransaction(context.Background(), SubmitRequest{
		From:   "0xfrom",
		To:     "0xto",
		Amount: "1000",
		Asset:  "FloweR",
		Chain:  FlowCortexL1,
	})
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if result.Accepted || result.TxHash != "failed:status 502" {
		t.Errorf("result = %+v, want failed:status 502", result)
	}
}

func TestSubmitTransactionClampsNonNumericAmount(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewFlowCortexAdapter(server.URL)
	result, err := adapter.SubmitTransaction(context.Background(), SubmitRequest{
		From:   "0xfrom",
		To:     "0xto",
		Amount: "not-a-number",
		Asset:  "FloweR",
		Chain:  FlowCortexL1,
	})
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if !result.Accepted {
		t.Error("Accepted = false")
	}
	if amount, ok := captured["amount"].(float64); !ok || amount != 0 {
		t.Errorf("payload amount = %v, want 0 for non-numeric input", captured["amount"])
	}
}

func TestGetTransactionStatus(t *testing.T) {
	tests := []struct {
		name   string
		blocks string
		want   string
	}{
		{name: "no blocks yet", blocks: "[]", want: StatusPending},
		{name: "block produced", blocks: `[{"height":1}]`, want: StatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/blocks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tt.blocks))
			}))
			defer server.Close()

			adapter := NewFlowCortexAdapter(server.URL)
			result, err := adapter.GetTransactionStatus(context.Background(), "txn_1", FlowCortexL1)
			if err != nil {
				t.Fatalf("GetTransactionStatus: %v", err)
			}
			if result.Status != tt.want {
				t.Errorf("Status = %q, want %q", result.Status, tt.want)
			}
			if !result.Accepted || result.TxHash != "txn_1" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestDeriveTxHashFormula(t *testing.T) {
	want := sha256.Sum256([]byte("0xfrom:0xto:FloweR:1000:flowcortex-l1"))
	got := deriveTxHash("0xfrom", "0xto", "FloweR", "1000", "flowcortex-l1")
	if got != "txn_"+hex.EncodeToString(want[:]) {
		t.Errorf("deriveTxHash = %s", got)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	adapter := NewFlowCortexAdapter("http://127.0.0.1:1")
	registry.Register(adapter)

	got, ok := registry.Adapter(FlowCortexL1)
	if !ok || got != Adapter(adapter) {
		t.Errorf("Adapter(%q) = %v, %v", FlowCortexL1, got, ok)
	}
	if _, ok := registry.Adapter("other-chain"); ok {
		t.Error("lookup of unregistered chain succeeded")
	}
}

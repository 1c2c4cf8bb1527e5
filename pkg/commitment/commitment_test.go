package commitment

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeDeterministic(t *testing.T) {
	first := Compute("0xabc", "challenge-1", true, "flowcortex-l1", "")
	second := Compute("0xabc", "challenge-1", true, "flowcortex-l1", "")
	if first != second {
		t.Errorf("same inputs produced different commitments: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("commitment length = %d, want 64 hex chars", len(first))
	}
}

func TestComputeMatchesFormula(t *testing.T) {
	want := sha256.Sum256([]byte("keycortex:proof:v1:0xabc:challenge-1:verified:flowcortex-l1"))
	got := Compute("0xabc", "challenge-1", true, "flowcortex-l1", "")
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("Compute() = %s, want %s", got, hex.EncodeToString(want[:]))
	}

	withTx := sha256.Sum256([]byte("keycortex:proof:v1:0xabc:challenge-1:unverified:flowcortex-l1:txn_123"))
	got = Compute("0xabc", "challenge-1", false, "flowcortex-l1", "txn_123")
	if got != hex.EncodeToString(withTx[:]) {
		t.Errorf("Compute() with tx hash = %s, want %s", got, hex.EncodeToString(withTx[:]))
	}
}

func TestComputeInputsChangeOutput(t *testing.T) {
	base := Compute("0xabc", "challenge-1", true, "flowcortex-l1", "")

	tests := []struct {
		name string
		got  string
	}{
		{
			name: "different wallet",
			got:  Compute("0xdef", "challenge-1", true, "flowcortex-l1", ""),
		},
		{
			name: "different challenge",
			got:  Compute("0xabc", "challenge-2", true, "flowcortex-l1", ""),
		},
		{
			name: "different result",
			got:  Compute("0xabc", "challenge-1", false, "flowcortex-l1", ""),
		},
		{
			name: "different chain",
			got:  Compute("0xabc", "challenge-1", true, "other-chain", ""),
		},
		{
			name: "tx hash present",
			got:  Compute("0xabc", "challenge-1", true, "flowcortex-l1", "txn_1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == base {
				t.Error("commitment did not change with the input")
			}
		})
	}
}

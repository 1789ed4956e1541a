package suite

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestSplitMergeRoundTrip(t *testing.T) {
	r := NewRegistry()

	chain, err := r.Encrypt([]byte("secret"), fastConfigs())
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	parts := Split(chain)
	merged := Merge(parts.Shared, parts.Intrinsic)
	if merged == nil {
		t.Fatal("Merge returned nil for a consistent partition")
	}
	if !merged.Equal(chain) {
		t.Fatal("Merge(Split(chain)) differs from the original chain")
	}
}

func TestSplitSeparatesSecretMaterial(t *testing.T) {
	r := NewRegistry()

	chain, err := r.Encrypt([]byte("secret"), fastConfigs())
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	parts := Split(chain)
	for i, st := range parts.Shared {
		if len(st.Password) != 0 || len(st.Salt) != 0 || len(st.Prefix) != 0 {
			t.Fatalf("shared stage %d carries binary material", i)
		}
		if st.Handler == "" {
			t.Fatalf("shared stage %d lost its handler id", i)
		}
	}
	for i, st := range parts.Intrinsic {
		if st.Params != nil {
			t.Fatalf("intrinsic stage %d carries parameters", i)
		}
	}
}

func TestSplitIsStableAcrossUsers(t *testing.T) {
	r := NewRegistry()
	configs := fastConfigs()

	a, err := r.Encrypt([]byte("password-a"), configs)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := r.Encrypt([]byte("password-b"), configs)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// same configuration, different users: the shared halves must be
	// content-equal so the dedup store assigns them one id
	if !Split(a).Shared.Equal(Split(b).Shared) {
		t.Fatal("expected identical shared halves for identical configs")
	}
}

func TestMergeRejectsMismatch(t *testing.T) {
	r := NewRegistry()

	chain, err := r.Encrypt([]byte("secret"), fastConfigs())
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	parts := Split(chain)

	if got := Merge(parts.Shared[:1], parts.Intrinsic); got != nil {
		t.Fatal("expected nil for length mismatch")
	}

	swapped := parts.Shared.Clone()
	swapped[0].Handler = HandlerPBKDF2
	if got := Merge(swapped, parts.Intrinsic); got != nil {
		t.Fatal("expected nil for handler mismatch")
	}

	if got := Merge(nil, nil); got != nil {
		t.Fatal("expected nil for empty halves")
	}
}

func TestMergedChainStillVerifies(t *testing.T) {
	r := NewRegistry()
	configs := []StageConfig{
		{Handler: HandlerPBKDF2, Params: map[string]int{ParamIterations: 1, ParamKeyLength: 64}},
		{Handler: HandlerBcrypt, Params: map[string]int{ParamCost: bcrypt.MinCost}},
	}

	chain, err := r.Encrypt([]byte("secret"), configs)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	parts := Split(chain)
	merged := Merge(parts.Shared, parts.Intrinsic)
	if !r.Check([]byte("secret"), merged) {
		t.Fatal("expected merged chain to verify the original password")
	}
}

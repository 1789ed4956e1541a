package token

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-secret"),
		Issuer:        "goLogin-test",
		Audience:      "app",
	}
}

func TestIssueParseHS256(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.Issue("sid-1", "u-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.SID != "sid-1" || claims.UID != "u-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestIssueParseEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.Issue("sid-2", "u-2")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.SID != "sid-2" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseRejectsForgery(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	other, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("different-secret"),
		Issuer:        "goLogin-test",
		Audience:      "app",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	forged, err := other.Issue("sid-1", "u-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := m.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestParseCrossAlgorithmRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	edManager, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	hsManager, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := hsManager.Issue("sid-1", "u-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := edManager.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across algorithms, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := map[string]Config{
		"zero ttl":         {SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		"no key":           {TTL: time.Hour, SigningMethod: MethodHS256},
		"unknown method":   {TTL: time.Hour, SigningMethod: "rs256", PrivateKey: []byte("k")},
		"short ed25519":    {TTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: []byte("short"), PublicKey: []byte("short")},
		"excessive leeway": {TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: 10 * time.Minute},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("%s: expected configuration error", name)
		}
	}
}

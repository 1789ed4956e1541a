package suite

import (
	"errors"
	"testing"
)

type fakeHandler struct{ id string }

func (f fakeHandler) ID() string      { return f.id }
func (f fakeHandler) FinalOnly() bool { return false }

func (f fakeHandler) Encrypt(plain []byte, st Stage) (Stage, error) { return st, nil }
func (f fakeHandler) Compare(plain []byte, stored Stage) bool       { return false }

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{HandlerBcrypt, HandlerScrypt, HandlerArgon2, HandlerPBKDF2, HandlerSHA512} {
		if _, ok := r.Handler(id); !ok {
			t.Errorf("missing built-in handler %q", id)
		}
	}
}

func TestRegisterCustomHandler(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeHandler{id: "custom"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := r.Handler("custom"); !ok {
		t.Fatal("custom handler not resolvable")
	}
	if err := r.Register(fakeHandler{id: "custom"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := r.Register(fakeHandler{}); err == nil {
		t.Fatal("expected unnamed handler to be rejected")
	}
}

func TestVerifyConfigs(t *testing.T) {
	r := NewRegistry()

	if err := r.VerifyConfigs(nil); !errors.Is(err, ErrEmptyChain) {
		t.Fatalf("expected ErrEmptyChain, got %v", err)
	}
	err := r.VerifyConfigs([]StageConfig{{Handler: "md5"}})
	if !errors.Is(err, ErrUnknownHandler) {
		t.Fatalf("expected ErrUnknownHandler, got %v", err)
	}
	err = r.VerifyConfigs([]StageConfig{{Handler: HandlerBcrypt}, {Handler: HandlerSHA512}})
	if !errors.Is(err, ErrHandlerPosition) {
		t.Fatalf("expected ErrHandlerPosition, got %v", err)
	}
	err = r.VerifyConfigs([]StageConfig{{Handler: HandlerSHA512}, {Handler: HandlerBcrypt}})
	if err != nil {
		t.Fatalf("expected valid configuration, got %v", err)
	}
}

func TestVerifyChain(t *testing.T) {
	r := NewRegistry()

	if err := r.VerifyChain(nil); !errors.Is(err, ErrEmptyChain) {
		t.Fatalf("expected ErrEmptyChain, got %v", err)
	}
	err := r.VerifyChain(Chain{{Handler: HandlerBcrypt}, {Handler: HandlerSHA512}})
	if !errors.Is(err, ErrHandlerPosition) {
		t.Fatalf("expected ErrHandlerPosition, got %v", err)
	}
	if err := r.VerifyChain(Chain{{Handler: HandlerSHA512}, {Handler: HandlerBcrypt}}); err != nil {
		t.Fatalf("expected valid chain, got %v", err)
	}
}

package suite

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownHandler indicates a chain or configuration references a
	// handler id that is not registered. This is a startup-time failure:
	// engine construction verifies every configured stage, so requests never
	// observe it.
	ErrUnknownHandler = errors.New("unknown suite handler")
	// ErrHandlerPosition indicates a handler that can only terminate a chain
	// was configured as an intermediate stage.
	ErrHandlerPosition = errors.New("handler only valid as final stage")
	// ErrEmptyChain indicates an encrypt or verify call against a chain with
	// no stages.
	ErrEmptyChain = errors.New("empty suite chain")
)

// Handler implements one stage of a password suite.
//
// Encrypt derives the stage output for plain. The incoming stage already
// carries its salt material (freshly generated by Encrypt on the registry, or
// the stored bytes during replay), so the derivation is deterministic for a
// given stage. Chain replay during verification relies on that.
//
// Compare re-derives plain against the stored stage and compares the result
// in constant time. It never returns early on length or prefix mismatches.
type Handler interface {
	ID() string
	Encrypt(plain []byte, st Stage) (Stage, error)
	Compare(plain []byte, stored Stage) bool
	// FinalOnly reports whether a stage of this handler cannot be replayed as
	// an intermediate stage. bcrypt manages its own salt inside the encoded
	// output, so a stripped intermediate bcrypt stage would be unverifiable.
	FinalOnly() bool
}

// Registry maps handler ids to implementations. It is resolved once at
// startup and read-only afterwards; concurrent lookups need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns a registry preloaded with the built-in handlers.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range []Handler{
		bcryptHandler{},
		scryptHandler{},
		argon2Handler{},
		pbkdf2Handler{},
		sha512Handler{},
	} {
		r.handlers[h.ID()] = h
	}
	return r
}

// Register adds a custom handler. Registration is only legal before the
// registry is handed to an engine.
func (r *Registry) Register(h Handler) error {
	if h == nil || h.ID() == "" {
		return errors.New("nil or unnamed handler")
	}
	if _, exists := r.handlers[h.ID()]; exists {
		return fmt.Errorf("handler %q already registered", h.ID())
	}
	r.handlers[h.ID()] = h
	return nil
}

// Handler looks up a handler by id.
func (r *Registry) Handler(id string) (Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// VerifyConfigs checks that every configured stage resolves to a registered
// handler and that final-only handlers terminate the chain.
func (r *Registry) VerifyConfigs(configs []StageConfig) error {
	if len(configs) == 0 {
		return ErrEmptyChain
	}
	for i, cfg := range configs {
		h, ok := r.handlers[cfg.Handler]
		if !ok {
			return fmt.Errorf("%w: %q at stage %d", ErrUnknownHandler, cfg.Handler, i)
		}
		if h.FinalOnly() && i != len(configs)-1 {
			return fmt.Errorf("%w: %q at stage %d", ErrHandlerPosition, cfg.Handler, i)
		}
	}
	return nil
}

// VerifyChain checks a stored chain against the registry. Called when stored
// chains are loaded at startup verification, not per authentication attempt.
func (r *Registry) VerifyChain(c Chain) error {
	if len(c) == 0 {
		return ErrEmptyChain
	}
	for i, st := range c {
		h, ok := r.handlers[st.Handler]
		if !ok {
			return fmt.Errorf("%w: %q at stage %d", ErrUnknownHandler, st.Handler, i)
		}
		if h.FinalOnly() && i != len(c)-1 {
			return fmt.Errorf("%w: %q at stage %d", ErrHandlerPosition, st.Handler, i)
		}
	}
	return nil
}

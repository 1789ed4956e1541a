package suite

import (
	"crypto/subtle"
	"fmt"

	"github.com/MrEthical07/goLogin/internal"
)

// dummy material for the constant-shape comparison executed when there is
// nothing real to verify. Anti-enumeration: a check against a missing user or
// an empty chain must cost the same comparison as a real one.
var (
	dummyStored   = []byte("goLogin-dummy-stored-credential-0000000000000000")
	dummyComputed = []byte("goLogin-dummy-computed-credential-00000000000000")
)

// DummyCompare runs a constant-time comparison of two fixed byte strings and
// discards the result. Callers use it to keep the shape of a failed lookup
// indistinguishable from a real verification.
func DummyCompare() {
	subtle.ConstantTimeCompare(dummyComputed, dummyStored)
}

// Encrypt runs plaintext through every configured stage in order and returns
// the resulting chain. Each stage's derived password feeds the next stage;
// all stages except the last are stripped of their password bytes before
// being placed on the chain. The returned chain is the artifact that gets
// split and persisted.
func (r *Registry) Encrypt(plaintext []byte, configs []StageConfig) (Chain, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyChain
	}
	if err := r.VerifyConfigs(configs); err != nil {
		return nil, err
	}

	chain := make(Chain, 0, len(configs))
	running := plaintext
	for i, cfg := range configs {
		h := r.handlers[cfg.Handler]

		st, err := freshStage(cfg)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, cfg.Handler, err)
		}
		st, err = h.Encrypt(running, st)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, cfg.Handler, err)
		}

		if i < len(configs)-1 {
			running = st.Password
			st.Password = nil
		}
		chain = append(chain, st)
	}
	return chain, nil
}

// Check replays the stored chain against plaintext. Intermediate stages are
// re-derived deterministically from their stored parameters; the final stage
// is compared in constant time by its handler. A nil chain or empty plaintext
// still executes a dummy comparison before returning false.
func (r *Registry) Check(plaintext []byte, stored Chain) bool {
	if len(stored) == 0 || len(plaintext) == 0 {
		DummyCompare()
		return false
	}

	running := plaintext
	for i, st := range stored {
		h, ok := r.handlers[st.Handler]
		if !ok {
			// Unknown handlers are rejected at startup verification; a chain
			// reaching here is treated as a failed check, not a panic.
			DummyCompare()
			return false
		}
		if i == len(stored)-1 {
			return h.Compare(running, st)
		}
		derived, err := h.Encrypt(running, st)
		if err != nil {
			DummyCompare()
			return false
		}
		running = derived.Password
	}
	return false
}

func freshStage(cfg StageConfig) (Stage, error) {
	st := Stage{Handler: cfg.Handler}
	if cfg.Params != nil {
		st.Params = make(map[string]int, len(cfg.Params))
		for k, v := range cfg.Params {
			st.Params[k] = v
		}
	}
	if cfg.Prefix != "" {
		st.Prefix = []byte(cfg.Prefix)
	}
	if cfg.Suffix != "" {
		st.Suffix = []byte(cfg.Suffix)
	}
	if cfg.Infix != "" {
		st.Infix = []byte(cfg.Infix)
	}

	// bcrypt manages salt inside its own encoded output.
	if cfg.Handler == HandlerBcrypt {
		return st, nil
	}

	length := cfg.SaltLength
	if length <= 0 {
		length = defaultSaltLength
	}
	salt, err := internal.RandomSalt(length, cfg.SaltCharset)
	if err != nil {
		return Stage{}, err
	}
	st.Salt = salt
	if st.Params == nil {
		st.Params = map[string]int{}
	}
	st.Params[ParamSaltLength] = length
	return st, nil
}

const defaultSaltLength = 16

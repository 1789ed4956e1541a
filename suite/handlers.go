package suite

import (
	"crypto/sha512"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Built-in handler ids.
const (
	HandlerBcrypt = "bcrypt"
	HandlerScrypt = "scrypt"
	HandlerArgon2 = "argon2id"
	HandlerPBKDF2 = "pbkdf2-sha512"
	HandlerSHA512 = "sha512"
)

func paramOr(st Stage, key string, fallback int) int {
	if v, ok := st.Params[key]; ok && v > 0 {
		return v
	}
	return fallback
}

func compareDerived(h Handler, plain []byte, stored Stage) bool {
	derived, err := h.Encrypt(plain, stored)
	if err != nil {
		DummyCompare()
		return false
	}
	return subtle.ConstantTimeCompare(derived.Password, stored.Password) == 1
}

/*
====================================
BCRYPT
====================================
*/

type bcryptHandler struct{}

func (bcryptHandler) ID() string      { return HandlerBcrypt }
func (bcryptHandler) FinalOnly() bool { return true }

func (bcryptHandler) Encrypt(plain []byte, st Stage) (Stage, error) {
	cost := paramOr(st, ParamCost, bcrypt.DefaultCost)
	// bcrypt caps input at 72 bytes; derived keys from earlier stages fit.
	encoded, err := bcrypt.GenerateFromPassword(plain, cost)
	if err != nil {
		return Stage{}, err
	}
	out := st.clone()
	out.Handler = HandlerBcrypt
	out.Password = encoded
	if out.Params == nil {
		out.Params = map[string]int{}
	}
	out.Params[ParamCost] = cost
	return out, nil
}

func (bcryptHandler) Compare(plain []byte, stored Stage) bool {
	if len(stored.Password) == 0 {
		DummyCompare()
		return false
	}
	return bcrypt.CompareHashAndPassword(stored.Password, plain) == nil
}

/*
====================================
SCRYPT
====================================
*/

type scryptHandler struct{}

func (scryptHandler) ID() string      { return HandlerScrypt }
func (scryptHandler) FinalOnly() bool { return false }

func (scryptHandler) Encrypt(plain []byte, st Stage) (Stage, error) {
	if len(st.Salt) == 0 {
		return Stage{}, errors.New("scrypt stage requires salt")
	}
	n := paramOr(st, ParamN, 1<<15)
	r := paramOr(st, ParamR, 8)
	p := paramOr(st, ParamP, 1)
	keyLen := paramOr(st, ParamKeyLength, 32)

	key, err := scrypt.Key(plain, st.Salt, n, r, p, keyLen)
	if err != nil {
		return Stage{}, err
	}
	out := st.clone()
	out.Handler = HandlerScrypt
	out.Password = key
	if out.Params == nil {
		out.Params = map[string]int{}
	}
	out.Params[ParamN] = n
	out.Params[ParamR] = r
	out.Params[ParamP] = p
	out.Params[ParamKeyLength] = keyLen
	return out, nil
}

func (h scryptHandler) Compare(plain []byte, stored Stage) bool {
	return compareDerived(h, plain, stored)
}

/*
====================================
ARGON2ID
====================================
*/

type argon2Handler struct{}

func (argon2Handler) ID() string      { return HandlerArgon2 }
func (argon2Handler) FinalOnly() bool { return false }

func (argon2Handler) Encrypt(plain []byte, st Stage) (Stage, error) {
	if len(st.Salt) == 0 {
		return Stage{}, errors.New("argon2id stage requires salt")
	}
	timeCost := paramOr(st, ParamTime, 1)
	memory := paramOr(st, ParamMemory, 64*1024)
	threads := paramOr(st, ParamThreads, 2)
	keyLen := paramOr(st, ParamKeyLength, 32)

	key := argon2.IDKey(plain, st.Salt, uint32(timeCost), uint32(memory), uint8(threads), uint32(keyLen))

	out := st.clone()
	out.Handler = HandlerArgon2
	out.Password = key
	if out.Params == nil {
		out.Params = map[string]int{}
	}
	out.Params[ParamTime] = timeCost
	out.Params[ParamMemory] = memory
	out.Params[ParamThreads] = threads
	out.Params[ParamKeyLength] = keyLen
	return out, nil
}

func (h argon2Handler) Compare(plain []byte, stored Stage) bool {
	return compareDerived(h, plain, stored)
}

/*
====================================
PBKDF2-SHA512
====================================
*/

type pbkdf2Handler struct{}

func (pbkdf2Handler) ID() string      { return HandlerPBKDF2 }
func (pbkdf2Handler) FinalOnly() bool { return false }

func (pbkdf2Handler) Encrypt(plain []byte, st Stage) (Stage, error) {
	if len(st.Salt) == 0 {
		return Stage{}, errors.New("pbkdf2 stage requires salt")
	}
	iterations := paramOr(st, ParamIterations, 210_000)
	keyLen := paramOr(st, ParamKeyLength, 64)

	key := pbkdf2.Key(plain, st.Salt, iterations, keyLen, sha512.New)

	out := st.clone()
	out.Handler = HandlerPBKDF2
	out.Password = key
	if out.Params == nil {
		out.Params = map[string]int{}
	}
	out.Params[ParamIterations] = iterations
	out.Params[ParamKeyLength] = keyLen
	return out, nil
}

func (h pbkdf2Handler) Compare(plain []byte, stored Stage) bool {
	return compareDerived(h, plain, stored)
}

/*
====================================
SHA512 (legacy interop)
====================================
*/

// sha512Handler is a salted digest stage kept for chains migrated from older
// deployments: digest = SHA-512(prefix || salt || infix || plain || suffix).
// It is intended as an intermediate stage under a slow final handler, never
// as the sole protection of a stored password.
type sha512Handler struct{}

func (sha512Handler) ID() string      { return HandlerSHA512 }
func (sha512Handler) FinalOnly() bool { return false }

func (sha512Handler) Encrypt(plain []byte, st Stage) (Stage, error) {
	if len(st.Salt) == 0 {
		return Stage{}, errors.New("sha512 stage requires salt")
	}

	msg := make([]byte, 0, len(st.Prefix)+len(st.Salt)+len(st.Infix)+len(plain)+len(st.Suffix))
	msg = append(msg, st.Prefix...)
	msg = append(msg, st.Salt...)
	msg = append(msg, st.Infix...)
	msg = append(msg, plain...)
	msg = append(msg, st.Suffix...)
	digest := sha512.Sum512(msg)

	out := st.clone()
	out.Handler = HandlerSHA512
	out.Password = digest[:]
	return out, nil
}

func (h sha512Handler) Compare(plain []byte, stored Stage) bool {
	return compareDerived(h, plain, stored)
}

package suite

// Parameter keys recognized by the built-in handlers. Parameters are the
// deduplicable half of a stage: many accounts encrypted under the same
// configuration share the exact same parameter set.
const (
	ParamCost       = "cost"
	ParamN          = "n"
	ParamR          = "r"
	ParamP          = "p"
	ParamTime       = "time"
	ParamMemory     = "memory"
	ParamThreads    = "threads"
	ParamIterations = "iterations"
	ParamKeyLength  = "keyLength"
	ParamSaltLength = "saltLength"
)

// Stage is the output of running one handler of a suite chain. Only the
// final stage of a stored chain retains its Password bytes; intermediate
// stages keep just the material needed to re-derive the next stage's input.
type Stage struct {
	Handler  string
	Password []byte
	Salt     []byte
	Prefix   []byte
	Suffix   []byte
	Infix    []byte
	Params   map[string]int
}

// Chain is an ordered password suite, oldest stage first. Chains are append
// only: re-hashing under a stronger configuration adds a stage, it never
// rewrites an existing one.
type Chain []Stage

// StageConfig is the resolved, immutable configuration for one stage of a
// suite. Configs are validated once against the registry at engine
// construction; requests never see an unknown handler.
type StageConfig struct {
	Handler     string
	Params      map[string]int
	SaltLength  int
	SaltCharset string
	Prefix      string
	Suffix      string
	Infix       string
}

func (s Stage) clone() Stage {
	out := Stage{Handler: s.Handler}
	out.Password = cloneBytes(s.Password)
	out.Salt = cloneBytes(s.Salt)
	out.Prefix = cloneBytes(s.Prefix)
	out.Suffix = cloneBytes(s.Suffix)
	out.Infix = cloneBytes(s.Infix)
	if s.Params != nil {
		out.Params = make(map[string]int, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the chain. Stores hand decoded chains to
// concurrent readers, so callers mutate copies, never shared stages.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	for i := range c {
		out[i] = c[i].clone()
	}
	return out
}

// Equal reports deep equality of two chains.
func (c Chain) Equal(other Chain) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !stageEqual(c[i], other[i]) {
			return false
		}
	}
	return true
}

func stageEqual(a, b Stage) bool {
	if a.Handler != b.Handler {
		return false
	}
	if !bytesEqual(a.Password, b.Password) ||
		!bytesEqual(a.Salt, b.Salt) ||
		!bytesEqual(a.Prefix, b.Prefix) ||
		!bytesEqual(a.Suffix, b.Suffix) ||
		!bytesEqual(a.Infix, b.Infix) {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for k, v := range a.Params {
		if b.Params[k] != v {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

package goLogin

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/goLogin/suite"
	"github.com/MrEthical07/goLogin/token"
)

// Config defines the engine configuration. Configs are resolved once through
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	Suite   SuiteConfig
	Timing  TimingConfig
	Locking LockingConfig
	Session SessionConfig
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
SUITE CONFIG
====================================
*/

// SuiteConfig lists the ordered stage configurations of the password
// pipeline. Every handler referenced here must resolve against the registry
// at Build time; an unknown handler aborts initialization.
type SuiteConfig struct {
	Stages []suite.StageConfig
	// UpgradeOnLogin re-encrypts a credential under the full configured
	// suite when a login succeeds against a shorter stored chain. Chains are
	// append-only, so this is how stored passwords pick up new stages.
	UpgradeOnLogin bool
}

/*
====================================
TIMING CONFIG
====================================
*/

// TimingConfig drives the timing equalizer. All durations are clamped to be
// non-negative; a random range with min greater than max is swapped rather
// than rejected.
type TimingConfig struct {
	// Wait is the base delay added to every authentication attempt.
	Wait time.Duration
	// WaitRandomMin and WaitRandomMax bound the uniform jitter added on top
	// of the base delay.
	WaitRandomMin time.Duration
	WaitRandomMax time.Duration
	// WaitNoUser is the extra delay applied when the identity does not
	// resolve to an account, compensating for the work a real verification
	// would have done.
	WaitNoUser time.Duration
}

/*
====================================
LOCKING CONFIG
====================================
*/

// LockingConfig drives the account lockout tracker.
type LockingConfig struct {
	// MaxAttempts is the failed-attempt threshold above which the soft lock
	// engages.
	MaxAttempts uint
	// FailExpires is the decay window: one attempt is forgiven per whole
	// window elapsed since the last attempt. Zero or negative means no
	// decay.
	FailExpires time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig drives session lifetimes and the validity state machine's
// routes and redirect destinations.
type SessionConfig struct {
	RedisPrefix string
	// TTL is the soft expiry: past it a session can still be prolonged.
	TTL time.Duration
	// AbsoluteLifetime is the outer bound past which prolongation is
	// disallowed and the record is discarded.
	AbsoluteLifetime time.Duration

	// LoginRoute and AuthRoute name the routes that are allowed to carry
	// fresh credentials; requests targeting them never trigger go-to
	// preservation.
	LoginRoute string
	AuthRoute  string

	// Redirect destinations of the state machine.
	ProlongateDestination string
	ExpiredDestination    string
	ErrorDestination      string

	// SessionField is the request parameter carrying the session id; it is
	// stripped from preserved go-to parameters.
	SessionField string
	// CredentialFields are the request parameters stripped from any request
	// state on non-authenticating paths.
	CredentialFields []string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures signed session handles. When disabled, raw session
// ids are handed out and accepted instead.
type TokenConfig struct {
	Enabled       bool
	SigningMethod token.SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when the
	// buffer is full; drops are counted and observable via AuditDropped.
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Suite: SuiteConfig{
			Stages: []suite.StageConfig{
				{Handler: suite.HandlerScrypt},
				{Handler: suite.HandlerBcrypt},
			},
			UpgradeOnLogin: true,
		},
		Timing: TimingConfig{
			Wait:          100 * time.Millisecond,
			WaitRandomMin: 0,
			WaitRandomMax: 200 * time.Millisecond,
			WaitNoUser:    100 * time.Millisecond,
		},
		Locking: LockingConfig{
			MaxAttempts: 10,
			FailExpires: time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:           "gl",
			TTL:                   30 * time.Minute,
			AbsoluteLifetime:      12 * time.Hour,
			LoginRoute:            "login",
			AuthRoute:             "auth",
			ProlongateDestination: "/login/prolongate",
			ExpiredDestination:    "/login/expired",
			ErrorDestination:      "/login/error",
			SessionField:          "session-id",
			CredentialFields:      []string{"password"},
		},
		Token: TokenConfig{
			Enabled:       false,
			SigningMethod: token.MethodHS256,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Suite.Stages != nil {
		out.Suite.Stages = make([]suite.StageConfig, len(cfg.Suite.Stages))
		copy(out.Suite.Stages, cfg.Suite.Stages)
		for i, st := range cfg.Suite.Stages {
			if st.Params != nil {
				params := make(map[string]int, len(st.Params))
				for k, v := range st.Params {
					params[k] = v
				}
				out.Suite.Stages[i].Params = params
			}
		}
	}
	if cfg.Session.CredentialFields != nil {
		out.Session.CredentialFields = append([]string(nil), cfg.Session.CredentialFields...)
	}
	if cfg.Token.PrivateKey != nil {
		out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	}
	if cfg.Token.PublicKey != nil {
		out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	}
	return out
}

func validateConfig(cfg Config) error {
	if len(cfg.Suite.Stages) == 0 {
		return fmt.Errorf("%w: suite has no stages", ErrInvalidConfig)
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("%w: session TTL must be positive", ErrInvalidConfig)
	}
	if cfg.Session.AbsoluteLifetime < cfg.Session.TTL {
		return fmt.Errorf("%w: absolute session lifetime shorter than TTL", ErrInvalidConfig)
	}
	if cfg.Locking.MaxAttempts == 0 {
		return fmt.Errorf("%w: locking max attempts must be positive", ErrInvalidConfig)
	}
	if cfg.Token.Enabled && len(cfg.Token.PrivateKey) == 0 {
		return fmt.Errorf("%w: session tokens enabled without a signing key", ErrInvalidConfig)
	}
	return nil
}

type envConfig struct {
	Wait          time.Duration `env:"WAIT" envDefault:"100ms"`
	WaitRandomMin time.Duration `env:"WAIT_RANDOM_MIN" envDefault:"0"`
	WaitRandomMax time.Duration `env:"WAIT_RANDOM_MAX" envDefault:"200ms"`
	WaitNoUser    time.Duration `env:"WAIT_NOUSER" envDefault:"100ms"`

	MaxAttempts uint          `env:"LOCK_MAX_ATTEMPTS" envDefault:"10"`
	FailExpires time.Duration `env:"LOCK_FAIL_EXPIRES" envDefault:"60s"`

	SuiteStages []string `env:"SUITE" envSeparator:"," envDefault:"scrypt,bcrypt"`

	SessionPrefix   string        `env:"SESSION_PREFIX" envDefault:"gl"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionAbsolute time.Duration `env:"SESSION_ABSOLUTE" envDefault:"12h"`

	TokenSecret string `env:"TOKEN_SECRET"`
}

// ConfigFromEnv loads the configuration surface from GOLOGIN_* environment
// variables on top of the defaults. The suite is given as a comma-separated
// list of handler ids; stage parameters beyond the handler defaults require
// programmatic configuration.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: "GOLOGIN_"}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := defaultConfig()
	cfg.Timing = TimingConfig{
		Wait:          ec.Wait,
		WaitRandomMin: ec.WaitRandomMin,
		WaitRandomMax: ec.WaitRandomMax,
		WaitNoUser:    ec.WaitNoUser,
	}
	cfg.Locking = LockingConfig{MaxAttempts: ec.MaxAttempts, FailExpires: ec.FailExpires}
	cfg.Session.RedisPrefix = ec.SessionPrefix
	cfg.Session.TTL = ec.SessionTTL
	cfg.Session.AbsoluteLifetime = ec.SessionAbsolute

	if len(ec.SuiteStages) > 0 {
		stages := make([]suite.StageConfig, 0, len(ec.SuiteStages))
		for _, handler := range ec.SuiteStages {
			if handler == "" {
				continue
			}
			stages = append(stages, suite.StageConfig{Handler: handler})
		}
		cfg.Suite.Stages = stages
	}
	if ec.TokenSecret != "" {
		cfg.Token.Enabled = true
		cfg.Token.SigningMethod = token.MethodHS256
		cfg.Token.PrivateKey = []byte(ec.TokenSecret)
	}
	return cfg, nil
}

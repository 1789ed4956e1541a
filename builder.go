package goLogin

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goLogin/internal/cache"
	"github.com/MrEthical07/goLogin/session"
	"github.com/MrEthical07/goLogin/suite"
	"github.com/MrEthical07/goLogin/token"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens until Engine methods are called.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	registry *suite.Registry
	provider CredentialProvider
	sink     AuditSink
	clock    func() time.Time

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRegistry replaces the default handler registry, e.g. to add custom
// stage handlers before verification.
func (b *Builder) WithRegistry(r *suite.Registry) *Builder {
	b.registry = r
	return b
}

// WithCredentialProvider sets the credential store adapter.
func (b *Builder) WithCredentialProvider(p CredentialProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the engine's time source. Tests use it to drive
// lockout decay and session expiry deterministically.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration, resolving every configured suite stage
// against the handler registry, and assembles the engine.
// Configuration failures abort here; they are never surfaced per request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client required", ErrInvalidConfig)
	}
	if b.provider == nil {
		return nil, fmt.Errorf("%w: credential provider required", ErrInvalidConfig)
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	registry := b.registry
	if registry == nil {
		registry = suite.NewRegistry()
	}
	if err := registry.VerifyConfigs(b.config.Suite.Stages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	var tokens *token.Manager
	if b.config.Token.Enabled {
		var err error
		tokens, err = token.NewManager(token.Config{
			TTL:           b.config.Session.AbsoluteLifetime,
			SigningMethod: b.config.Token.SigningMethod,
			PrivateKey:    b.config.Token.PrivateKey,
			PublicKey:     b.config.Token.PublicKey,
			Issuer:        b.config.Token.Issuer,
			Audience:      b.config.Token.Audience,
			Leeway:        b.config.Token.Leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	e := &Engine{
		config:       b.config,
		registry:     registry,
		provider:     b.provider,
		sessionStore: session.NewStore(b.redis, b.config.Session.RedisPrefix, session.WithClock(clock)),
		tokens:       tokens,
		equalizer:    newEqualizer(b.config.Timing),
		audit:        newAuditDispatcher(b.config.Audit, b.sink),
		metrics:      NewMetrics(b.config.Metrics),
		suiteCache:   cache.New[*PasswordSuite](),
		now:          clock,
	}

	b.built = true
	return e, nil
}

package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm for session tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrInvalidToken is returned for any token that fails signature or claim
// validation.
var ErrInvalidToken = errors.New("invalid session token")

// Config holds the signing configuration for session tokens. TTL bounds the
// token's own lifetime; the session record behind it carries the real expiry
// semantics, so tokens are issued against the absolute session lifetime.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Manager issues and parses signed session handles. A token binds a session
// id to its user id; the resolver still loads the session record, so a
// stolen token is only as good as the live session behind it.
type Manager struct {
	config Config
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	SID string `json:"sid"`
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("ed25519 requires a 64-byte private key")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 requires a 32-byte public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a session handle for the given session and user ids.
func (m *Manager) Issue(sessionID, userID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SID: sessionID,
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	tok := jwt.NewWithClaims(m.method(), claims)
	return tok.SignedString(m.signKey())
}

// Parse validates a session handle and returns its claims.
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey(), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || claims.SID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (m *Manager) signKey() interface{} {
	if m.config.SigningMethod == MethodEd25519 {
		return ed25519.PrivateKey(m.config.PrivateKey)
	}
	return m.config.PrivateKey
}

func (m *Manager) verifyKey() interface{} {
	if m.config.SigningMethod == MethodEd25519 {
		return ed25519.PublicKey(m.config.PublicKey)
	}
	return m.config.PrivateKey
}

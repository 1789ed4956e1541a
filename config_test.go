package goLogin

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goLogin/suite"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validateConfig(defaultConfig()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	mutations := map[string]func(*Config){
		"no stages":          func(c *Config) { c.Suite.Stages = nil },
		"zero ttl":           func(c *Config) { c.Session.TTL = 0 },
		"absolute below ttl": func(c *Config) { c.Session.AbsoluteLifetime = c.Session.TTL - time.Minute },
		"zero max attempts":  func(c *Config) { c.Locking.MaxAttempts = 0 },
		"token without key":  func(c *Config) { c.Token.Enabled = true },
	}
	for name, mutate := range mutations {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := validateConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := defaultConfig()
	cfg.Suite.Stages[0].Params = map[string]int{suite.ParamN: 16}
	cfg.Token.PrivateKey = []byte("secret")

	clone := cloneConfig(cfg)
	cfg.Suite.Stages[0].Params[suite.ParamN] = 99
	cfg.Suite.Stages[0].Handler = "mutated"
	cfg.Session.CredentialFields[0] = "mutated"
	cfg.Token.PrivateKey[0] = 'X'

	if clone.Suite.Stages[0].Params[suite.ParamN] != 16 {
		t.Fatal("stage params must be copied")
	}
	if clone.Suite.Stages[0].Handler == "mutated" {
		t.Fatal("stage list must be copied")
	}
	if clone.Session.CredentialFields[0] == "mutated" {
		t.Fatal("credential fields must be copied")
	}
	if clone.Token.PrivateKey[0] == 'X' {
		t.Fatal("signing key must be copied")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOLOGIN_WAIT", "50ms")
	t.Setenv("GOLOGIN_WAIT_NOUSER", "75ms")
	t.Setenv("GOLOGIN_LOCK_MAX_ATTEMPTS", "5")
	t.Setenv("GOLOGIN_LOCK_FAIL_EXPIRES", "2m")
	t.Setenv("GOLOGIN_SUITE", "sha512,bcrypt")
	t.Setenv("GOLOGIN_SESSION_PREFIX", "myapp")
	t.Setenv("GOLOGIN_SESSION_TTL", "15m")
	t.Setenv("GOLOGIN_SESSION_ABSOLUTE", "6h")
	t.Setenv("GOLOGIN_TOKEN_SECRET", "hush")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.Timing.Wait != 50*time.Millisecond || cfg.Timing.WaitNoUser != 75*time.Millisecond {
		t.Fatalf("timing not applied: %+v", cfg.Timing)
	}
	if cfg.Locking.MaxAttempts != 5 || cfg.Locking.FailExpires != 2*time.Minute {
		t.Fatalf("locking not applied: %+v", cfg.Locking)
	}
	if len(cfg.Suite.Stages) != 2 || cfg.Suite.Stages[0].Handler != suite.HandlerSHA512 || cfg.Suite.Stages[1].Handler != suite.HandlerBcrypt {
		t.Fatalf("suite not applied: %+v", cfg.Suite.Stages)
	}
	if cfg.Session.RedisPrefix != "myapp" || cfg.Session.TTL != 15*time.Minute || cfg.Session.AbsoluteLifetime != 6*time.Hour {
		t.Fatalf("session not applied: %+v", cfg.Session)
	}
	if !cfg.Token.Enabled || string(cfg.Token.PrivateKey) != "hush" {
		t.Fatalf("token secret not applied: %+v", cfg.Token)
	}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("env config must validate: %v", err)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.Timing.Wait != 100*time.Millisecond {
		t.Fatalf("expected default wait, got %v", cfg.Timing.Wait)
	}
	if cfg.Token.Enabled {
		t.Fatal("tokens must be disabled without a secret")
	}
}

package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/goLogin"
	"github.com/MrEthical07/goLogin/suite"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) (*Store, *testClock, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := New(rdb, "gl", WithClock(clock.Now))
	return store, clock, func() {
		rdb.Close()
		mr.Close()
	}
}

func testChain(t *testing.T, password string) suite.Suites {
	t.Helper()
	chain, err := suite.NewRegistry().Encrypt([]byte(password), []suite.StageConfig{
		{Handler: suite.HandlerScrypt, Params: map[string]int{suite.ParamN: 16, suite.ParamR: 1, suite.ParamP: 1}},
		{Handler: suite.HandlerBcrypt, Params: map[string]int{suite.ParamCost: bcrypt.MinCost}},
	})
	if err != nil {
		t.Fatalf("encrypt chain: %v", err)
	}
	return suite.Split(chain)
}

func seedUser(t *testing.T, store *Store, identity, password string) int64 {
	t.Helper()
	ctx := context.Background()
	parts := testChain(t, password)
	sharedID, err := store.CreateOrGetSharedSuiteID(ctx, parts.Shared)
	if err != nil {
		t.Fatalf("shared suite id: %v", err)
	}
	if err := store.UpdatePassword(ctx, identity, sharedID, parts.Intrinsic); err != nil {
		t.Fatalf("update password: %v", err)
	}
	return sharedID
}

func TestPasswordSuiteRoundTrip(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if _, err := store.GetPasswordSuite(ctx, "alice"); !errors.Is(err, goLogin.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	sharedID := seedUser(t, store, "alice", "correct horse")

	ps, err := store.GetPasswordSuite(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPasswordSuite failed: %v", err)
	}
	if ps.SharedID != sharedID {
		t.Fatalf("expected shared id %d, got %d", sharedID, ps.SharedID)
	}

	merged := suite.Merge(ps.Shared, ps.Intrinsic)
	if merged == nil {
		t.Fatal("stored halves must merge")
	}
	if !suite.NewRegistry().Check([]byte("correct horse"), merged) {
		t.Fatal("stored credential must verify")
	}
}

func TestSharedSuiteDedup(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	a := testChain(t, "password-a")
	b := testChain(t, "password-b")

	idA, err := store.CreateOrGetSharedSuiteID(ctx, a.Shared)
	if err != nil {
		t.Fatalf("CreateOrGetSharedSuiteID failed: %v", err)
	}
	idB, err := store.CreateOrGetSharedSuiteID(ctx, b.Shared)
	if err != nil {
		t.Fatalf("CreateOrGetSharedSuiteID failed: %v", err)
	}
	if idA != idB {
		t.Fatalf("equal shared content must converge on one id: %d vs %d", idA, idB)
	}

	// a different configuration allocates a fresh id
	other, err := suite.NewRegistry().Encrypt([]byte("x"), []suite.StageConfig{
		{Handler: suite.HandlerBcrypt, Params: map[string]int{suite.ParamCost: bcrypt.MinCost}},
	})
	if err != nil {
		t.Fatalf("encrypt chain: %v", err)
	}
	idC, err := store.CreateOrGetSharedSuiteID(ctx, suite.Split(other).Shared)
	if err != nil {
		t.Fatalf("CreateOrGetSharedSuiteID failed: %v", err)
	}
	if idC == idA {
		t.Fatal("distinct shared content must not share an id")
	}
}

func TestRecordFailedAttemptDecay(t *testing.T) {
	store, clock, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	seedUser(t, store, "alice", "pw")
	const maxAttempts = 3
	window := time.Minute

	// burst of failures crosses the threshold
	var state *goLogin.AccountLockState
	var err error
	for i := 0; i < 4; i++ {
		state, err = store.RecordFailedAttempt(ctx, "alice", "203.0.113.9", maxAttempts, window)
		if err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}
	if state.LoginAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", state.LoginAttempts)
	}
	if state.SoftLocked.IsZero() {
		t.Fatal("expected soft lock above threshold")
	}
	if state.LastFailedIP != "203.0.113.9" {
		t.Fatalf("expected failed ip recorded, got %q", state.LastFailedIP)
	}

	// two whole windows forgive two attempts before the next bump
	clock.Advance(2 * time.Minute)
	state, err = store.RecordFailedAttempt(ctx, "alice", "203.0.113.9", maxAttempts, window)
	if err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}
	if state.LoginAttempts != 3 {
		t.Fatalf("expected decayed counter 4-2+1=3, got %d", state.LoginAttempts)
	}

	// zero window means no decay
	clock.Advance(time.Hour)
	state, err = store.RecordFailedAttempt(ctx, "alice", "", maxAttempts, 0)
	if err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}
	if state.LoginAttempts != 4 {
		t.Fatalf("expected no decay with zero window, got %d", state.LoginAttempts)
	}
}

func TestRecordFailedAttemptUnknownUser(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	_, err := store.RecordFailedAttempt(context.Background(), "nobody", "", 3, time.Minute)
	if !errors.Is(err, goLogin.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRecordSuccessfulAttemptResets(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	seedUser(t, store, "alice", "pw")
	for i := 0; i < 5; i++ {
		if _, err := store.RecordFailedAttempt(ctx, "alice", "bad-ip", 3, time.Minute); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}

	if err := store.RecordSuccessfulAttempt(ctx, "alice", "203.0.113.1"); err != nil {
		t.Fatalf("RecordSuccessfulAttempt failed: %v", err)
	}

	state, err := store.GetLockState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLockState failed: %v", err)
	}
	if state.LoginAttempts != 1 {
		t.Fatalf("expected attempts reset to 1, got %d", state.LoginAttempts)
	}
	if !state.SoftLocked.IsZero() {
		t.Fatal("expected soft lock cleared")
	}
	if state.LastOKIP != "203.0.113.1" || state.LastLogin.IsZero() {
		t.Fatalf("expected login fields recorded: %+v", state)
	}
}

func TestUpdatePasswordResetsAttemptState(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	seedUser(t, store, "alice", "old")
	if _, err := store.RecordFailedAttempt(ctx, "alice", "bad-ip", 3, time.Minute); err != nil {
		t.Fatalf("RecordFailedAttempt failed: %v", err)
	}

	seedUser(t, store, "alice", "new")

	state, err := store.GetLockState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLockState failed: %v", err)
	}
	if state.LoginAttempts != 0 {
		t.Fatalf("expected attempts cleared, got %d", state.LoginAttempts)
	}
	if !state.LastAttempt.IsZero() || state.LastFailedIP != "" {
		t.Fatalf("expected attempt fields cleared: %+v", state)
	}
}

func TestHardLockLifecycle(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.SetHardLock(ctx, "nobody", true); !errors.Is(err, goLogin.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	seedUser(t, store, "alice", "pw")
	if err := store.SetHardLock(ctx, "alice", true); err != nil {
		t.Fatalf("SetHardLock failed: %v", err)
	}
	state, err := store.GetLockState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLockState failed: %v", err)
	}
	if !state.HardLocked() {
		t.Fatal("expected hard lock set")
	}

	if err := store.SetHardLock(ctx, "alice", false); err != nil {
		t.Fatalf("SetHardLock clear failed: %v", err)
	}
	state, err = store.GetLockState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLockState failed: %v", err)
	}
	if state.HardLocked() {
		t.Fatal("expected hard lock cleared")
	}
}

func TestGetLockStateUnknownUser(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	if _, err := store.GetLockState(context.Background(), "nobody"); !errors.Is(err, goLogin.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

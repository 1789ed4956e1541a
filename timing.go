package goLogin

import (
	"context"
	"time"

	"github.com/MrEthical07/goLogin/internal"
)

// equalizer sleeps a jittered duration on every authentication attempt so
// that failures and absent-user lookups are statistically indistinguishable
// from successes. The sleep blocks only the calling goroutine and honors
// request-lifetime cancellation.
type equalizer struct {
	cfg TimingConfig
}

func newEqualizer(cfg TimingConfig) *equalizer {
	// Clamp rather than reject: negative settings mean "no delay", and a
	// swapped random range is fixed up silently.
	if cfg.Wait < 0 {
		cfg.Wait = 0
	}
	if cfg.WaitNoUser < 0 {
		cfg.WaitNoUser = 0
	}
	if cfg.WaitRandomMin < 0 {
		cfg.WaitRandomMin = 0
	}
	if cfg.WaitRandomMax < 0 {
		cfg.WaitRandomMax = 0
	}
	if cfg.WaitRandomMin > cfg.WaitRandomMax {
		cfg.WaitRandomMin, cfg.WaitRandomMax = cfg.WaitRandomMax, cfg.WaitRandomMin
	}
	return &equalizer{cfg: cfg}
}

// delay computes the sleep for one attempt.
func (eq *equalizer) delay(knownUser bool) time.Duration {
	d := eq.cfg.Wait
	if !knownUser {
		d += eq.cfg.WaitNoUser
	}
	span := int64(eq.cfg.WaitRandomMax - eq.cfg.WaitRandomMin)
	jitter, err := internal.UniformInt64(span)
	if err != nil {
		// Degenerate random source: fall back to the upper bound so the
		// delay never undershoots.
		jitter = span
	}
	return d + eq.cfg.WaitRandomMin + time.Duration(jitter)
}

// Wait sleeps the computed delay, returning early only when ctx is done.
func (eq *equalizer) Wait(ctx context.Context, knownUser bool) {
	d := eq.delay(knownUser)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

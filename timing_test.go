package goLogin

import (
	"context"
	"testing"
	"time"
)

func TestEqualizerDelayBounds(t *testing.T) {
	eq := newEqualizer(TimingConfig{
		Wait:          10 * time.Millisecond,
		WaitRandomMin: 5 * time.Millisecond,
		WaitRandomMax: 15 * time.Millisecond,
		WaitNoUser:    20 * time.Millisecond,
	})

	for i := 0; i < 100; i++ {
		d := eq.delay(true)
		if d < 15*time.Millisecond || d > 25*time.Millisecond {
			t.Fatalf("known-user delay %v out of [15ms, 25ms]", d)
		}
		d = eq.delay(false)
		if d < 35*time.Millisecond || d > 45*time.Millisecond {
			t.Fatalf("unknown-user delay %v out of [35ms, 45ms]", d)
		}
	}
}

func TestEqualizerClampsNegatives(t *testing.T) {
	eq := newEqualizer(TimingConfig{
		Wait:          -time.Second,
		WaitRandomMin: -time.Second,
		WaitRandomMax: -time.Second,
		WaitNoUser:    -time.Second,
	})
	if d := eq.delay(false); d != 0 {
		t.Fatalf("expected zero delay, got %v", d)
	}
}

func TestEqualizerSwapsReversedRange(t *testing.T) {
	eq := newEqualizer(TimingConfig{
		WaitRandomMin: 10 * time.Millisecond,
		WaitRandomMax: 2 * time.Millisecond,
	})
	for i := 0; i < 100; i++ {
		d := eq.delay(true)
		if d < 2*time.Millisecond || d > 10*time.Millisecond {
			t.Fatalf("delay %v out of swapped range [2ms, 10ms]", d)
		}
	}
}

func TestEqualizerWaitHonorsCancellation(t *testing.T) {
	eq := newEqualizer(TimingConfig{Wait: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	eq.Wait(ctx, true)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Wait ignored cancellation, took %v", elapsed)
	}
}

func TestEqualizerZeroConfigReturnsImmediately(t *testing.T) {
	eq := newEqualizer(TimingConfig{})

	start := time.Now()
	eq.Wait(context.Background(), false)
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("zero config must not sleep, took %v", elapsed)
	}
}

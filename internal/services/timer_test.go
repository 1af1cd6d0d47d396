package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestReservationTimer_ExpiresOnce(t *testing.T) {
	var expirations int32
	timer := NewReservationTimer(3, 0, TimerHooks{
		OnExpire: func() { atomic.AddInt32(&expirations, 1) },
	})
	timer.SetTickInterval(5 * time.Millisecond)
	timer.Start()

	waitFor(t, 2*time.Second, func() bool { return timer.Expired() })

	// Give a stray tick the chance to double-fire.
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Errorf("expiry fired %d times, want 1", got)
	}
}

func TestReservationTimer_SoftWarningOnce(t *testing.T) {
	var warnings int32
	timer := NewReservationTimer(10, 2, TimerHooks{
		OnSoftWarning: func() { atomic.AddInt32(&warnings, 1) },
	})
	timer.SetTickInterval(5 * time.Millisecond)
	timer.Start()
	defer timer.Stop()

	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&warnings) >= 1 })

	// Several more ticks pass the threshold again; the warning must not repeat.
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&warnings); got != 1 {
		t.Errorf("soft warning fired %d times, want 1", got)
	}
}

func TestReservationTimer_NoWarningWithoutThreshold(t *testing.T) {
	var warnings int32
	timer := NewReservationTimer(3, 0, TimerHooks{
		OnSoftWarning: func() { atomic.AddInt32(&warnings, 1) },
	})
	timer.SetTickInterval(5 * time.Millisecond)
	timer.Start()

	waitFor(t, 2*time.Second, func() bool { return timer.Expired() })

	if got := atomic.LoadInt32(&warnings); got != 0 {
		t.Errorf("soft warning fired %d times without a threshold", got)
	}
}

func TestReservationTimer_StoppedNeverExpires(t *testing.T) {
	var expirations int32
	timer := NewReservationTimer(2, 0, TimerHooks{
		OnExpire: func() { atomic.AddInt32(&expirations, 1) },
	})
	timer.SetTickInterval(5 * time.Millisecond)
	timer.Start()
	timer.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Errorf("stopped timer fired expiry %d times", got)
	}
	if timer.Expired() {
		t.Error("stopped timer should not report expired")
	}
}

func TestReservationTimer_StopIdempotent(t *testing.T) {
	timer := NewReservationTimer(5, 0, TimerHooks{})
	timer.Start()
	timer.Stop()
	timer.Stop()
	timer.Stop()
}

func TestReservationTimer_RemainingCountsDown(t *testing.T) {
	timer := NewReservationTimer(100, 0, TimerHooks{})
	timer.SetTickInterval(5 * time.Millisecond)
	timer.Start()
	defer timer.Stop()

	waitFor(t, 2*time.Second, func() bool { return timer.Remaining() < 100 })
}

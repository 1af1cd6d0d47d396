package services

import (
	"sync"
	"time"
)

// ReservationTimer is the cooperative countdown bound to one claim. It is
// created once per claimed task and stopped when the task leaves the
// assigned state by any path. Reaching zero invokes the expiry hook exactly
// once; the hook's release is idempotent, so a duplicate call downstream is
// harmless. The soft warning fires at most once, when elapsed time passes
// the project's average handle time, and never releases anything.
type ReservationTimer struct {
	mu            sync.Mutex
	remaining     int
	total         int
	ahtThreshold  int
	tick          time.Duration
	warned        bool
	stopped       bool
	expired       bool
	onExpire      func()
	onSoftWarning func()
	done          chan struct{}
}

type TimerHooks struct {
	OnExpire      func()
	OnSoftWarning func()
}

func NewReservationTimer(limitSeconds, ahtSeconds int, hooks TimerHooks) *ReservationTimer {
	if limitSeconds < 1 {
		limitSeconds = 1
	}
	return &ReservationTimer{
		remaining:     limitSeconds,
		total:         limitSeconds,
		ahtThreshold:  ahtSeconds,
		tick:          time.Second,
		onExpire:      hooks.OnExpire,
		onSoftWarning: hooks.OnSoftWarning,
		done:          make(chan struct{}),
	}
}

// SetTickInterval overrides the one-second tick. Tests use this to compress
// long reservations.
func (t *ReservationTimer) SetTickInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > 0 {
		t.tick = d
	}
}

func (t *ReservationTimer) Start() {
	go t.run()
}

func (t *ReservationTimer) run() {
	t.mu.Lock()
	interval := t.tick
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expire, warn := t.step()
			if warn && t.onSoftWarning != nil {
				t.onSoftWarning()
			}
			if expire {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		case <-t.done:
			return
		}
	}
}

// step advances the countdown by one tick and reports whether the expiry or
// the soft warning should fire. A stopped timer never fires after Stop.
func (t *ReservationTimer) step() (expire bool, warn bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.expired {
		return false, false
	}

	t.remaining--

	elapsed := t.total - t.remaining
	if !t.warned && t.ahtThreshold > 0 && elapsed >= t.ahtThreshold {
		t.warned = true
		warn = true
	}

	if t.remaining <= 0 {
		t.expired = true
		expire = true
	}
	return expire, warn
}

// Stop cancels the countdown. Idempotent; safe to call from any exit path.
func (t *ReservationTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

func (t *ReservationTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *ReservationTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

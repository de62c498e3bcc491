package consensus

import (
	"sync"
	"time"
)

// heartbeatTimer is a one-shot, reschedulable timer for the failure
// detector. The callback never touches detector state; it enqueues an
// EPFD_TIMEOUT marker so the dispatcher thread performs the round.
type heartbeatTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	fire    func()
	stopped bool
}

func newHeartbeatTimer(fire func()) *heartbeatTimer {
	return &heartbeatTimer{fire: fire}
}

// Schedule arms the timer for one shot after d, replacing any pending
// shot.
func (t *heartbeatTimer) Schedule(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			t.fire()
		}
	})
}

// Stop cancels any pending shot; the timer cannot be rearmed after.
func (t *heartbeatTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

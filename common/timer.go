package common

import "time"

// Timer is a resettable watchdog. The callback fires when the duration
// elapses without a Reset; each Reset re-arms it for another round, so a
// watchdog can trip more than once over the process lifetime.
type Timer struct {
	timer   *time.Timer
	quit    chan struct{}
	started bool
}

func (t *Timer) Start(duration time.Duration, callback func()) {
	t.started = true
	t.quit = make(chan struct{})
	t.timer = time.NewTimer(duration)

	go func() {
		for {
			select {
			case <-t.timer.C:
				go callback()
			case <-t.quit:
				if !t.timer.Stop() {
					select {
					case <-t.timer.C:
					default:
					}
				}
				return
			}
		}
	}()
}

func (t *Timer) Stop() {
	if t.started {
		close(t.quit)
	}
	t.started = false
}

func (t *Timer) Reset(duration time.Duration) {
	if t.timer != nil {
		t.timer.Reset(duration)
	}
}

package common

import "time"

// Ticker runs a callback immediately and then on a fixed cadence until
// stopped. Callbacks that must not race the owner's state should only post
// an event onto the owner's event channel.
type Ticker struct {
	quit    chan struct{}
	started bool
}

func (t *Ticker) Start(interval time.Duration, callback func()) {
	t.started = true
	t.quit = make(chan struct{})

	ticker := time.NewTicker(interval)
	go callback()
	go func() {
		for {
			select {
			case <-ticker.C:
				callback()
			case <-t.quit:
				ticker.Stop()
				return
			}
		}
	}()
}

func (t *Ticker) Stop() {
	if t.started {
		close(t.quit)
		t.started = false
	}
}

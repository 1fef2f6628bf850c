package controller

import (
	"context"
	"sync"
	"time"
)

// rotation cycles display-only status strings until stopped
type rotation struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startRotation(interval time.Duration, messages []string, set func(string)) *rotation {
	ctx, cancel := context.WithCancel(context.Background())
	r := &rotation{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		if len(messages) == 0 || interval <= 0 {
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// a stop may race the tick; never publish after cancellation
				if ctx.Err() != nil {
					return
				}
				set(messages[i%len(messages)])
				i++
			}
		}
	}()

	return r
}

// stop cancels the rotation and waits for its goroutine to exit
func (r *rotation) stop() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})
}

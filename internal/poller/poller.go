package poller

import (
	"context"
	"sync"
	"time"

	"tamv/internal/logger"
)

// Poller runs pollMethod every interval until its context ends or Stop is
// called.
type Poller struct {
	name       string
	interval   time.Duration
	quit       chan struct{}
	once       sync.Once
	pollMethod func(ctx context.Context) error
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return &Poller{
		name:       name,
		interval:   interval,
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
}

// Start blocks; run it in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := logger.With("poller", p.name)
	log.Info("starting poller", "interval", p.interval.String())

	for {
		select {
		case <-ticker.C:
			if err := p.pollMethod(ctx); err != nil {
				log.Error("poll failed", "error", err)
			}
		case <-ctx.Done():
			log.Info("poller stopped due to context cancellation")
			return
		case <-p.quit:
			log.Info("poller stopped")
			return
		}
	}
}

// Stop ends Start. Calling it more than once is safe.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.quit) })
}

// Package agent implements the fixed-interval collection driver.
package agent

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/varnishgraphite/internal/config"
	"github.com/vshulcz/varnishgraphite/internal/ports"
)

// Service runs the tick loop: collect, hand the samples to the publisher,
// then sleep whatever is left of the interval. Ticks never overlap; work that
// overruns the interval just shortens the sleep to zero, skipped time is not
// caught up.
type Service struct {
	cfg       config.AgentConfig
	collector ports.Collector
	extra     []ports.Collector
	pub       ports.Publisher
	log       *zap.Logger

	ticks       atomic.Int64
	failedTicks atomic.Int64
	lastErr     atomic.Value // string
}

// Option customizes a Service.
type Option func(*Service)

// WithExtraCollector adds a best-effort secondary collector. Its failures are
// logged and skipped instead of failing the tick.
func WithExtraCollector(c ports.Collector) Option {
	return func(s *Service) { s.extra = append(s.extra, c) }
}

func New(cfg config.AgentConfig, collector ports.Collector, pub ports.Publisher, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{cfg: cfg, collector: collector, pub: pub, log: log}
	for _, f := range opts {
		f(s)
	}
	return s
}

// Run blocks until ctx is done, then disconnects the publisher and returns nil.
func (s *Service) Run(ctx context.Context) error {
	defer s.pub.Disconnect()

	for {
		start := time.Now()
		s.tick(ctx)

		wait := s.cfg.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	s.ticks.Add(1)

	samples, err := s.collector.Collect(ctx)
	if err != nil {
		s.failedTicks.Add(1)
		s.lastErr.Store(err.Error())
		s.log.Warn("collection failed, skipping tick", zap.Error(err))
		return
	}

	for _, c := range s.extra {
		more, err := c.Collect(ctx)
		if err != nil {
			s.log.Warn("secondary collection failed", zap.Error(err))
			continue
		}
		samples = append(samples, more...)
	}

	s.pub.Accept(samples)
	s.log.Debug("tick reported", zap.Int("samples", len(samples)))
}

// TickStats is a point-in-time snapshot of the loop's progress.
type TickStats struct {
	Ticks       int64  `json:"ticks"`
	FailedTicks int64  `json:"failed_ticks"`
	LastError   string `json:"last_error,omitempty"`
}

// TickStats is safe to call from any goroutine.
func (s *Service) TickStats() TickStats {
	st := TickStats{
		Ticks:       s.ticks.Load(),
		FailedTicks: s.failedTicks.Load(),
	}
	if v, ok := s.lastErr.Load().(string); ok {
		st.LastError = v
	}
	return st
}

// Package varnish extracts cache and backend counters from varnishstat.
package varnish

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/vshulcz/varnishgraphite/internal/domain"
	"github.com/vshulcz/varnishgraphite/internal/ports"
)

// counters maps the published metric suffix to the varnishstat counter key.
// Order is fixed so every tick emits the same sequence. Varnish 4+ prefixes
// the keys with "MAIN.", which lookup handles as a fallback.
var counters = []struct {
	name string
	key  string
}{
	{"cache.hit", "cache_hit"},
	{"cache.hitpass", "cache_hitpass"},
	{"cache.miss", "cache_miss"},
	{"backend.conn", "backend_conn"},
	{"backend.unhealthy", "backend_unhealthy"},
	{"backend.busy", "backend_busy"},
	{"backend.fail", "backend_fail"},
	{"backend.reuse", "backend_reuse"},
	{"backend.toolate", "backend_toolate"},
	{"backend.recycle", "backend_recycle"},
	{"backend.retry", "backend_retry"},
	{"backend.req", "backend_req"},
	{"client.conn", "client_conn"},
	{"client.drop", "client_drop"},
	{"client.req", "client_req"},
	{"client.hdrbytes", "s_hdrbytes"},
	{"client.bodybytes", "s_bodybytes"},
}

// Collector invokes varnishstat and maps its JSON output to samples.
type Collector struct {
	run func(ctx context.Context) ([]byte, error)
	now func() time.Time
}

var _ ports.Collector = (*Collector)(nil)

// Option customizes a Collector.
type Option func(*Collector)

// WithRunner overrides how varnishstat output is obtained.
func WithRunner(run func(ctx context.Context) ([]byte, error)) Option {
	return func(c *Collector) { c.run = run }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

func New(opts ...Option) *Collector {
	c := &Collector{
		run: runVarnishstat,
		now: time.Now,
	}
	for _, f := range opts {
		f(c)
	}
	return c
}

func runVarnishstat(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "varnishstat", "-1", "-j").Output()
	if err != nil {
		return nil, fmt.Errorf("varnishstat: %w", err)
	}
	return out, nil
}

// Collect runs varnishstat once and returns the fixed counter set, every
// sample carrying the same collection timestamp. Any missing counter fails
// the whole tick.
func (c *Collector) Collect(ctx context.Context) ([]domain.Sample, error) {
	out, err := c.run(ctx)
	if err != nil {
		return nil, err
	}

	var stats map[string]json.RawMessage
	if err := json.Unmarshal(out, &stats); err != nil {
		return nil, fmt.Errorf("decode varnishstat output: %w", err)
	}

	ts := c.now().Unix()
	samples := make([]domain.Sample, 0, len(counters))
	for _, ctr := range counters {
		raw, ok := stats[ctr.key]
		if !ok {
			raw, ok = stats["MAIN."+ctr.key]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingCounter, ctr.key)
		}
		var field struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &field); err != nil {
			return nil, fmt.Errorf("counter %s: %w", ctr.key, err)
		}
		samples = append(samples, domain.Sample{
			Name:      ctr.name,
			Value:     field.Value,
			Timestamp: ts,
		})
	}
	return samples, nil
}

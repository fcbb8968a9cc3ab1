// Package host implements an optional collector for host CPU/RAM gauges.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/varnishgraphite/internal/domain"
	"github.com/vshulcz/varnishgraphite/internal/ports"
)

// Collector samples host memory and per-core CPU utilization. Its samples
// travel the same stream as the varnish counters, under the host.* suffix.
type Collector struct {
	now func() time.Time
}

var _ ports.Collector = (*Collector)(nil)

func New() *Collector {
	return &Collector{now: time.Now}
}

func (c *Collector) Collect(ctx context.Context) ([]domain.Sample, error) {
	ts := c.now().Unix()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host memory: %w", err)
	}
	samples := []domain.Sample{
		{Name: "host.mem.total", Value: float64(vm.Total), Timestamp: ts},
		{Name: "host.mem.free", Value: float64(vm.Free), Timestamp: ts},
	}

	pct, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("host cpu: %w", err)
	}
	for i, p := range pct {
		samples = append(samples, domain.Sample{
			Name:      fmt.Sprintf("host.cpu%d", i+1),
			Value:     p,
			Timestamp: ts,
		})
	}
	return samples, nil
}

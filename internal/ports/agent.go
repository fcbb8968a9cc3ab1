package ports

import (
	"context"

	"github.com/vshulcz/varnishgraphite/internal/domain"
)

// Collector produces one tick's worth of samples.
type Collector interface {
	Collect(ctx context.Context) ([]domain.Sample, error)
}

// Publisher ships samples to the collector endpoint on a best-effort basis.
// Accept never returns an error: network failures are absorbed and retried
// opportunistically on the next call.
type Publisher interface {
	Accept(samples []domain.Sample)
	Disconnect()
}

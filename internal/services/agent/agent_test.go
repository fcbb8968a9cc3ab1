package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vshulcz/varnishgraphite/internal/config"
	"github.com/vshulcz/varnishgraphite/internal/domain"
)

type fakeCollector struct {
	mu      sync.Mutex
	calls   int
	samples []domain.Sample
	err     error
}

func (f *fakeCollector) Collect(context.Context) ([]domain.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func (f *fakeCollector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu           sync.Mutex
	accepted     [][]domain.Sample
	disconnected int
}

func (f *fakePublisher) Accept(samples []domain.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]domain.Sample, len(samples))
	copy(cp, samples)
	f.accepted = append(f.accepted, cp)
}

func (f *fakePublisher) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected++
}

func testConfig(interval time.Duration) config.AgentConfig {
	return config.AgentConfig{
		Host:          "127.0.0.1",
		Port:          2003,
		Prefix:        "varnish",
		Interval:      interval,
		BufferSize:    1428,
		MaxBufferSize: 1 << 20,
	}
}

func TestRun_TicksAndDisconnectsOnCancel(t *testing.T) {
	col := &fakeCollector{samples: []domain.Sample{{Name: "cache.hit", Value: 1, Timestamp: 10}}}
	pub := &fakePublisher{}
	svc := New(testConfig(10*time.Millisecond), col, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		if err := svc.Run(ctx); err != nil {
			t.Errorf("Run returned error: %v", err)
		}
		close(done)
	}()

	time.Sleep(45 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got := col.callCount(); got < 2 {
		t.Fatalf("collector called %d times, want >= 2", got)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.accepted) < 2 {
		t.Fatalf("publisher accepted %d batches, want >= 2", len(pub.accepted))
	}
	if pub.disconnected != 1 {
		t.Fatalf("Disconnect called %d times on shutdown, want 1", pub.disconnected)
	}
}

func TestRun_CollectionFailureSkipsTick(t *testing.T) {
	col := &fakeCollector{err: errors.New("varnishstat: exit status 1")}
	pub := &fakePublisher{}
	svc := New(testConfig(5*time.Millisecond), col, pub, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pub.mu.Lock()
	accepted := len(pub.accepted)
	pub.mu.Unlock()
	if accepted != 0 {
		t.Fatalf("publisher accepted %d batches despite failing collector, want 0", accepted)
	}

	st := svc.TickStats()
	if st.Ticks == 0 || st.FailedTicks != st.Ticks {
		t.Fatalf("tick stats = %+v, want every tick failed", st)
	}
	if st.LastError == "" {
		t.Fatal("last error not recorded")
	}
}

func TestRun_ExtraCollectorFailureIsSoft(t *testing.T) {
	col := &fakeCollector{samples: []domain.Sample{{Name: "cache.hit", Value: 1, Timestamp: 10}}}
	extra := &fakeCollector{err: errors.New("no host stats")}
	pub := &fakePublisher{}
	svc := New(testConfig(5*time.Millisecond), col, pub, nil, WithExtraCollector(extra))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.accepted) == 0 {
		t.Fatal("primary samples were not delivered when the extra collector failed")
	}
	for _, batch := range pub.accepted {
		if len(batch) != 1 || batch[0].Name != "cache.hit" {
			t.Fatalf("unexpected batch: %+v", batch)
		}
	}
	if st := svc.TickStats(); st.FailedTicks != 0 {
		t.Fatalf("extra collector failure counted as failed tick: %+v", st)
	}
}

func TestRun_MergesExtraCollectorSamples(t *testing.T) {
	col := &fakeCollector{samples: []domain.Sample{{Name: "cache.hit", Value: 1, Timestamp: 10}}}
	extra := &fakeCollector{samples: []domain.Sample{{Name: "host.mem.free", Value: 2, Timestamp: 10}}}
	pub := &fakePublisher{}
	svc := New(testConfig(5*time.Millisecond), col, pub, nil, WithExtraCollector(extra))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.accepted) == 0 {
		t.Fatal("no batches delivered")
	}
	batch := pub.accepted[0]
	if len(batch) != 2 || batch[0].Name != "cache.hit" || batch[1].Name != "host.mem.free" {
		t.Fatalf("merged batch = %+v", batch)
	}
}

package host

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCollect_HostGauges(t *testing.T) {
	c := New()
	c.now = func() time.Time { return time.Unix(500, 0) }

	samples, err := c.Collect(context.Background())
	if err != nil {
		t.Skipf("host stats unavailable in this environment: %v", err)
	}
	if len(samples) < 2 {
		t.Fatalf("got %d samples, want at least mem.total and mem.free", len(samples))
	}
	if samples[0].Name != "host.mem.total" || samples[1].Name != "host.mem.free" {
		t.Fatalf("unexpected leading samples: %q, %q", samples[0].Name, samples[1].Name)
	}
	if samples[0].Value <= 0 {
		t.Errorf("host.mem.total = %v, want > 0", samples[0].Value)
	}
	for _, s := range samples {
		if !strings.HasPrefix(s.Name, "host.") {
			t.Errorf("sample %q lacks host. suffix namespace", s.Name)
		}
		if s.Timestamp != 500 {
			t.Errorf("sample %q timestamp = %d, want 500", s.Name, s.Timestamp)
		}
	}
}

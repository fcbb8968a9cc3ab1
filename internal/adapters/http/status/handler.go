// Package status exposes a local HTTP endpoint for inspecting the agent.
package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/varnishgraphite/internal/adapters/publisher/graphite"
	agentsvc "github.com/vshulcz/varnishgraphite/internal/services/agent"
)

// Snapshot is the /status response body.
type Snapshot struct {
	Uptime       string             `json:"uptime"`
	Graphite     graphite.Stats     `json:"graphite"`
	Loop         agentsvc.TickStats `json:"loop"`
	HostMemTotal uint64             `json:"host_mem_total,omitempty"`
	HostMemFree  uint64             `json:"host_mem_free,omitempty"`
}

// Handler serves health and status requests from live agent counters.
type Handler struct {
	stats   func() graphite.Stats
	ticks   func() agentsvc.TickStats
	started time.Time
}

func NewHandler(stats func() graphite.Stats, ticks func() agentsvc.TickStats) *Handler {
	return &Handler{stats: stats, ticks: ticks, started: time.Now()}
}

// Health handles `GET /healthz`.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Status handles `GET /status`.
func (h *Handler) Status(c *gin.Context) {
	snap := Snapshot{
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Graphite: h.stats(),
		Loop:     h.ticks(),
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		snap.HostMemTotal = vm.Total
		snap.HostMemFree = vm.Free
	}
	c.JSON(http.StatusOK, snap)
}

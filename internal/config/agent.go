// Package config loads the agent configuration from flags and environment.
package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	defaultHost          = "127.0.0.1"
	defaultPort          = 2003
	defaultPrefix        = "varnish"
	defaultInterval      = 10
	defaultBufferSize    = 1428
	defaultMaxBufferSize = 32 * 1024 * 1024
)

// AgentConfig is immutable for the process lifetime.
type AgentConfig struct {
	Host          string
	Port          int
	Prefix        string
	Interval      time.Duration
	BufferSize    int
	MaxBufferSize int

	// StatusAddr enables the local status endpoint when non-empty.
	StatusAddr string
	// HostMetrics adds host CPU/RAM gauges to the outgoing stream.
	HostMetrics bool
}

// GraphiteAddr returns the collector endpoint in host:port form.
func (c AgentConfig) GraphiteAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ENV > CLI > defaults
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("varnishgraphite", flag.ContinueOnError)
	fs.SetOutput(out)

	hostOpt := fs.String("host", "", fmt.Sprintf("graphite host, default: %s", defaultHost))
	portOpt := fs.Int("port", 0, fmt.Sprintf("graphite plaintext port, default: %d", defaultPort))
	prefixOpt := fs.String("prefix", "", fmt.Sprintf("metric name prefix, default: %s", defaultPrefix))
	intervalOpt := fs.Int("interval", 0, fmt.Sprintf("collection interval in seconds, default: %d", defaultInterval))
	bufOpt := fs.Int("buffer-size", 0, fmt.Sprintf("flush threshold in bytes, default: %d", defaultBufferSize))
	maxBufOpt := fs.Int("max-buffer-size", 0, fmt.Sprintf("max buffered bytes while disconnected, default: %d", defaultMaxBufferSize))
	statusOpt := fs.String("status-addr", "", "listen address for the status endpoint (disabled when empty)")
	hostMetricsOpt := fs.Bool("host-metrics", false, "also report host CPU/RAM gauges")

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	cfg := AgentConfig{
		Host:          FromEnvOrFlag("GRAPHITE_HOST", *hostOpt, defaultHost),
		Port:          FromEnvOrFlagInt("GRAPHITE_PORT", *portOpt, defaultPort, 1),
		Prefix:        FromEnvOrFlag("PREFIX", *prefixOpt, defaultPrefix),
		Interval:      FromEnvOrFlagDuration("INTERVAL", *intervalOpt, defaultInterval),
		BufferSize:    FromEnvOrFlagInt("BUFFER_SIZE", *bufOpt, defaultBufferSize, 1),
		MaxBufferSize: FromEnvOrFlagInt("MAX_BUFFER_SIZE", *maxBufOpt, defaultMaxBufferSize, 1),
		StatusAddr:    FromEnvOrFlag("STATUS_ADDRESS", *statusOpt, ""),
		HostMetrics:   FromEnvOrFlagBool("HOST_METRICS", *hostMetricsOpt, false),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return AgentConfig{}, fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.Interval <= 0 {
		return AgentConfig{}, fmt.Errorf("interval must be > 0, got %v", cfg.Interval)
	}
	if cfg.MaxBufferSize < cfg.BufferSize {
		return AgentConfig{}, fmt.Errorf("max buffer size %d smaller than flush threshold %d", cfg.MaxBufferSize, cfg.BufferSize)
	}

	return cfg, nil
}

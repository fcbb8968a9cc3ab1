// Package graphite implements a buffered TCP client for the Graphite
// plaintext protocol.
package graphite

import (
	"bytes"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vshulcz/varnishgraphite/internal/domain"
	"github.com/vshulcz/varnishgraphite/internal/ports"
)

// Client ships metric lines to a single Graphite endpoint over one persistent
// TCP connection. Delivery is best-effort: on any transport error the
// connection is dropped and re-established lazily on the next Accept call, and
// lines that would push the buffer past the hard cap are discarded.
//
// The buffer and connection have exactly one mutator (the driver loop), so no
// locking is used on the send path. The stat counters are atomics because the
// status endpoint reads them from another goroutine.
type Client struct {
	addr          string
	prefix        string
	bufferSize    int
	maxBufferSize int

	dial func() (net.Conn, error)
	conn net.Conn
	buf  bytes.Buffer
	log  *zap.Logger

	connected     atomic.Bool
	buffered      atomic.Int64
	sentBytes     atomic.Int64
	droppedBytes  atomic.Int64
	droppedLines  atomic.Int64
	flushes       atomic.Int64
	sendErrors    atomic.Int64
	connectErrors atomic.Int64
}

var _ ports.Publisher = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithDialer overrides how the client opens connections.
func WithDialer(dial func() (net.Conn, error)) Option {
	return func(c *Client) { c.dial = dial }
}

// New returns a disconnected Client; no connection attempt is made until the
// first Accept call.
func New(addr, prefix string, bufferSize, maxBufferSize int, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		addr:          addr,
		prefix:        prefix,
		bufferSize:    bufferSize,
		maxBufferSize: maxBufferSize,
		log:           log,
	}
	for _, f := range opts {
		f(c)
	}
	if c.dial == nil {
		c.dial = func() (net.Conn, error) { return net.Dial("tcp", addr) }
	}
	return c
}

// Accept renders the samples into metric lines and buffers them for delivery.
// While connected, crossing the flush threshold triggers one flush before the
// buffer keeps growing. While disconnected, one reconnect is attempted per
// call, and lines accumulate up to the hard cap; excess lines are dropped.
func (c *Client) Accept(samples []domain.Sample) {
	var line []byte
	dialed := false
	for _, s := range samples {
		line = appendLine(line[:0], c.prefix, s)

		if c.conn == nil && !dialed {
			dialed = true
			c.connect()
		}
		if c.conn != nil && c.buf.Len()+len(line) > c.bufferSize {
			c.flush()
		}
		if c.buf.Len()+len(line) < c.maxBufferSize {
			c.buf.Write(line)
		} else {
			c.droppedBytes.Add(int64(len(line)))
			c.droppedLines.Add(1)
		}
	}
	c.buffered.Store(int64(c.buf.Len()))
}

// flush writes the buffered lines to the socket. The buffer is cleared no
// matter how the write goes: an interrupted flush loses its content rather
// than being resumed at byte granularity.
func (c *Client) flush() {
	n := c.buf.Len()
	defer func() {
		c.buf.Reset()
		c.buffered.Store(0)
	}()

	if c.conn == nil || n == 0 {
		return
	}
	if _, err := c.conn.Write(c.buf.Bytes()); err != nil {
		c.sendErrors.Add(1)
		c.log.Warn("graphite send failed, dropping connection",
			zap.String("addr", c.addr),
			zap.Int("lost_bytes", n),
			zap.Error(err),
		)
		c.closeConn()
		return
	}
	c.flushes.Add(1)
	c.sentBytes.Add(int64(n))
}

func (c *Client) connect() {
	conn, err := c.dial()
	if err != nil {
		c.connectErrors.Add(1)
		c.log.Warn("graphite connect failed", zap.String("addr", c.addr), zap.Error(err))
		return
	}
	c.conn = conn
	c.connected.Store(true)
	c.log.Info("connected to graphite", zap.String("addr", c.addr))
}

// Disconnect closes the connection if one is held. Idempotent.
func (c *Client) Disconnect() {
	if c.conn != nil {
		c.closeConn()
	}
}

func (c *Client) closeConn() {
	if err := c.conn.Close(); err != nil {
		c.log.Debug("graphite close failed", zap.Error(err))
	}
	c.conn = nil
	c.connected.Store(false)
}

// Stats is a point-in-time snapshot of the client's delivery counters.
type Stats struct {
	Connected     bool  `json:"connected"`
	BufferedBytes int64 `json:"buffered_bytes"`
	SentBytes     int64 `json:"sent_bytes"`
	DroppedBytes  int64 `json:"dropped_bytes"`
	DroppedLines  int64 `json:"dropped_lines"`
	Flushes       int64 `json:"flushes"`
	SendErrors    int64 `json:"send_errors"`
	ConnectErrors int64 `json:"connect_errors"`
}

// Stats is safe to call from any goroutine.
func (c *Client) Stats() Stats {
	return Stats{
		Connected:     c.connected.Load(),
		BufferedBytes: c.buffered.Load(),
		SentBytes:     c.sentBytes.Load(),
		DroppedBytes:  c.droppedBytes.Load(),
		DroppedLines:  c.droppedLines.Load(),
		Flushes:       c.flushes.Load(),
		SendErrors:    c.sendErrors.Load(),
		ConnectErrors: c.connectErrors.Load(),
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/varnishgraphite/internal/adapters/collector/host"
	"github.com/vshulcz/varnishgraphite/internal/adapters/collector/varnish"
	"github.com/vshulcz/varnishgraphite/internal/adapters/http/status"
	"github.com/vshulcz/varnishgraphite/internal/adapters/publisher/graphite"
	"github.com/vshulcz/varnishgraphite/internal/config"
	agentsvc "github.com/vshulcz/varnishgraphite/internal/services/agent"
)

func main() {
	cfg, err := config.LoadAgentConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	pub := graphite.New(cfg.GraphiteAddr(), cfg.Prefix, cfg.BufferSize, cfg.MaxBufferSize, logger)
	collector := varnish.New()

	var opts []agentsvc.Option
	if cfg.HostMetrics {
		opts = append(opts, agentsvc.WithExtraCollector(host.New()))
	}
	svc := agentsvc.New(cfg, collector, pub, logger, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("agent started",
		zap.String("graphite", cfg.GraphiteAddr()),
		zap.String("prefix", cfg.Prefix),
		zap.Duration("interval", cfg.Interval),
		zap.Int("buffer_size", cfg.BufferSize),
		zap.Int("max_buffer_size", cfg.MaxBufferSize),
		zap.String("status_addr", cfg.StatusAddr),
		zap.Bool("host_metrics", cfg.HostMetrics),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(ctx)
	})

	if cfg.StatusAddr != "" {
		h := status.NewHandler(pub.Stats, svc.TickStats)
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           status.NewRouter(h, status.ZapLogger(logger)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("agent stopped", zap.Error(err))
	}
	logger.Info("agent stopped")
}

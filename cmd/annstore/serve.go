package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nainya/annstore/internal/config"
	"github.com/nainya/annstore/internal/logger"
	"github.com/nainya/annstore/internal/metrics"
	"github.com/nainya/annstore/internal/server"
	"github.com/nainya/annstore/pkg/annotator"
	"github.com/nainya/annstore/pkg/projectconf"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var grpcPort, metricsPort int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC annotation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.GrpcPort = grpcPort
			}
			if cmd.Flags().Changed("metrics-port") {
				cfg.Server.MetricsPort = metricsPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&grpcPort, "port", 0, "gRPC port")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "metrics and health HTTP port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	log.LogServerStart(cfg.Server.GrpcPort, cfg.Storage.DataDir)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	store, err := newStore(cfg, log, j, m)
	if err != nil {
		return err
	}

	types, watch, err := typeSource(cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Options{
		DataDir: cfg.Storage.DataDir,
		Store:   store,
		Types:   types,
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GrpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
		grpc.MaxRecvMsgSize(16*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
	)
	server.RegisterAnnotationServiceServer(grpcServer, srv)
	obs := server.NewObservabilityServer(cfg.Server.MetricsPort, reg, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(obs.Start)
	if watch != nil {
		g.Go(func() error { return watch(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.LogServerShutdown()
		obs.SetReady(false)
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	obs.SetReady(true)
	log.LogServerReady(cfg.Server.GrpcPort)
	return g.Wait()
}

// typeSource picks the type configuration: one fixed file when
// configured, otherwise annotation.yaml files found in the collection,
// kept fresh by a watcher
func typeSource(cfg *config.Config, log *logger.Logger) (server.TypeSource, func(context.Context) error, error) {
	if cfg.TypesFile != "" {
		conf, err := projectconf.Load(cfg.TypesFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Loaded type configuration").Str("path", conf.Path()).Send()
		return func(string) (annotator.TypeConfig, error) { return conf, nil }, nil, nil
	}

	cache := projectconf.NewCache(cfg.Storage.DataDir, log.Zerolog())
	types := func(dir string) (annotator.TypeConfig, error) {
		conf, err := cache.Get(dir)
		if err != nil {
			return nil, err
		}
		return conf, nil
	}
	return types, cache.Watch, nil
}

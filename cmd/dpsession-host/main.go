// dpsession-host daemon -- peer-to-peer session host (DirectPlay8-style
// full-mesh session engine).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelnet/dpsession/internal/config"
	"github.com/kestrelnet/dpsession/internal/discovery"
	sessionmetrics "github.com/kestrelnet/dpsession/internal/metrics"
	"github.com/kestrelnet/dpsession/internal/session"
	"github.com/kestrelnet/dpsession/internal/transport"
	"github.com/kestrelnet/dpsession/internal/wire"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// closeGraceWindow is how long Close(false) is given to drain peer send
// queues before the process exits regardless.
const closeGraceWindow = 2 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}
	if err := config.ValidateForHosting(cfg); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("invalid configuration for hosting",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("dpsession-host starting",
		slog.String("bind_addr", cfg.Transport.BindAddr),
		slog.Int("discovery_port", cfg.Transport.DiscoveryPort),
		slog.String("session_name", cfg.Session.Name),
	)

	if err := runDaemon(cfg, logger); err != nil {
		logger.Error("dpsession-host exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("dpsession-host stopped")
	return 0
}

// runDaemon wires the transport sockets, the session engine, the
// discovery responder, and the metrics HTTP server together under an
// errgroup with signal-aware context for graceful shutdown.
func runDaemon(cfg *config.Config, logger *slog.Logger) error {
	appGUID, err := cfg.Session.ApplicationGUIDValue()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := sessionmetrics.NewCollector(reg)

	sockets, err := transport.Open(transport.Config{
		BindAddr:      cfg.Transport.BindAddr,
		DiscoveryPort: cfg.Transport.DiscoveryPort,
		BindDevice:    cfg.Transport.BindDevice,
	})
	if err != nil {
		return err
	}

	sess := session.New(session.Config{
		ApplicationGUID: appGUID,
		SessionName:     cfg.Session.Name,
		Password:        cfg.Session.Password,
		MaxPlayers:      cfg.Session.MaxPlayers,
		PlayerName:      cfg.Session.PlayerName,
		Handler:         newMetricsHandler(cfg.Session.Name, collector, logger),
		Logger:          logger,
		Dial:            transport.DialTCP,
	}, session.Transports{
		Listener:  sockets.Listener,
		UDP:       sockets.UDP,
		Discovery: sockets.Discovery,
	})

	instanceGUID, err := uuid.NewRandom()
	if err != nil {
		sockets.Close()
		return err
	}
	if err := sess.Host(session.HostConfig{InstanceGUID: wire.GUID(instanceGUID)}); err != nil {
		sockets.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	workers := session.NewWorkerPool(gCtx, cfg.Session.Workers)
	pump := session.NewPump(sess, workers, logger)

	g.Go(func() error {
		pump.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		return discovery.Respond(gCtx, sockets.Discovery, appGUID, newQueryHandler(sess, wire.GUID(instanceGUID), collector, cfg.Session.Name), logger)
	})

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		return listenAndServeMetrics(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(sess, workers, logger, metricsSrv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServeMetrics(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		return nil
	}

	tickInterval := interval / 2
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// gracefulShutdown drains every peer's send queue before the process
// exits, then stops the metrics server.
func gracefulShutdown(sess *session.Session, workers *session.WorkerPool, logger *slog.Logger, metricsSrv *http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	if err := sess.Close(false); err != nil {
		logger.Warn("session close returned error", slog.String("error", err.Error()))
	}
	time.Sleep(closeGraceWindow)
	workers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

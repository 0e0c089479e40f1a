package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/governance-reconciler/internal/config"
	"github.com/t77yq/governance-reconciler/internal/controlplane"
	"github.com/t77yq/governance-reconciler/internal/grant"
	"github.com/t77yq/governance-reconciler/internal/reconcile"
)

// The reconciler runs once per deployment, synchronously, and exits. A fatal
// error (configuration, grant provisioning, listing observed schedules)
// blocks the deployment with a non-zero exit; per-identity apply failures
// are logged as warnings and do not.
func main() {
	configPath := flag.String("config", "./config/config.yaml", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	nc := connectNATS(cfg, logger)
	defer nc.Close()

	js, err := nc.JetStream(nats.MaxWait(cfg.CallTimeout))
	if err != nil {
		logger.Fatal("Failed to create JetStream context", zap.Error(err))
	}

	store, err := grant.NewSQLiteStore(logger, cfg.Grants.DBPath)
	if err != nil {
		logger.Fatal("Failed to open grant store", zap.Error(err))
	}
	defer store.Close()

	port, err := controlplane.NewNATSPort(js, logger)
	if err != nil {
		logger.Fatal("Failed to create control-plane port", zap.Error(err))
	}

	driver := reconcile.NewDriver(port, grant.NewProvisioner(store, logger), cfg.CallTimeout, logger)

	result, err := driver.Reconcile(ctx, reconcile.Input{
		PrincipalID: cfg.Principal.ID,
		GrantScope:  cfg.Principal.Scope,
		Desired:     cfg.Schedules,
	})
	if err != nil {
		logger.Fatal("Reconciliation pass aborted", zap.Error(err))
	}

	for kind, count := range result.Counts() {
		logger.Info("Outcome count",
			zap.String("kind", string(kind)),
			zap.Int("count", count))
	}

	for _, failure := range result.Failures() {
		logger.Warn("Schedule did not converge",
			zap.String("identity", failure.Identity),
			zap.String("action", string(failure.Kind)),
			zap.String("error", failure.Error))
	}

	logger.Info("Reconciliation complete",
		zap.String("pass_id", result.PassID),
		zap.Int("schedules", len(result.Outcomes)),
		zap.Int("failures", len(result.Failures())))
}

// connectNATS dials the engine's NATS endpoint with retry, mirroring the
// connection options used across deployments of this stack.
func connectNATS(cfg *config.Config, logger *zap.Logger) *nats.Conn {
	opts := []nats.Option{
		nats.Name(cfg.App.Name),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var nc *nats.Conn
	var err error
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(cfg.NATS.URLs[0], opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}

	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc
}

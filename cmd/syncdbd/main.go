// Command syncdbd is the sync daemon: it loads a YAML config, opens one
// store.Database per configured name, and serves them over HTTP using
// internal/httpsync, grounded on eniz1806-VaultS3's cmd/vaults3/main.go
// (flag parsing, config.Load, graceful shutdown) adapted from VaultS3's
// own server.Run() loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kazade/syncdb/internal/authn"
	"github.com/kazade/syncdb/internal/config"
	"github.com/kazade/syncdb/internal/httpsync"
	"github.com/kazade/syncdb/internal/logging"
	"github.com/kazade/syncdb/internal/monitoring"
	"github.com/kazade/syncdb/internal/security"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/tracing"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "configs/syncdbd.yaml", "path to config file")
	replicaUID := flag.String("replica-uid", "", "override this replica's uid (env SYNCDB_REPLICA_UID)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("syncdbd %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	uid := *replicaUID
	if uid == "" {
		uid = os.Getenv("SYNCDB_REPLICA_UID")
	}
	if uid == "" {
		uid = "syncdbd"
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.WithError(err).Warn("tracing disabled: failed to initialize exporter")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(shutdownCtx)
			}()
		}
	}

	metrics := monitoring.NewMetrics()

	names := cfg.Databases
	if len(names) == 0 {
		names = []string{"default"}
	}
	databases := make(map[string]*store.Database, len(names))
	for _, name := range names {
		var backend store.Backend = store.NewMemBackend()
		if cfg.Encryption.Enabled {
			enc := security.NewContentEncryption()
			salt, err := enc.GenerateSalt()
			if err != nil {
				logger.WithError(err).Error("failed to generate encryption salt")
				os.Exit(1)
			}
			backend = store.NewEncryptedBackend(backend, cfg.Encryption.Secret, salt)
		}
		db := store.New(uid, backend)
		db.WithMetrics(metrics)
		databases[name] = db
	}

	var auth authn.Authenticator = authn.AllowAll{}
	if cfg.Auth.JWTSecret != "" {
		auth = authn.NewJWTAuthenticator(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenDurationHours)*time.Hour)
	}

	srv := httpsync.NewServer(databases, auth).WithMetrics(metrics).WithLogger(logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/", srv)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: mux,
	}

	logger.Info(fmt.Sprintf("syncdbd starting on %s (replica %s, %d database(s))", cfg.ListenAddr(), uid, len(databases)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server error")
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info(fmt.Sprintf("received %v, shutting down gracefully", sig))
	}

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error(fmt.Sprintf("graceful shutdown timed out after %v", timeout))
		os.Exit(1)
	}

	logger.Info("syncdbd stopped gracefully")
}

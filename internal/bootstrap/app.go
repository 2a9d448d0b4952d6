package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yanqian/health-journal/internal/infra/config"
)

const defaultShutdownGrace = 10 * time.Second

// App owns the HTTP server lifecycle of the journal API.
type App struct {
	server *http.Server
	logger *slog.Logger
	grace  time.Duration
}

// NewApp is used by Wire to build the runnable app. In-flight requests get
// the configured write timeout (at least 10s) to drain on shutdown.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	grace := cfg.HTTP.WriteTimeout
	if grace < defaultShutdownGrace {
		grace = defaultShutdownGrace
	}
	logger = logger.With("component", "bootstrap.app")
	logger.Info("journal api configured",
		"interpreter", cfg.Interpreter.Backend,
		"ambiguityPolicy", cfg.Interpreter.AmbiguityPolicy,
		"deltaPolicy", cfg.Interpreter.DeltaPolicy,
		"postgres", cfg.Storage.Postgres.DSN != "",
		"objectStorage", cfg.Storage.Objects.Endpoint != "",
		"valkey", cfg.Cache.Valkey.Enabled,
	)
	return &App{server: server, logger: logger, grace: grace}
}

// Run listens until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	a.logger.Info("http server listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "grace", a.grace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

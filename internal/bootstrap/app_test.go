package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-journal/internal/infra/config"
)

func TestAppRunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}
	app := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server)
	require.Equal(t, defaultShutdownGrace, app.grace)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestAppRunReportsListenError(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "256.0.0.1:bad"}}
	app := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &http.Server{Addr: cfg.HTTP.Address})
	require.Error(t, app.Run(context.Background()))
}

func TestProvideInterpretersWithoutClientUsesRules(t *testing.T) {
	cfg := &config.Config{Interpreter: config.InterpreterConfig{Backend: config.BackendHybrid}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	interps := ProvideInterpreters(cfg, ProvideInterpreterConfig(cfg), nil, nil, logger)
	require.Same(t, interps.Rules, interps.Active)
}

func TestProvideChatClientWithoutKey(t *testing.T) {
	client, err := ProvideChatClient(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestBuildValkeyOptions(t *testing.T) {
	opt, err := buildValkeyOptions(config.ValkeyConfig{Addr: "localhost:6379"})
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:6379"}, opt.InitAddress)

	opt, err = buildValkeyOptions(config.ValkeyConfig{URL: "redis://cache:6380/0"})
	require.NoError(t, err)
	require.Equal(t, []string{"cache:6380"}, opt.InitAddress)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tenderbell"
	"github.com/dmitrymomot/tenderbell/internal/localapi"
	"github.com/dmitrymomot/tenderbell/internal/tui"
	"github.com/dmitrymomot/tenderbell/pkg/api"
	"github.com/dmitrymomot/tenderbell/pkg/environment"
	"github.com/dmitrymomot/tenderbell/pkg/httpserver"
	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/redis"
	"github.com/dmitrymomot/tenderbell/pkg/requestid"
	"github.com/dmitrymomot/tenderbell/pkg/sanitizer"
	"github.com/dmitrymomot/tenderbell/pkg/socket"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

func runDaemon(cfg Config, withTUI bool) error {
	if cfg.SocketURL == "" {
		return errNoSocketURL
	}
	scope, err := cfg.scope()
	if err != nil {
		return err
	}
	env := environment.Parse(cfg.Env)

	logOut, closeLog, err := logOutput(cfg, withTUI)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.New(
		logger.WithEnvironment(env, "tenderbell"),
		logger.WithOutput(logOut),
		logger.WithContextExtractors(environment.LoggerExtractor(), requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = environment.WithContext(ctx, env)

	opts := []tenderbell.Option{
		tenderbell.WithLogger(log),
		tenderbell.WithPlayer(tui.NewBellPlayer(os.Stderr)),
		tenderbell.WithSocketOptions(
			socket.WithBackoff(cfg.BackoffBase, cfg.BackoffMax),
			socket.WithJitter(cfg.Jitter),
		),
		tenderbell.WithToastOptions(
			surface.WithToastLimit(cfg.ToastLimit),
			surface.WithToastTTL(cfg.ToastTTL),
		),
	}
	if cfg.APIURL != "" {
		opts = append(opts, tenderbell.WithAPI(api.New(cfg.APIURL, cfg.Token)))
	}
	prefs, err := cfg.preferences()
	if err != nil {
		return err
	}
	if prefs != nil {
		opts = append(opts, tenderbell.WithInitialPreferences(*prefs))
	}

	var apiOpts []localapi.Option
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("snapshot cache: %w", err)
		}
		defer client.Close() //nolint:errcheck
		opts = append(opts, tenderbell.WithSnapshotStorage(notifications.NewRedisSnapshotStorage(client)))
		apiOpts = append(apiOpts, localapi.WithCheck("redis", redis.Healthcheck(client)))
	}

	session, err := tenderbell.New(socket.NewWebsocketDialer(cfg.SocketURL, cfg.Token), scope, opts...)
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck

	log.LogAttrs(ctx, slog.LevelInfo, "starting", slog.String("version", version), logger.Scope(scope))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })

	if cfg.Local.Addr != "" {
		srv := httpserver.NewFromConfig(cfg.Local, httpserver.WithLogger(log))
		router := localapi.NewRouter(session, env, append(apiOpts, localapi.WithLogger(log))...)
		g.Go(func() error { return srv.Run(gctx, router) })
	}

	if withTUI {
		g.Go(func() error {
			defer stop()
			return tui.Run(gctx, session)
		})
	} else {
		g.Go(func() error { return logToasts(gctx, session, log) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "stopped")
	return err
}

// logToasts writes every toast to the log when no terminal UI is attached.
func logToasts(ctx context.Context, s *tenderbell.Session, log *slog.Logger) error {
	sub := s.ToastBus().Subscribe(ctx)
	defer sub.Close() //nolint:errcheck

	for msg := range sub.Receive(ctx) {
		n := msg.Data
		log.LogAttrs(ctx, slog.LevelInfo, "toast",
			logger.NotificationID(n.ID),
			slog.String("type", string(n.Type)),
			slog.String("message", sanitizer.Display(n.Message, 0)),
			slog.String("tender", sanitizer.Display(n.Tender.TitleOr(""), 0)),
		)
	}
	return nil
}

// logOutput keeps logs off the terminal while the TUI owns it.
func logOutput(cfg Config, withTUI bool) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}
	if withTUI {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

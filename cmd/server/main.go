package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/sketch-arena-backend/internal/config"
	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/internal/httpapi"
	"github.com/DoyleJ11/sketch-arena-backend/internal/hub"
	"github.com/DoyleJ11/sketch-arena-backend/internal/logging"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	modes, err := loadModes(log, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New(ctx, log, rules.NewResolver(modes), room.NewStore(), sched.RealClock{},
		engine.WithBotDelay(cfg.BotDelay),
		engine.WithIdleTimeout(cfg.IdleRoomTimeout),
	)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:   h,
			Modes: modes,
			Log:   log,
			WS: ws.Options{
				Rate:           rate.Limit(cfg.WSRate),
				Burst:          cfg.WSBurst,
				OriginPatterns: cfg.AllowedOrigins,
			},
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("modes", modes.IDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Closing rooms first ends every websocket stream.
		return stopAll(sctx, h.Shutdown, srv.Shutdown)
	})
	return g.Wait()
}

// stopAll runs every stop in order, even after a failure, and reports all
// of their errors.
func stopAll(ctx context.Context, stops ...func(context.Context) error) error {
	var err error
	for _, stop := range stops {
		err = multierr.Append(err, stop(ctx))
	}
	return err
}

func loadModes(log *zap.Logger, cfg config.Config) (*mode.Registry, error) {
	reg := mode.NewRegistry(log)
	all := mode.Builtin()
	if cfg.ModesFile != "" {
		extra, err := mode.LoadFile(cfg.ModesFile)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultMode != "" {
		if err := reg.SetDefault(cfg.DefaultMode); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}

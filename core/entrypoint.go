package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"
	"time"

	"github.com/encodeous/nyroute/state"
)

func setupDebugging() {
	if state.DBG_trace {
		f, err := os.Create("trace.out")
		if err != nil {
			log.Fatal(err)
		}
		err = trace.Start(f)
		if err != nil {
			return
		}
		log.Println("Started tracing")
	}
	if state.DBG_debug {
		go func() {
			log.Println(http.ListenAndServe("0.0.0.0:6060", nil))
		}()
	}
}

// LoadRouterConfig reads, expands and validates the router config at path
func LoadRouterConfig(path string) (*state.RouterCfg, error) {
	cfg, err := state.ReadRouterConfig(path)
	if err != nil {
		return nil, err
	}
	state.ExpandRouterConfig(cfg)
	err = state.RouterConfigValidator(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFeed reads and validates a feed file
func LoadFeed(path string) ([]state.FeedOp, error) {
	ops, err := state.ReadFeed(path)
	if err != nil {
		return nil, err
	}
	err = state.FeedValidator(ops)
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// Bootstrap runs the router until it receives SIGINT or SIGTERM
func Bootstrap(configPath, feedPath, logPath string, verbose bool) error {
	setupDebugging()
	if state.DBG_trace {
		defer trace.Stop()
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	cfg, err := LoadRouterConfig(configPath)
	if err != nil {
		return err
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	var feed []state.FeedOp
	if feedPath != "" {
		feed, err = LoadFeed(feedPath)
		if err != nil {
			return err
		}
	}
	return Start(*cfg, feed, level)
}

func logMobileAdded(context any, addressHash string) {
	context.(*slog.Logger).Info("mobile address added", "address", addressHash)
}

func logMobileRemoved(context any, addressHash string) {
	context.(*slog.Logger).Info("mobile address removed", "address", addressHash)
}

func logLinkLost(context any, linkMaskBit int) {
	context.(*slog.Logger).Info("link lost", "link_maskbit", linkMaskBit)
}

func Start(cfg state.RouterCfg, feed []state.FeedOp, logLevel slog.Level) error {
	logger, closer, err := state.NewLogger(cfg.Id, logLevel, cfg.LogPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if cfg.DebugAssertions {
		state.DBG_assert = true
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(context.Canceled)

	c := New(Options{Cfg: cfg, Log: logger})
	c.RegisterRouteTableHandlers(logger, logMobileAdded, logMobileRemoved, logLinkLost)
	c.Start()
	defer c.Stop()

	go func() {
		err := ServeIPC(ctx, c, cfg.InspectSocket)
		if err != nil {
			logger.Warn("inspect socket unavailable", "socket", cfg.InspectSocket, "error", err)
		}
	}()

	if len(feed) != 0 {
		err = NewFeedRunner(c).Apply(ctx, feed)
		if err != nil {
			return err
		}
		logger.Info("applied feed", "ops", len(feed))
	}

	logger.Info("Router core has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-sig:
		cancel(errors.New("received shutdown signal"))
	case <-c.Done():
	}
	logger.Info("shutting down", "reason", context.Cause(ctx))
	return nil
}

// Replay applies feed to a fresh core and returns the table it ends up with
func Replay(cfg state.RouterCfg, feed []state.FeedOp, logger *slog.Logger) (TableSnapshot, error) {
	c := New(Options{Cfg: cfg, Log: logger})
	c.RegisterRouteTableHandlers(logger, logMobileAdded, logMobileRemoved, logLinkLost)
	c.Start()
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := NewFeedRunner(c).Apply(ctx, feed)
	if err != nil {
		return TableSnapshot{}, err
	}
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return TableSnapshot{}, err
	}
	if err := c.Verify(ctx); err != nil {
		return snap, fmt.Errorf("route table is inconsistent: %w", err)
	}
	return snap, nil
}

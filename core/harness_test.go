package core

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/nyroute/state"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testTimeout  = 5 * time.Second
	pollInterval = 10 * time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// logBuffer collects log output written by the core goroutine
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func (l *logBuffer) Count(s string) int {
	return strings.Count(l.String(), s)
}

func newTestCore(t *testing.T, cfg state.RouterCfg, inlinks InlinkActivator) (*Core, *logBuffer) {
	t.Helper()
	lb := &logBuffer{}
	logger := slog.New(slog.NewTextHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if cfg.Id == "" {
		cfg.Id = "local"
	}
	c := New(Options{Cfg: cfg, Log: logger, Inlinks: inlinks})
	return c, lb
}

// startCore starts an interior core that is stopped when the test ends
func startCore(t *testing.T) (*Core, *logBuffer) {
	t.Helper()
	c, lb := newTestCore(t, state.RouterCfg{}, nil)
	c.Start()
	t.Cleanup(c.Stop)
	return c, lb
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func snapshot(t *testing.T, c *Core) TableSnapshot {
	t.Helper()
	snap, err := c.Snapshot(testCtx(t))
	require.NoError(t, err)
	return snap
}

func requireConsistent(t *testing.T, c *Core) {
	t.Helper()
	require.NoError(t, c.Verify(testCtx(t)))
}

// drain runs every queued action on the calling goroutine, for cores that were never started
func drain(c *Core) {
	for _, a := range c.actions.take() {
		c.handle(a, false)
	}
}

// notifications records general work deliveries
type notifications struct {
	ch chan string
}

func registerNotifications(c *Core) *notifications {
	n := &notifications{ch: make(chan string, 64)}
	c.RegisterRouteTableHandlers(n,
		func(ctx any, hash string) { ctx.(*notifications).ch <- "added " + hash },
		func(ctx any, hash string) { ctx.(*notifications).ch <- "removed " + hash },
		func(ctx any, maskBit int) { ctx.(*notifications).ch <- "lost " + strconv.Itoa(maskBit) },
	)
	return n
}

func (n *notifications) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-n.ch:
		return s
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a notification")
		return ""
	}
}

func (n *notifications) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-n.ch:
		t.Fatalf("unexpected notification %s", s)
	case <-time.After(50 * time.Millisecond):
	}
}

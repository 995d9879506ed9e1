package core

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/encodeous/nyroute/perf"
	"github.com/encodeous/nyroute/state"
)

var ErrStopped = errors.New("router core stopped")

// InlinkActivator is told when an address goes from no destinations to one,
// so that inbound links waiting on the address can be given credit.
// It is called on the core goroutine and must not block.
type InlinkActivator interface {
	StartInlinks(addr AddressInfo)
}

// InlinkFunc adapts a function to an InlinkActivator
type InlinkFunc func(addr AddressInfo)

func (f InlinkFunc) StartInlinks(addr AddressInfo) {
	f(addr)
}

type Options struct {
	Cfg     state.RouterCfg
	Log     *slog.Logger
	Inlinks InlinkActivator
}

// Core owns the route table. Every mutation is an action, run one at a time on the core goroutine.
// Entry operations may be called from any goroutine and never block.
type Core struct {
	Log *slog.Logger
	cfg state.RouterCfg

	actions *workQueue[action]
	work    *workQueue[generalWork]

	ctx          context.Context
	cancel       context.CancelCauseFunc
	coreDone     chan struct{}
	notifierDone chan struct{}
	started      atomic.Bool
	stopping     atomic.Bool

	handlers atomic.Pointer[routeTableHandlers]
	inlinks  InlinkActivator
	diag     *diagnostics

	// table must only be accessed on the core goroutine
	table routeTable
}

func New(opts Options) *Core {
	cfg := opts.Cfg
	if cfg.Mode == "" {
		cfg.Mode = state.ModeInterior
	}
	if cfg.Area == "" {
		cfg.Area = state.DefaultArea
	}
	logger := opts.Log
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	c := &Core{
		Log:          logger,
		cfg:          cfg,
		actions:      newWorkQueue[action](),
		work:         newWorkQueue[generalWork](),
		ctx:          ctx,
		cancel:       cancel,
		coreDone:     make(chan struct{}),
		notifierDone: make(chan struct{}),
		inlinks:      opts.Inlinks,
		diag:         newDiagnostics(logger, cfg.DiagnosticHoldDown),
	}
	c.setupRouteTableCT()
	return c
}

// Start launches the core and notifier goroutines. Actions enqueued before Start are kept.
// Start after Stop does nothing.
func (c *Core) Start() {
	if c.started.Swap(true) {
		return
	}
	go c.mainLoop()
	go c.notifier()
}

// Stop shuts the core down. Actions still queued are handled once with discard set,
// and pending notifications are delivered before Stop returns.
func (c *Core) Stop() {
	if c.stopping.Swap(true) {
		return // don't stop twice
	}
	c.cancel(ErrStopped)
	if c.started.CompareAndSwap(false, true) {
		// never started, a later Start is a no-op
		for _, a := range c.actions.close() {
			c.handle(a, true)
		}
		for _, w := range c.work.close() {
			w.release()
		}
		close(c.coreDone)
		close(c.notifierDone)
	} else {
		<-c.coreDone
		<-c.notifierDone
	}
	c.Log.Info("stopped")
}

// Done is closed once the core goroutine has exited
func (c *Core) Done() <-chan struct{} {
	return c.coreDone
}

func (c *Core) enqueue(a action) {
	if !c.actions.push(a) {
		// too late, the core is gone. release the payload here instead.
		perf.DiscardsPerSecond.Add(1)
		c.handle(a, true)
	}
}

// query runs fn on the core goroutine, after every action enqueued before it
func (c *Core) query(ctx context.Context, fn func() (any, error)) (any, error) {
	ret := make(chan state.Pair[any, error], 1)
	c.enqueue(&queryAction{fn: fn, ret: ret})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Flush waits until every action enqueued before it has been handled
func (c *Core) Flush(ctx context.Context) error {
	_, err := c.query(ctx, func() (any, error) {
		return nil, nil
	})
	return err
}

func (c *Core) mainLoop() {
	defer close(c.coreDone)
	c.Log.Debug("started core loop")
	gc := time.NewTicker(state.GcDelay)
	defer gc.Stop()
	for {
		select {
		case <-c.actions.wake:
			for _, a := range c.actions.take() {
				c.run(a)
			}
		case <-gc.C:
			c.diag.gc()
		case <-c.ctx.Done():
			goto endLoop
		}
	}
endLoop:
	c.Log.Info("stopped core loop", "reason", context.Cause(c.ctx).Error())
	left := c.actions.close()
	if len(left) != 0 {
		c.Log.Debug("discarding queued actions", "len", len(left))
	}
	for _, a := range left {
		perf.DiscardsPerSecond.Add(1)
		c.handle(a, true)
	}
}

func (c *Core) run(a action) {
	if state.DBG_log_actions {
		c.Log.Debug("action", "name", a.name())
	}
	start := time.Now()
	c.handle(a, false)
	elapsed := time.Since(start)
	perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
	perf.ActionsPerSecond.Add(1)
	if elapsed > state.SlowDispatchThreshold {
		c.Log.Warn("action took a long time!", "action", a.name(), "elapsed", elapsed, "len", c.actions.len())
	}
	if state.DBG_assert {
		if err := c.verifyCT(); err != nil {
			panic("route table inconsistent after " + a.name() + ": " + err.Error())
		}
	}
}

package core

import (
	"context"
	"fmt"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
)

// FeedRunner applies feed operations to a core, keeping track of the subscriptions and
// connections the feed refers to by name.
type FeedRunner struct {
	c     *Core
	subs  map[string]*Subscription
	conns map[string]*Connection
}

func NewFeedRunner(c *Core) *FeedRunner {
	return &FeedRunner{
		c:     c,
		subs:  make(map[string]*Subscription),
		conns: make(map[string]*Connection),
	}
}

// Subscription returns the subscription the feed created under name
func (f *FeedRunner) Subscription(name string) *Subscription {
	return f.subs[name]
}

// Connection returns the connection the feed opened under name
func (f *FeedRunner) Connection(name string) *Connection {
	return f.conns[name]
}

func (f *FeedRunner) Apply(ctx context.Context, ops []state.FeedOp) error {
	for i, op := range ops {
		if err := f.apply(ctx, op); err != nil {
			return fmt.Errorf("feed[%d] %s: %w", i, op.Op, err)
		}
	}
	return nil
}

func (f *FeedRunner) apply(ctx context.Context, op state.FeedOp) error {
	c := f.c
	switch op.Op {
	case state.OpAddRouter:
		c.AddRouter(op.Router, op.Address)
	case state.OpDelRouter:
		c.DelRouter(op.Router)
	case state.OpSetLink:
		link := op.Link
		if op.Conn != "" {
			conn, ok := f.conns[op.Conn]
			if !ok {
				return fmt.Errorf("connection %s is not open", op.Conn)
			}
			select {
			case <-conn.Ready():
			case <-ctx.Done():
				return ctx.Err()
			}
			link = conn.MaskBit()
		}
		c.SetLink(op.Router, link)
	case state.OpRemoveLink:
		c.RemoveLink(op.Router)
	case state.OpSetNextHop:
		c.SetNextHop(op.Router, op.NextHop)
	case state.OpRemoveNextHop:
		c.RemoveNextHop(op.Router)
	case state.OpSetValidOrigins:
		c.SetValidOrigins(op.Router, bitmask.Of(op.Origins...))
	case state.OpMapDestination:
		c.MapDestination(op.Router, op.Address)
	case state.OpUnmapDestination:
		c.UnmapDestination(op.Router, op.Address)
	case state.OpSubscribe:
		if len(op.Class) != 1 {
			return fmt.Errorf("class must be a single character")
		}
		var phase byte
		if op.Phase != "" {
			phase = op.Phase[0]
		}
		treatment := state.TreatmentAnycastBalanced
		if op.Treatment != nil {
			treatment = *op.Treatment
		}
		name := op.Sub
		f.subs[name] = c.Subscribe(op.Address, op.Class[0], phase, treatment, func(_ any, msg any) {
			c.Log.Debug("delivery", "sub", name, "msg", msg)
		}, nil)
	case state.OpUnsubscribe:
		sub, ok := f.subs[op.Sub]
		if !ok {
			return fmt.Errorf("subscription %s is not active", op.Sub)
		}
		delete(f.subs, op.Sub)
		c.Unsubscribe(sub)
	case state.OpOpenConnection:
		f.conns[op.Conn] = c.OpenConnection(op.Conn)
	case state.OpCloseConnection:
		conn, ok := f.conns[op.Conn]
		if !ok {
			return fmt.Errorf("connection %s is not open", op.Conn)
		}
		delete(f.conns, op.Conn)
		c.CloseConnection(conn)
	default:
		return fmt.Errorf("unknown operation")
	}
	return nil
}

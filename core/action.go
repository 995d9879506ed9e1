package core

import (
	"fmt"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
)

// action is a request to run on the core goroutine. Every variant owns its payload,
// which the handler releases whether it executes or discards the action.
type action interface {
	name() string
}

type addRouterAction struct {
	maskBit int
	address *field
}

type delRouterAction struct {
	maskBit int
}

type setLinkAction struct {
	maskBit     int
	linkMaskBit int
}

type removeLinkAction struct {
	maskBit int
}

type setNextHopAction struct {
	maskBit   int
	nhMaskBit int
}

type removeNextHopAction struct {
	maskBit int
}

type setValidOriginsAction struct {
	maskBit int
	origins *bitmask.Bitmask
}

type mapDestinationAction struct {
	maskBit int
	address *field
}

type unmapDestinationAction struct {
	maskBit int
	address *field
}

type subscribeAction struct {
	address   *field
	class     byte
	phase     byte
	treatment state.Treatment
	sub       *Subscription
}

type unsubscribeAction struct {
	sub *Subscription
}

type connectionOpenedAction struct {
	conn *Connection
}

type connectionClosedAction struct {
	conn *Connection
}

// queryAction runs fn on the core goroutine and hands the result back to the caller
type queryAction struct {
	fn  func() (any, error)
	ret chan state.Pair[any, error]
}

func (*addRouterAction) name() string        { return "add_router" }
func (*delRouterAction) name() string        { return "del_router" }
func (*setLinkAction) name() string          { return "set_link" }
func (*removeLinkAction) name() string       { return "remove_link" }
func (*setNextHopAction) name() string       { return "set_next_hop" }
func (*removeNextHopAction) name() string    { return "remove_next_hop" }
func (*setValidOriginsAction) name() string  { return "set_valid_origins" }
func (*mapDestinationAction) name() string   { return "map_destination" }
func (*unmapDestinationAction) name() string { return "unmap_destination" }
func (*subscribeAction) name() string        { return "subscribe" }
func (*unsubscribeAction) name() string      { return "unsubscribe" }
func (*connectionOpenedAction) name() string { return "connection_opened" }
func (*connectionClosedAction) name() string { return "connection_closed" }
func (*queryAction) name() string            { return "query" }

// handle runs exactly one handler for a. With discard set, the handler only releases
// the payload; this is also safe off the core goroutine, since nothing in the table is touched.
func (c *Core) handle(a action, discard bool) {
	switch a := a.(type) {
	case *addRouterAction:
		c.addRouterCT(a, discard)
	case *delRouterAction:
		c.delRouterCT(a, discard)
	case *setLinkAction:
		c.setLinkCT(a, discard)
	case *removeLinkAction:
		c.removeLinkCT(a, discard)
	case *setNextHopAction:
		c.setNextHopCT(a, discard)
	case *removeNextHopAction:
		c.removeNextHopCT(a, discard)
	case *setValidOriginsAction:
		c.setValidOriginsCT(a, discard)
	case *mapDestinationAction:
		c.mapDestinationCT(a, discard)
	case *unmapDestinationAction:
		c.unmapDestinationCT(a, discard)
	case *subscribeAction:
		c.subscribeCT(a, discard)
	case *unsubscribeAction:
		c.unsubscribeCT(a, discard)
	case *connectionOpenedAction:
		c.connectionOpenedCT(a, discard)
	case *connectionClosedAction:
		c.connectionClosedCT(a, discard)
	case *queryAction:
		c.queryCT(a, discard)
	default:
		panic(fmt.Sprintf("unknown action %T", a))
	}
}

func (c *Core) queryCT(a *queryAction, discard bool) {
	if discard {
		a.ret <- state.Pair[any, error]{V1: nil, V2: ErrStopped}
		return
	}
	res, err := a.fn()
	a.ret <- state.Pair[any, error]{V1: res, V2: err}
}

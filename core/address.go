package core

import (
	"sync/atomic"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
)

// Address is a destination, identified by its hash key for its whole life.
type Address struct {
	hash          string
	treatment     state.Treatment
	rnodes        *bitmask.Bitmask
	subscriptions []*Subscription
	// static addresses are created at setup and never collected
	static bool
	// owner is set on the topological address of a router, which lives and dies with it
	owner *RouterNode
}

// AddressInfo is what collaborators outside the core goroutine get to see of an Address
type AddressInfo struct {
	Hash      string
	Treatment state.Treatment
}

func (a *Address) info() AddressInfo {
	return AddressInfo{Hash: a.hash, Treatment: a.treatment}
}

// destinations counts the routers that reach the address plus its local subscriptions
func (a *Address) destinations() int {
	return a.rnodes.Cardinality() + len(a.subscriptions)
}

func (a *Address) free() {
	a.rnodes.Free()
	a.rnodes = nil
	a.subscriptions = nil
	a.owner = nil
}

// ReceiveFunc is invoked for every message delivered to a subscription
type ReceiveFunc func(context any, msg any)

var liveSubscriptions atomic.Int64

// Subscription is an in-process consumer of an address. It is returned by Core.Subscribe
// and stays valid until passed to Core.Unsubscribe.
type Subscription struct {
	core      *Core
	onMessage ReceiveFunc
	context   any

	// owned by the core goroutine
	addr *Address

	unsubscribed atomic.Bool
	released     atomic.Bool
}

// Deliver hands msg to the subscriber
func (s *Subscription) Deliver(msg any) {
	if s.onMessage != nil {
		s.onMessage(s.context, msg)
	}
}

// Released reports whether the core is done with the subscription
func (s *Subscription) Released() bool {
	return s.released.Load()
}

// release may be reached both from a discarded subscribe and a later unsubscribe,
// only the first one counts.
func (s *Subscription) release() {
	if s.released.Swap(true) {
		return
	}
	s.addr = nil
	liveSubscriptions.Add(-1)
}

package core

import (
	"slices"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
)

// Entry operations. These may be called from any goroutine, they only enqueue.

func (c *Core) AddRouter(maskBit int, address string) {
	c.enqueue(&addRouterAction{maskBit: maskBit, address: newField(address)})
}

func (c *Core) DelRouter(maskBit int) {
	c.enqueue(&delRouterAction{maskBit: maskBit})
}

func (c *Core) SetLink(maskBit, linkMaskBit int) {
	c.enqueue(&setLinkAction{maskBit: maskBit, linkMaskBit: linkMaskBit})
}

func (c *Core) RemoveLink(maskBit int) {
	c.enqueue(&removeLinkAction{maskBit: maskBit})
}

func (c *Core) SetNextHop(maskBit, nhMaskBit int) {
	c.enqueue(&setNextHopAction{maskBit: maskBit, nhMaskBit: nhMaskBit})
}

func (c *Core) RemoveNextHop(maskBit int) {
	c.enqueue(&removeNextHopAction{maskBit: maskBit})
}

// SetValidOrigins takes ownership of origins. A nil set allows every origin.
func (c *Core) SetValidOrigins(maskBit int, origins *bitmask.Bitmask) {
	if origins == nil {
		origins = bitmask.New(0)
	}
	c.enqueue(&setValidOriginsAction{maskBit: maskBit, origins: origins})
}

// MapDestination records that the router at maskBit reaches addressHash
func (c *Core) MapDestination(maskBit int, addressHash string) {
	c.enqueue(&mapDestinationAction{maskBit: maskBit, address: newField(addressHash)})
}

func (c *Core) UnmapDestination(maskBit int, addressHash string) {
	c.enqueue(&unmapDestinationAction{maskBit: maskBit, address: newField(addressHash)})
}

// Subscribe registers an in-process consumer on address, with its class (and phase, for mobile
// addresses) replaced by class and phase. The returned handle must be passed to Unsubscribe.
func (c *Core) Subscribe(address string, class, phase byte, treatment state.Treatment, onMessage ReceiveFunc, context any) *Subscription {
	sub := &Subscription{
		core:      c,
		onMessage: onMessage,
		context:   context,
	}
	liveSubscriptions.Add(1)
	c.enqueue(&subscribeAction{
		address:   newField(address),
		class:     class,
		phase:     phase,
		treatment: treatment,
		sub:       sub,
	})
	return sub
}

func (c *Core) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.unsubscribed.Swap(true) {
		return
	}
	c.enqueue(&unsubscribeAction{sub: sub})
}

// Handlers. Everything below runs on the core goroutine.

func (c *Core) addRouterCT(a *addRouterAction, discard bool) {
	const op = "add_router"
	defer a.address.release()
	if discard {
		return
	}
	if !c.requireInterior(op) {
		return
	}
	t := &c.table

	if !bitmask.Valid(a.maskBit) {
		c.diag.critical(op, "Router maskbit out of range", "maskbit", a.maskBit)
		return
	}
	if t.routersByMaskBit[a.maskBit] != nil {
		c.diag.critical(op, "Router maskbit already in use", "maskbit", a.maskBit)
		return
	}

	// there must not be an address for this router yet
	hash := HashAddress(a.address.String(), c.cfg.Area, c.cfg.Id)
	if c.lookupAddressCT(hash) != nil {
		c.fault(op, "Data inconsistency for router-maskbit", "maskbit", a.maskBit, "address", hash)
		return
	}

	// this address is found whenever a topological address of the remote router is looked up
	addr := c.newAddressCT(hash, state.TreatmentAnycastClosest)
	rnode := &RouterNode{
		maskBit:      a.maskBit,
		owningAddr:   addr,
		validOrigins: bitmask.New(0),
	}
	addr.owner = rnode
	t.routers = append(t.routers, rnode)

	addr.rnodes.Set(a.maskBit)
	// only the T class router addresses reference remote routers
	t.routerAddrT.rnodes.Set(a.maskBit)
	t.routermaAddrT.rnodes.Set(a.maskBit)
	rnode.refCount += 3

	t.routersByMaskBit[a.maskBit] = rnode
	c.Log.Debug("added router", "maskbit", a.maskBit, "address", hash)
}

func (c *Core) delRouterCT(a *delRouterAction, discard bool) {
	const op = "del_router"
	if discard {
		return
	}
	if !c.requireInterior(op) {
		return
	}
	t := &c.table

	if !bitmask.Valid(a.maskBit) {
		c.diag.critical(op, "Router maskbit out of range", "maskbit", a.maskBit)
		return
	}
	rnode := t.routersByMaskBit[a.maskBit]
	if rnode == nil {
		c.diag.critical(op, "Deleting nonexistent router", "maskbit", a.maskBit)
		return
	}
	oaddr := rnode.owningAddr
	if oaddr == nil {
		c.fault(op, "Router has no owning address", "maskbit", a.maskBit)
		return
	}

	oaddr.rnodes.Clear(a.maskBit)
	t.routerAddrT.rnodes.Clear(a.maskBit)
	t.routermaAddrT.rnodes.Clear(a.maskBit)
	rnode.refCount -= 3

	// unlink from mapped destinations until nothing references the node
	unlinked := make([]*Address, 0)
	for _, addr := range t.addrs {
		if rnode.refCount <= 0 {
			break
		}
		if addr.rnodes.Clear(a.maskBit) {
			rnode.refCount--
			unlinked = append(unlinked, addr)
		}
	}
	if rnode.refCount != 0 {
		c.fault(op, "Router reference count did not reach zero", "maskbit", a.maskBit, "ref_count", rnode.refCount)
		// drop whatever linkage is left so that nothing points at a freed mask bit
		for _, addr := range t.addrs {
			if addr.rnodes.Clear(a.maskBit) {
				unlinked = append(unlinked, addr)
			}
		}
		rnode.refCount = 0
	}

	for _, other := range t.routers {
		if other.nextHop == rnode {
			other.nextHop = nil
		}
	}

	rnode.validOrigins.Free()
	rnode.validOrigins = nil
	if idx := slices.Index(t.routers, rnode); idx != -1 {
		t.routers = slices.Delete(t.routers, idx, idx+1)
	}
	t.routersByMaskBit[a.maskBit] = nil
	rnode.owningAddr = nil
	// local consumers of the router's address outlive it, unsubscribe only releases them now
	for _, sub := range oaddr.subscriptions {
		sub.addr = nil
	}
	c.removeAddressCT(oaddr)

	for _, addr := range unlinked {
		if addr != oaddr {
			c.checkAddrCT(addr)
		}
	}
	c.Log.Debug("deleted router", "maskbit", a.maskBit)
}

func (c *Core) setLinkCT(a *setLinkAction, discard bool) {
	const op = "set_link"
	if discard || !c.requireInterior(op) {
		return
	}
	t := &c.table

	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}
	if !bitmask.Valid(a.linkMaskBit) {
		c.diag.critical(op, "Link maskbit out of range", "link_maskbit", a.linkMaskBit)
		return
	}
	if t.controlLinksByMaskBit[a.linkMaskBit] == nil {
		c.diag.critical(op, "Invalid link reference", "link_maskbit", a.linkMaskBit)
		return
	}

	rnode.peerControlLink = t.controlLinksByMaskBit[a.linkMaskBit]
	rnode.peerDataLink = t.dataLinksByMaskBit[a.linkMaskBit]
}

func (c *Core) removeLinkCT(a *removeLinkAction, discard bool) {
	const op = "remove_link"
	if discard || !c.requireInterior(op) {
		return
	}
	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}
	rnode.peerControlLink = nil
	rnode.peerDataLink = nil
}

func (c *Core) setNextHopCT(a *setNextHopAction, discard bool) {
	const op = "set_next_hop"
	if discard || !c.requireInterior(op) {
		return
	}
	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}
	nh := c.lookupRouterCT(op, "Next hop router", a.nhMaskBit)
	if nh == nil {
		return
	}

	// a router is its own next hop when it is a neighbour, which is what a nil next hop means
	if a.maskBit != a.nhMaskBit {
		rnode.nextHop = nh
	}
}

func (c *Core) removeNextHopCT(a *removeNextHopAction, discard bool) {
	const op = "remove_next_hop"
	if discard || !c.requireInterior(op) {
		return
	}
	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}
	rnode.nextHop = nil
}

func (c *Core) setValidOriginsCT(a *setValidOriginsAction, discard bool) {
	const op = "set_valid_origins"
	origins := a.origins
	defer func() {
		// still ours unless it was installed
		if origins != nil {
			origins.Free()
		}
	}()
	if discard || !c.requireInterior(op) {
		return
	}

	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}
	if rnode.validOrigins != nil {
		rnode.validOrigins.Free()
	}
	rnode.validOrigins = origins
	origins = nil
}

func (c *Core) mapDestinationCT(a *mapDestinationAction, discard bool) {
	const op = "map_destination"
	defer a.address.release()
	if discard || !c.requireInterior(op) {
		return
	}

	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}

	hash := a.address.String()
	if hash == "" {
		c.diag.critical(op, "Empty address hash", "maskbit", a.maskBit)
		return
	}
	addr := c.lookupAddressCT(hash)
	if addr == nil {
		addr = c.newAddressCT(hash, c.treatmentForHash(hash))
	}

	if !addr.rnodes.Test(a.maskBit) {
		addr.rnodes.Set(a.maskBit)
		rnode.refCount++
		c.startInlinksCT(addr)
	}

	// TODO: waypoint addresses need their own side effects here once waypoints exist
}

func (c *Core) unmapDestinationCT(a *unmapDestinationAction, discard bool) {
	const op = "unmap_destination"
	defer a.address.release()
	if discard || !c.requireInterior(op) {
		return
	}

	rnode := c.lookupRouterCT(op, "Router", a.maskBit)
	if rnode == nil {
		return
	}

	hash := a.address.String()
	addr := c.lookupAddressCT(hash)
	if addr == nil {
		c.diag.critical(op, "Address not found", "maskbit", a.maskBit, "address", hash)
		return
	}
	if c.table.isRouterClassAddr(addr) {
		// these bits belong to add_router / del_router
		c.diag.critical(op, "Cannot unmap a router address", "maskbit", a.maskBit, "address", hash)
		return
	}

	if addr.rnodes.Clear(a.maskBit) {
		rnode.refCount--
	}
	c.checkAddrCT(addr)
}

func (c *Core) subscribeCT(a *subscribeAction, discard bool) {
	const op = "subscribe"
	defer a.address.release()
	sub := a.sub
	if discard {
		sub.release()
		return
	}

	c.Log.Debug("in-process subscription", "address", a.address.String(), "class", string(a.class))

	hash := overrideClass(HashAddress(a.address.String(), c.cfg.Area, c.cfg.Id), a.class, a.phase)
	if len(hash) < 2 {
		c.diag.critical(op, "Invalid subscription address", "address", a.address.String())
		sub.release()
		return
	}
	addr := c.lookupAddressCT(hash)
	if addr == nil {
		addr = c.newAddressCT(hash, a.treatment)
	}

	sub.addr = addr
	addr.subscriptions = append(addr.subscriptions, sub)
	if a.class == ClassMobile && len(addr.subscriptions) == 1 {
		c.postMobileAddedCT(hash)
	}
	c.startInlinksCT(addr)
}

func (c *Core) unsubscribeCT(a *unsubscribeAction, discard bool) {
	sub := a.sub
	defer sub.release()
	if discard {
		return
	}

	addr := sub.addr
	if addr == nil || addr.rnodes == nil || c.table.addrHash[addr.hash] != addr {
		return
	}
	idx := slices.Index(addr.subscriptions, sub)
	if idx != -1 {
		addr.subscriptions = slices.Delete(addr.subscriptions, idx, idx+1)
	}
	sub.addr = nil
	if idx != -1 && len(addr.subscriptions) == 0 {
		if class, _, _ := splitHash(addr.hash); class == ClassMobile {
			c.postMobileRemovedCT(addr.hash)
		}
	}
	c.checkAddrCT(addr)
}

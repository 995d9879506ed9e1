package core

import (
	"slices"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
)

type routeTable struct {
	interior bool

	// addrs is in creation order, which is the order del_router scans in
	addrs    []*Address
	addrHash map[string]*Address
	routers  []*RouterNode

	routersByMaskBit      [bitmask.Width]*RouterNode
	controlLinksByMaskBit [bitmask.Width]*Link
	dataLinksByMaskBit    [bitmask.Width]*Link

	// link mask bits not yet claimed by an inter-router connection
	neighborFreeMask *bitmask.Bitmask

	helloAddr     *Address
	routerAddrL   *Address
	routermaAddrL *Address
	routerAddrT   *Address
	routermaAddrT *Address
}

func (c *Core) setupRouteTableCT() {
	t := &c.table
	t.addrHash = make(map[string]*Address)
	if c.cfg.Mode != state.ModeInterior {
		return
	}
	t.interior = true
	t.helloAddr = c.addLocalAddressCT(ClassLocal, "qdhello", state.TreatmentMulticastFlood)
	t.routerAddrL = c.addLocalAddressCT(ClassLocal, "qdrouter", state.TreatmentMulticastFlood)
	t.routermaAddrL = c.addLocalAddressCT(ClassLocal, "qdrouter.ma", state.TreatmentMulticastOnce)
	t.routerAddrT = c.addLocalAddressCT(ClassTopological, "qdrouter", state.TreatmentMulticastFlood)
	t.routermaAddrT = c.addLocalAddressCT(ClassTopological, "qdrouter.ma", state.TreatmentMulticastOnce)
	t.neighborFreeMask = bitmask.New(1)
}

func (c *Core) addLocalAddressCT(class byte, name string, treatment state.Treatment) *Address {
	addr := c.newAddressCT(string(class)+name, treatment)
	addr.static = true
	return addr
}

// newAddressCT creates an address and makes it findable by hash
func (c *Core) newAddressCT(hash string, treatment state.Treatment) *Address {
	addr := &Address{
		hash:      hash,
		treatment: treatment,
		rnodes:    bitmask.New(0),
	}
	c.table.addrHash[hash] = addr
	c.table.addrs = append(c.table.addrs, addr)
	return addr
}

func (c *Core) lookupAddressCT(hash string) *Address {
	return c.table.addrHash[hash]
}

func (c *Core) removeAddressCT(addr *Address) {
	t := &c.table
	delete(t.addrHash, addr.hash)
	if idx := slices.Index(t.addrs, addr); idx != -1 {
		t.addrs = slices.Delete(t.addrs, idx, idx+1)
	}
	addr.free()
}

// checkAddrCT collects addr once nothing can reach it and nothing consumes from it
func (c *Core) checkAddrCT(addr *Address) {
	if addr == nil || addr.static || addr.owner != nil {
		return
	}
	if addr.rnodes.Cardinality() == 0 && len(addr.subscriptions) == 0 {
		c.Log.Debug("collecting address", "address", addr.hash)
		c.removeAddressCT(addr)
	}
}

// startInlinksCT lets the forwarding layer attach inbound links once addr has its first destination
func (c *Core) startInlinksCT(addr *Address) {
	if c.inlinks != nil && addr.destinations() == 1 {
		c.inlinks.StartInlinks(addr.info())
	}
}

// isRouterClassAddr reports whether addr holds structural references of routers
func (t *routeTable) isRouterClassAddr(addr *Address) bool {
	return addr.owner != nil || addr == t.routerAddrT || addr == t.routermaAddrT
}

func (c *Core) requireInterior(op string) bool {
	if !c.table.interior {
		c.diag.critical(op, "Route table operations require interior mode", "mode", c.cfg.Mode)
		return false
	}
	return true
}

// lookupRouterCT range checks maskBit and returns the router claiming it, reporting either failure
func (c *Core) lookupRouterCT(op, what string, maskBit int) *RouterNode {
	if !bitmask.Valid(maskBit) {
		c.diag.critical(op, what+" maskbit out of range", "maskbit", maskBit)
		return nil
	}
	rnode := c.table.routersByMaskBit[maskBit]
	if rnode == nil {
		c.diag.critical(op, what+" not found", "maskbit", maskBit)
		return nil
	}
	return rnode
}

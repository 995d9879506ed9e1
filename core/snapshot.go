package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/encodeous/nyroute/state"
)

type RouterSnapshot struct {
	MaskBit      int    `yaml:"mask_bit"`
	Address      string `yaml:"address"`
	NextHop      *int   `yaml:"next_hop,omitempty"`
	ControlLink  *int   `yaml:"control_link,omitempty"`
	DataLink     *int   `yaml:"data_link,omitempty"`
	ValidOrigins []int  `yaml:"valid_origins,omitempty"`
	RefCount     int    `yaml:"ref_count"`
}

type AddressSnapshot struct {
	Hash          string          `yaml:"hash"`
	Treatment     state.Treatment `yaml:"treatment"`
	Routers       []int           `yaml:"routers,omitempty"`
	Subscriptions int             `yaml:"subscriptions,omitempty"`
	Static        bool            `yaml:"static,omitempty"`
}

// TableSnapshot is a copy of the route table, taken between two actions
type TableSnapshot struct {
	Routers   []RouterSnapshot  `yaml:"routers"`
	Addresses []AddressSnapshot `yaml:"addresses"`
	Links     []int             `yaml:"links,omitempty"`
}

func (s *TableSnapshot) Router(maskBit int) (RouterSnapshot, bool) {
	idx := slices.IndexFunc(s.Routers, func(r RouterSnapshot) bool {
		return r.MaskBit == maskBit
	})
	if idx == -1 {
		return RouterSnapshot{}, false
	}
	return s.Routers[idx], true
}

func (s *TableSnapshot) Address(hash string) (AddressSnapshot, bool) {
	idx := slices.IndexFunc(s.Addresses, func(a AddressSnapshot) bool {
		return a.Hash == hash
	})
	if idx == -1 {
		return AddressSnapshot{}, false
	}
	return s.Addresses[idx], true
}

func optInt(v int) *int {
	return &v
}

func fmtOpt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func (s *TableSnapshot) String() string {
	sb := strings.Builder{}
	sb.WriteString("Routers:\n")
	rt := make([]string, 0)
	for _, r := range s.Routers {
		rt = append(rt, fmt.Sprintf(" - %d %s nh=%s ctl=%s data=%s origins=%v refs=%d",
			r.MaskBit, r.Address, fmtOpt(r.NextHop), fmtOpt(r.ControlLink), fmtOpt(r.DataLink), r.ValidOrigins, r.RefCount))
	}
	if len(rt) == 0 {
		rt = append(rt, "    (none)")
	}
	sb.WriteString(strings.Join(rt, "\n") + "\n")

	sb.WriteString("\nAddresses:\n")
	rt = make([]string, 0)
	for _, a := range s.Addresses {
		rt = append(rt, fmt.Sprintf(" - %s %s routers=%v subs=%d", a.Hash, a.Treatment, a.Routers, a.Subscriptions))
	}
	if len(rt) == 0 {
		rt = append(rt, "    (none)")
	}
	sb.WriteString(strings.Join(rt, "\n") + "\n")

	sb.WriteString(fmt.Sprintf("\nLinks: %v\n", s.Links))
	return sb.String()
}

// Snapshot copies the route table once every action enqueued before it has been handled
func (c *Core) Snapshot(ctx context.Context) (TableSnapshot, error) {
	res, err := c.query(ctx, func() (any, error) {
		return c.snapshotCT(), nil
	})
	if err != nil {
		return TableSnapshot{}, err
	}
	return res.(TableSnapshot), nil
}

// Verify checks the route table invariants once every action enqueued before it has been handled
func (c *Core) Verify(ctx context.Context) error {
	_, err := c.query(ctx, func() (any, error) {
		return nil, c.verifyCT()
	})
	return err
}

func (c *Core) snapshotCT() TableSnapshot {
	t := &c.table
	snap := TableSnapshot{
		Routers:   make([]RouterSnapshot, 0, len(t.routers)),
		Addresses: make([]AddressSnapshot, 0, len(t.addrs)),
	}
	for _, rnode := range t.routers {
		rs := RouterSnapshot{
			MaskBit:  rnode.maskBit,
			RefCount: rnode.refCount,
		}
		if rnode.owningAddr != nil {
			rs.Address = rnode.owningAddr.hash
		}
		if rnode.nextHop != nil {
			rs.NextHop = optInt(rnode.nextHop.maskBit)
		}
		if rnode.peerControlLink != nil {
			rs.ControlLink = optInt(rnode.peerControlLink.maskBit)
		}
		if rnode.peerDataLink != nil {
			rs.DataLink = optInt(rnode.peerDataLink.maskBit)
		}
		if rnode.validOrigins != nil && rnode.validOrigins.Cardinality() != 0 {
			rs.ValidOrigins = rnode.validOrigins.Bits()
		}
		snap.Routers = append(snap.Routers, rs)
	}
	slices.SortFunc(snap.Routers, func(a, b RouterSnapshot) int {
		return a.MaskBit - b.MaskBit
	})
	for _, addr := range t.addrs {
		as := AddressSnapshot{
			Hash:          addr.hash,
			Treatment:     addr.treatment,
			Subscriptions: len(addr.subscriptions),
			Static:        addr.static,
		}
		if addr.rnodes.Cardinality() != 0 {
			as.Routers = addr.rnodes.Bits()
		}
		snap.Addresses = append(snap.Addresses, as)
	}
	for i, link := range t.controlLinksByMaskBit {
		if link != nil {
			snap.Links = append(snap.Links, i)
		}
	}
	return snap
}

// verifyCT checks the structural invariants of the table
func (c *Core) verifyCT() error {
	t := &c.table
	var errs []error

	if len(t.addrHash) != len(t.addrs) {
		errs = append(errs, fmt.Errorf("address index has %d entries, address list has %d", len(t.addrHash), len(t.addrs)))
	}
	for _, addr := range t.addrs {
		if t.addrHash[addr.hash] != addr {
			errs = append(errs, fmt.Errorf("address %s is not indexed by its hash", addr.hash))
		}
		for _, sub := range addr.subscriptions {
			if sub.addr != addr {
				errs = append(errs, fmt.Errorf("subscription on %s does not point back to it", addr.hash))
			}
		}
		for _, bit := range addr.rnodes.Bits() {
			if t.routersByMaskBit[bit] == nil {
				errs = append(errs, fmt.Errorf("address %s references missing router %d", addr.hash, bit))
			}
		}
	}

	claimed := 0
	for i, rnode := range t.routersByMaskBit {
		if rnode == nil {
			continue
		}
		claimed++
		if rnode.maskBit != i {
			errs = append(errs, fmt.Errorf("router %d is indexed at %d", rnode.maskBit, i))
		}
		if !slices.Contains(t.routers, rnode) {
			errs = append(errs, fmt.Errorf("router %d is indexed but not listed", i))
		}
		if rnode.owningAddr == nil || t.addrHash[rnode.owningAddr.hash] != rnode.owningAddr {
			errs = append(errs, fmt.Errorf("router %d has no indexed owning address", i))
		}
		refs := 0
		for _, addr := range t.addrs {
			if addr.rnodes.Test(i) {
				refs++
			}
		}
		if refs != rnode.refCount {
			errs = append(errs, fmt.Errorf("router %d has ref_count %d, but %d addresses reference it", i, rnode.refCount, refs))
		}
		if rnode.nextHop != nil && t.routersByMaskBit[rnode.nextHop.maskBit] != rnode.nextHop {
			errs = append(errs, fmt.Errorf("router %d has a stale next hop %d", i, rnode.nextHop.maskBit))
		}
		if rnode.peerControlLink != nil && t.controlLinksByMaskBit[rnode.peerControlLink.maskBit] != rnode.peerControlLink {
			errs = append(errs, fmt.Errorf("router %d has a stale control link %d", i, rnode.peerControlLink.maskBit))
		}
	}
	if claimed != len(t.routers) {
		errs = append(errs, fmt.Errorf("%d routers listed, %d indexed", len(t.routers), claimed))
	}

	if t.neighborFreeMask != nil {
		for i, link := range t.controlLinksByMaskBit {
			if (link != nil) == t.neighborFreeMask.Test(i) {
				errs = append(errs, fmt.Errorf("link maskbit %d claim does not match the free mask", i))
			}
		}
	}
	return errors.Join(errs...)
}

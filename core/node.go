package core

import (
	"sync"
	"sync/atomic"

	"github.com/encodeous/nyroute/bitmask"
)

// RouterNode is a known remote router.
//
// refCount counts the addresses whose rnodes contain maskBit: the owning address and the two
// router class addresses, plus one for every mapped destination. del_router has to bring it back
// to zero before the node is freed.
type RouterNode struct {
	maskBit    int
	owningAddr *Address
	// nextHop is nil when the router is directly reachable
	nextHop         *RouterNode
	peerControlLink *Link
	peerDataLink    *Link
	// validOrigins is empty when any origin is allowed
	validOrigins *bitmask.Bitmask
	refCount     int
}

type LinkRole uint8

const (
	LinkControl LinkRole = iota
	LinkData
)

func (r LinkRole) String() string {
	if r == LinkControl {
		return "control"
	}
	return "data"
}

// Link is one of the two links of an inter-router connection
type Link struct {
	maskBit int
	role    LinkRole
	conn    *Connection
}

// Connection is an inter-router connection. When the core opens it, it claims a link mask bit
// and registers a control and a data link under that bit.
type Connection struct {
	name    string
	maskBit atomic.Int64
	ready   chan struct{}
	once    sync.Once
	closing atomic.Bool

	// owned by the core goroutine
	control *Link
	data    *Link
}

func newConnection(name string) *Connection {
	conn := &Connection{
		name:  name,
		ready: make(chan struct{}),
	}
	conn.maskBit.Store(-1)
	return conn
}

func (c *Connection) Name() string {
	return c.name
}

// Ready is closed once the core has handled the connection. MaskBit is then either the
// claimed link mask bit, or -1 if the connection could not be given one.
func (c *Connection) Ready() <-chan struct{} {
	return c.ready
}

func (c *Connection) MaskBit() int {
	return int(c.maskBit.Load())
}

func (c *Connection) assign(maskBit int) {
	c.maskBit.Store(int64(maskBit))
	c.once.Do(func() {
		close(c.ready)
	})
}

package core

// OpenConnection registers an inter-router connection. The core claims a free link mask bit for
// it and registers its control and data links there; wait on Connection.Ready for the result.
func (c *Core) OpenConnection(name string) *Connection {
	conn := newConnection(name)
	c.enqueue(&connectionOpenedAction{conn: conn})
	return conn
}

// CloseConnection releases the link mask bit of conn. Routers using its links lose them,
// and the link lost handler is notified.
func (c *Core) CloseConnection(conn *Connection) {
	if conn == nil || conn.closing.Swap(true) {
		return
	}
	c.enqueue(&connectionClosedAction{conn: conn})
}

func (c *Core) connectionOpenedCT(a *connectionOpenedAction, discard bool) {
	const op = "connection_opened"
	conn := a.conn
	if discard || !c.requireInterior(op) {
		conn.assign(-1)
		return
	}
	t := &c.table

	maskBit, ok := t.neighborFreeMask.First()
	if !ok {
		c.diag.critical(op, "Exceeded maximum inter-router connection count", "conn", conn.name)
		conn.assign(-1)
		return
	}
	t.neighborFreeMask.Clear(maskBit)

	conn.control = &Link{maskBit: maskBit, role: LinkControl, conn: conn}
	conn.data = &Link{maskBit: maskBit, role: LinkData, conn: conn}
	t.controlLinksByMaskBit[maskBit] = conn.control
	t.dataLinksByMaskBit[maskBit] = conn.data
	conn.assign(maskBit)
	c.Log.Debug("inter-router connection opened", "conn", conn.name, "link_maskbit", maskBit)
}

func (c *Core) connectionClosedCT(a *connectionClosedAction, discard bool) {
	const op = "connection_closed"
	conn := a.conn
	if discard || !c.table.interior {
		return
	}
	t := &c.table

	maskBit := conn.MaskBit()
	if maskBit < 0 {
		// it never got a mask bit, so there is nothing to give back
		return
	}
	if t.controlLinksByMaskBit[maskBit] != conn.control {
		c.fault(op, "Link maskbit claimed by another connection", "conn", conn.name, "link_maskbit", maskBit)
		return
	}

	for _, rnode := range t.routers {
		if rnode.peerControlLink == conn.control || rnode.peerDataLink == conn.data {
			rnode.peerControlLink = nil
			rnode.peerDataLink = nil
		}
	}
	t.controlLinksByMaskBit[maskBit] = nil
	t.dataLinksByMaskBit[maskBit] = nil
	t.neighborFreeMask.Set(maskBit)
	conn.control = nil
	conn.data = nil

	c.Log.Debug("inter-router connection closed", "conn", conn.name, "link_maskbit", maskBit)
	c.postLinkLostCT(maskBit)
}

package core

import (
	"github.com/encodeous/nyroute/perf"
)

type MobileAddedFunc func(context any, addressHash string)
type MobileRemovedFunc func(context any, addressHash string)
type LinkLostFunc func(context any, linkMaskBit int)

type routeTableHandlers struct {
	context       any
	mobileAdded   MobileAddedFunc
	mobileRemoved MobileRemovedFunc
	linkLost      LinkLostFunc
}

// RegisterRouteTableHandlers installs the callbacks that receive route table notifications.
// Only one registration is active, a later call replaces the earlier one. Callbacks run on the
// notifier goroutine, in the order the notifications were posted.
func (c *Core) RegisterRouteTableHandlers(context any, mobileAdded MobileAddedFunc, mobileRemoved MobileRemovedFunc, linkLost LinkLostFunc) {
	c.handlers.Store(&routeTableHandlers{
		context:       context,
		mobileAdded:   mobileAdded,
		mobileRemoved: mobileRemoved,
		linkLost:      linkLost,
	})
}

// generalWork is a notification posted by the core goroutine for delivery on the notifier goroutine
type generalWork interface {
	release()
}

type mobileAddedWork struct {
	field *field
}

type mobileRemovedWork struct {
	field *field
}

type linkLostWork struct {
	maskBit int
}

func (w *mobileAddedWork) release()   { w.field.release() }
func (w *mobileRemovedWork) release() { w.field.release() }
func (w *linkLostWork) release()      {}

func (c *Core) postMobileAddedCT(addressHash string) {
	c.postGeneralWorkCT(&mobileAddedWork{field: newField(addressHash)})
}

func (c *Core) postMobileRemovedCT(addressHash string) {
	c.postGeneralWorkCT(&mobileRemovedWork{field: newField(addressHash)})
}

func (c *Core) postLinkLostCT(linkMaskBit int) {
	c.postGeneralWorkCT(&linkLostWork{maskBit: linkMaskBit})
}

func (c *Core) postGeneralWorkCT(w generalWork) {
	if !c.work.push(w) {
		w.release()
	}
}

func (c *Core) doGeneralWork(w generalWork) {
	defer w.release()
	perf.GeneralWorkPerSecond.Add(1)
	h := c.handlers.Load()
	if h == nil {
		return
	}
	switch w := w.(type) {
	case *mobileAddedWork:
		if h.mobileAdded != nil {
			h.mobileAdded(h.context, w.field.String())
		}
	case *mobileRemovedWork:
		if h.mobileRemoved != nil {
			h.mobileRemoved(h.context, w.field.String())
		}
	case *linkLostWork:
		if h.linkLost != nil {
			h.linkLost(h.context, w.maskBit)
		}
	}
}

// notifier delivers general work until the core goroutine exits, then delivers what is left
func (c *Core) notifier() {
	defer close(c.notifierDone)
	for {
		select {
		case <-c.work.wake:
			for _, w := range c.work.take() {
				c.doGeneralWork(w)
			}
		case <-c.coreDone:
			for _, w := range c.work.close() {
				c.doGeneralWork(w)
			}
			return
		}
	}
}

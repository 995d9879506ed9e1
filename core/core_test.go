package core

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/nyroute/bitmask"
	"github.com/encodeous/nyroute/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkQueueOrder(t *testing.T) {
	q := newWorkQueue[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.push(i))
	}
	assert.Equal(t, 5, q.len())
	// a single wake covers everything pushed since the last take
	assert.Len(t, q.wake, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, q.take())
	assert.Empty(t, q.take())

	q.push(5)
	assert.Equal(t, []int{5}, q.close())
	assert.False(t, q.push(6))
	assert.Empty(t, q.take())
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _ := newTestCore(t, state.RouterCfg{}, nil)
	c.Start()
	c.Start()
	c.AddRouter(1, "amqp:/_topo/0/r1")
	requireConsistent(t, c)
	c.Stop()
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Fatal("core loop still running after Stop")
	}
}

func TestStopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _ := newTestCore(t, state.RouterCfg{}, nil)
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed by Stop on a core that never started")
	}
	c.Start()
	_, err := c.Snapshot(testCtx(t))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestDiscardReleasesPayloads(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _ := newTestCore(t, state.RouterCfg{}, nil)
	before := c.snapshotCT()
	fields := liveFields.Load()
	masks := bitmask.Outstanding()
	subs := liveSubscriptions.Load()

	c.AddRouter(1, "amqp:/_topo/0/r1")
	c.DelRouter(1)
	c.SetLink(1, 0)
	c.RemoveLink(1)
	c.SetNextHop(1, 2)
	c.RemoveNextHop(1)
	c.SetValidOrigins(1, bitmask.Of(2, 3))
	c.MapDestination(1, "M0a")
	c.UnmapDestination(1, "M0a")
	sub := c.Subscribe("amqp:/a", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	c.Unsubscribe(sub)
	conn := c.OpenConnection("peer")
	c.CloseConnection(conn)

	assert.Equal(t, fields+4, liveFields.Load())
	assert.Equal(t, masks+1, bitmask.Outstanding())
	assert.Equal(t, subs+1, liveSubscriptions.Load())

	// never started, so every queued action is discarded
	c.Stop()

	assert.Equal(t, fields, liveFields.Load())
	assert.Equal(t, masks, bitmask.Outstanding())
	assert.Equal(t, subs, liveSubscriptions.Load())
	assert.True(t, sub.Released())
	<-conn.Ready()
	assert.Equal(t, -1, conn.MaskBit())
	if diff := cmp.Diff(before, c.snapshotCT()); diff != "" {
		t.Errorf("discarded actions changed the table (-before +after):\n%s", diff)
	}

	_, err := c.Snapshot(testCtx(t))
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, c.Flush(testCtx(t)), ErrStopped)
}

func TestEnqueueAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _ := newTestCore(t, state.RouterCfg{}, nil)
	c.Start()
	c.Stop()

	fields := liveFields.Load()
	masks := bitmask.Outstanding()
	subs := liveSubscriptions.Load()
	c.AddRouter(1, "amqp:/_topo/0/r1")
	c.SetValidOrigins(1, bitmask.Of(1))
	sub := c.Subscribe("amqp:/a", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)

	assert.Equal(t, fields, liveFields.Load())
	assert.Equal(t, masks, bitmask.Outstanding())
	assert.Equal(t, subs, liveSubscriptions.Load())
	assert.True(t, sub.Released())
	_, err := c.Snapshot(testCtx(t))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestStopDeliversPendingNotifications(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, _ := newTestCore(t, state.RouterCfg{}, nil)
	n := registerNotifications(c)
	c.Start()
	for i := 0; i < 20; i++ {
		c.Subscribe(fmt.Sprintf("amqp:/q%d", i), ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	}
	require.NoError(t, c.Flush(testCtx(t)))
	c.Stop()

	require.Len(t, n.ch, 20)
	for i := 0; i < 20; i++ {
		assert.Equal(t, fmt.Sprintf("added M0q%d", i), <-n.ch)
	}
}

func TestNotificationsWithoutHandlers(t *testing.T) {
	c, _ := startCore(t)
	require.NoError(t, c.Flush(testCtx(t)))
	fields := liveFields.Load()

	sub := c.Subscribe("amqp:/q", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	c.Unsubscribe(sub)
	conn := c.OpenConnection("peer")
	c.CloseConnection(conn)
	require.NoError(t, c.Flush(testCtx(t)))

	// delivery happens on the notifier, give it a chance to catch up
	require.Eventually(t, func() bool {
		return liveFields.Load() == fields
	}, time.Second, time.Millisecond)
}

func TestReplaceHandlers(t *testing.T) {
	c, _ := startCore(t)
	first := registerNotifications(c)
	c.Subscribe("amqp:/a", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	assert.Equal(t, "added M0a", first.next(t))

	second := registerNotifications(c)
	c.Subscribe("amqp:/b", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	assert.Equal(t, "added M0b", second.next(t))
	first.none(t)
}

func TestNotificationOrder(t *testing.T) {
	c, _ := startCore(t)
	n := registerNotifications(c)

	a := c.Subscribe("amqp:/a", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	conn := c.OpenConnection("peer")
	c.Subscribe("amqp:/b", ClassMobile, 0, state.TreatmentAnycastBalanced, nil, nil)
	c.CloseConnection(conn)
	c.Unsubscribe(a)

	assert.Equal(t, "added M0a", n.next(t))
	assert.Equal(t, "added M0b", n.next(t))
	assert.Equal(t, "lost 0", n.next(t))
	assert.Equal(t, "removed M0a", n.next(t))
	n.none(t)
}

// Producers only ever see the effect of their own actions in the order they issued them,
// however the actions of different producers interleave.
func TestConcurrentProducers(t *testing.T) {
	c, _ := startCore(t)
	const producers = 8
	const perProducer = 10

	wg := sync.WaitGroup{}
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				bit := p*perProducer + i
				c.AddRouter(bit, fmt.Sprintf("amqp:/_topo/0/r%d", bit))
				c.MapDestination(bit, "M0shared")
				c.MapDestination(bit, fmt.Sprintf("M0own%d", bit))
				c.UnmapDestination(bit, fmt.Sprintf("M0own%d", bit))
				if i%2 == 0 {
					c.SetNextHop(bit, p*perProducer)
				}
			}
		}()
	}
	wg.Wait()
	snap := snapshot(t, c)

	require.Len(t, snap.Routers, producers*perProducer)
	shared, ok := snap.Address("M0shared")
	require.True(t, ok)
	assert.Len(t, shared.Routers, producers*perProducer)
	for _, r := range snap.Routers {
		assert.Equal(t, 4, r.RefCount)
		_, ok := snap.Address(fmt.Sprintf("M0own%d", r.MaskBit))
		assert.False(t, ok)
	}
	requireConsistent(t, c)
}

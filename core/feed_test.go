package core

import (
	"io"
	"log/slog"
	"testing"

	"github.com/encodeous/nyroute/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `
- op: open_connection
  conn: peer
- op: add_router
  router: 1
  address: amqp:/_topo/0/r1
- op: set_link
  router: 1
  conn: peer
- op: add_router
  router: 2
  address: amqp:/_topo/0/r2
- op: set_next_hop
  router: 2
  next_hop: 1
- op: set_valid_origins
  router: 2
  origins: [1]
- op: map_destination
  router: 2
  address: M0queue
- op: subscribe
  sub: s1
  address: amqp:/queue
  class: M
- op: subscribe
  sub: s2
  address: amqp:/temp
  class: M
  phase: "1"
  treatment: once
- op: unsubscribe
  sub: s2
`

func TestReplayFeed(t *testing.T) {
	ops, err := state.ParseFeed([]byte(testFeed))
	require.NoError(t, err)
	require.NoError(t, state.FeedValidator(ops))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	snap, err := Replay(state.RouterCfg{Id: "local"}, ops, logger)
	require.NoError(t, err)

	r1, ok := snap.Router(1)
	require.True(t, ok)
	require.NotNil(t, r1.ControlLink)
	assert.Equal(t, 0, *r1.ControlLink)

	r2, ok := snap.Router(2)
	require.True(t, ok)
	require.NotNil(t, r2.NextHop)
	assert.Equal(t, 1, *r2.NextHop)
	assert.Equal(t, []int{1}, r2.ValidOrigins)
	assert.Equal(t, 4, r2.RefCount)

	queue, ok := snap.Address("M0queue")
	require.True(t, ok)
	assert.Equal(t, []int{2}, queue.Routers)
	assert.Equal(t, 1, queue.Subscriptions)

	_, ok = snap.Address("M1temp")
	assert.False(t, ok)
	assert.Equal(t, []int{0}, snap.Links)
}

func TestFeedRunnerTracksNames(t *testing.T) {
	c, _ := startCore(t)
	f := NewFeedRunner(c)
	ctx := testCtx(t)

	require.NoError(t, f.Apply(ctx, []state.FeedOp{
		{Op: state.OpOpenConnection, Conn: "peer"},
		{Op: state.OpSubscribe, Sub: "s", Address: "amqp:/q", Class: "M"},
	}))
	require.NotNil(t, f.Connection("peer"))
	sub := f.Subscription("s")
	require.NotNil(t, sub)

	require.NoError(t, f.Apply(ctx, []state.FeedOp{
		{Op: state.OpUnsubscribe, Sub: "s"},
		{Op: state.OpCloseConnection, Conn: "peer"},
	}))
	assert.Nil(t, f.Subscription("s"))
	assert.Nil(t, f.Connection("peer"))
	require.NoError(t, c.Flush(ctx))
	assert.True(t, sub.Released())
}

func TestFeedRunnerErrors(t *testing.T) {
	c, _ := startCore(t)
	f := NewFeedRunner(c)
	ctx := testCtx(t)

	err := f.Apply(ctx, []state.FeedOp{{Op: state.OpUnsubscribe, Sub: "missing"}})
	assert.EqualError(t, err, "feed[0] unsubscribe: subscription missing is not active")

	err = f.Apply(ctx, []state.FeedOp{
		{Op: state.OpAddRouter, Router: 1, Address: "amqp:/_topo/0/r1"},
		{Op: state.OpSetLink, Router: 1, Conn: "nope"},
	})
	assert.EqualError(t, err, "feed[1] set_link: connection nope is not open")

	err = f.Apply(ctx, []state.FeedOp{{Op: "bogus"}})
	assert.EqualError(t, err, "feed[0] bogus: unknown operation")
}

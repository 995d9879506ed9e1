package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed(t *testing.T) {
	ops, err := ParseFeed([]byte(`
- op: add_router
  router: 3
  address: amqp:/_topo/0/router3
- op: set_valid_origins
  router: 3
  origins: [1, 4]
- op: subscribe
  sub: s
  address: amqp:/q
  class: M
  phase: "1"
  treatment: flood
`))
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, FeedOp{Op: OpAddRouter, Router: 3, Address: "amqp:/_topo/0/router3"}, ops[0])
	assert.Equal(t, []int{1, 4}, ops[1].Origins)
	require.NotNil(t, ops[2].Treatment)
	assert.Equal(t, TreatmentMulticastFlood, *ops[2].Treatment)
	assert.Equal(t, "1", ops[2].Phase)
	assert.NoError(t, FeedValidator(ops))
}

func TestFeedValidator(t *testing.T) {
	assert.NoError(t, FeedValidator([]FeedOp{
		{Op: OpOpenConnection, Conn: "peer"},
		{Op: OpSubscribe, Sub: "s", Address: "amqp:/q", Class: "M"},
		{Op: OpUnsubscribe, Sub: "s"},
		{Op: OpSubscribe, Sub: "s", Address: "amqp:/q", Class: "M"},
		{Op: OpCloseConnection, Conn: "peer"},
		{Op: OpOpenConnection, Conn: "peer"},
		// mask bits are left to the route table
		{Op: OpDelRouter, Router: 500},
	}))

	bad := map[string][]FeedOp{
		"unknown op":        {{Op: "reboot"}},
		"missing address":   {{Op: OpMapDestination, Router: 1}},
		"missing sub":       {{Op: OpSubscribe, Address: "amqp:/q", Class: "M"}},
		"long class":        {{Op: OpSubscribe, Sub: "s", Address: "amqp:/q", Class: "MM"}},
		"long phase":        {{Op: OpSubscribe, Sub: "s", Address: "amqp:/q", Class: "M", Phase: "12"}},
		"duplicate sub":     {{Op: OpSubscribe, Sub: "s", Address: "a", Class: "M"}, {Op: OpSubscribe, Sub: "s", Address: "b", Class: "M"}},
		"inactive sub":      {{Op: OpUnsubscribe, Sub: "s"}},
		"bad conn name":     {{Op: OpOpenConnection, Conn: "a b"}},
		"conn already open": {{Op: OpOpenConnection, Conn: "c"}, {Op: OpOpenConnection, Conn: "c"}},
		"conn not open":     {{Op: OpCloseConnection, Conn: "c"}},
	}
	for name, ops := range bad {
		assert.Error(t, FeedValidator(ops), name)
	}
}

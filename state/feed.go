package state

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
)

// FeedOp is one route table operation, as the router protocol layer would issue it.
// A feed is a list of these, applied in order.
type FeedOp struct {
	Op        string     `yaml:"op"`
	Router    int        `yaml:"router,omitempty"`
	NextHop   int        `yaml:"next_hop,omitempty"`
	Link      int        `yaml:"link,omitempty"`
	Address   string     `yaml:"address,omitempty"`
	Origins   []int      `yaml:"origins,omitempty"`
	Class     string     `yaml:"class,omitempty"`
	Phase     string     `yaml:"phase,omitempty"`
	Treatment *Treatment `yaml:"treatment,omitempty"`
	Conn      string     `yaml:"conn,omitempty"` // connection name for open_connection / close_connection
	Sub       string     `yaml:"sub,omitempty"`  // subscription name for subscribe / unsubscribe
}

const (
	OpAddRouter        = "add_router"
	OpDelRouter        = "del_router"
	OpSetLink          = "set_link"
	OpRemoveLink       = "remove_link"
	OpSetNextHop       = "set_next_hop"
	OpRemoveNextHop    = "remove_next_hop"
	OpSetValidOrigins  = "set_valid_origins"
	OpMapDestination   = "map_destination"
	OpUnmapDestination = "unmap_destination"
	OpSubscribe        = "subscribe"
	OpUnsubscribe      = "unsubscribe"
	OpOpenConnection   = "open_connection"
	OpCloseConnection  = "close_connection"
)

var feedOps = []string{
	OpAddRouter, OpDelRouter, OpSetLink, OpRemoveLink, OpSetNextHop, OpRemoveNextHop,
	OpSetValidOrigins, OpMapDestination, OpUnmapDestination, OpSubscribe, OpUnsubscribe,
	OpOpenConnection, OpCloseConnection,
}

func ParseFeed(data []byte) ([]FeedOp, error) {
	ops := make([]FeedOp, 0)
	err := yaml.Unmarshal(data, &ops)
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func ReadFeed(path string) ([]FeedOp, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFeed(file)
}

// FeedValidator checks that a feed is well-formed. Mask bits are deliberately not range checked,
// the route table reports those itself.
func FeedValidator(ops []FeedOp) error {
	subs := make([]string, 0)
	conns := make([]string, 0)
	for i, op := range ops {
		if !slices.Contains(feedOps, op.Op) {
			return fmt.Errorf("feed[%d]: unknown operation %q", i, op.Op)
		}
		switch op.Op {
		case OpAddRouter, OpMapDestination, OpUnmapDestination:
			if op.Address == "" {
				return fmt.Errorf("feed[%d]: %s requires an address", i, op.Op)
			}
		case OpSubscribe:
			if op.Address == "" || op.Sub == "" {
				return fmt.Errorf("feed[%d]: subscribe requires an address and a sub name", i)
			}
			if len(op.Class) != 1 {
				return fmt.Errorf("feed[%d]: class must be a single character", i)
			}
			if len(op.Phase) > 1 {
				return fmt.Errorf("feed[%d]: phase must be a single character", i)
			}
			if slices.Contains(subs, op.Sub) {
				return fmt.Errorf("feed[%d]: duplicate subscription %s", i, op.Sub)
			}
			subs = append(subs, op.Sub)
		case OpUnsubscribe:
			idx := slices.Index(subs, op.Sub)
			if idx == -1 {
				return fmt.Errorf("feed[%d]: subscription %s is not active", i, op.Sub)
			}
			subs = slices.Delete(subs, idx, idx+1)
		case OpOpenConnection:
			if err := NameValidator(op.Conn); err != nil {
				return fmt.Errorf("feed[%d]: %w", i, err)
			}
			if slices.Contains(conns, op.Conn) {
				return fmt.Errorf("feed[%d]: connection %s is already open", i, op.Conn)
			}
			conns = append(conns, op.Conn)
		case OpCloseConnection:
			idx := slices.Index(conns, op.Conn)
			if idx == -1 {
				return fmt.Errorf("feed[%d]: connection %s is not open", i, op.Conn)
			}
			conns = slices.Delete(conns, idx, idx+1)
		}
	}
	return nil
}

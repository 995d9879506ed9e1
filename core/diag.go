package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/nyroute/perf"
	"github.com/encodeous/nyroute/state"
	"github.com/jellydator/ttlcache/v3"
)

// diagnostics reports operator and protocol level faults. A protocol peer that keeps
// repeating a bad request would otherwise flood the log, so identical diagnostics within
// the hold down window are demoted to debug.
type diagnostics struct {
	log  *slog.Logger
	seen *ttlcache.Cache[string, struct{}]
}

func newDiagnostics(log *slog.Logger, holdDown time.Duration) *diagnostics {
	d := &diagnostics{log: log}
	if holdDown > 0 {
		d.seen = ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](holdDown),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		)
	}
	return d
}

func (d *diagnostics) critical(op, msg string, args ...any) {
	text := fmt.Sprintf("%s: %s", op, msg)
	if d.seen != nil {
		key := fmt.Sprint(text, args)
		if d.seen.Has(key) {
			d.log.Debug("(repeated) "+text, args...)
			return
		}
		d.seen.Set(key, struct{}{}, ttlcache.DefaultTTL)
	}
	perf.CriticalPerSecond.Add(1)
	state.Critical(d.log, text, args...)
}

func (d *diagnostics) gc() {
	if d.seen != nil {
		d.seen.DeleteExpired()
	}
}

// fault reports an internal consistency fault. These mean the table was already corrupted
// by an earlier bug, so with debug assertions on, the router stops here.
func (c *Core) fault(op, msg string, args ...any) {
	state.Critical(c.Log, fmt.Sprintf("%s: %s", op, msg), args...)
	if state.DBG_assert {
		panic(fmt.Sprintf("%s: %s %v", op, msg, args))
	}
}

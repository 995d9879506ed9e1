package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	ActionsPerSecond     = metric.NewCounter("10s1s")
	DiscardsPerSecond    = metric.NewCounter("10s1s")
	GeneralWorkPerSecond = metric.NewCounter("10s1s")
	CriticalPerSecond    = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("nyroute:Actions/s", ActionsPerSecond)
	expvar.Publish("nyroute:Discards/s", DiscardsPerSecond)
	expvar.Publish("nyroute:GeneralWork/s", GeneralWorkPerSecond)
	expvar.Publish("nyroute:Critical/s", CriticalPerSecond)
	expvar.Publish("nyroute:DispatchLatency (µs)", DispatchLatency)
}

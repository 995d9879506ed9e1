package state

import "time"

const (
	DefaultArea = "0"

	// AddressPhaseDefault is the phase given to mobile addresses that do not carry one.
	AddressPhaseDefault = '0'
)

var (
	ConfigPath = "router.yaml"

	// DiagnosticHoldDown suppresses repeats of an identical critical diagnostic
	DiagnosticHoldDown = time.Second * 2

	GcDelay = time.Millisecond * 1000

	// SlowDispatchThreshold is how long a single action may run before a warning is logged
	SlowDispatchThreshold = time.Millisecond * 4

	InspectSocketPath = "/var/run/nyroute.sock"
)

package state

var (
	// DBG_assert turns internal consistency faults into panics
	DBG_assert = false
	DBG_trace  = false
	DBG_debug  = false
	// DBG_log_actions logs every action handled by the core
	DBG_log_actions = false
)

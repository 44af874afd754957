package events

// names are the wire names used by the SSE stream and NATS subjects.
var names = map[uint32]string{
	TypeProcessStarted:   "process-started",
	TypeProcessExited:    "process-exited",
	TypeProcessRestarted: "process-restarted",
	TypeProcessEvicted:   "process-evicted",
	TypeSignalRelayed:    "signal-relayed",
	TypeStateChanged:     "state-changed",
	TypeMemorySample:     "memory-sample",
	TypeEscalation:       "escalation",
}

// Name returns the wire name of ev, or "" for an unknown event.
func Name(ev Event) string {
	if ev == nil {
		return ""
	}
	return names[ev.Type()]
}

// Catalog returns a zero value of every event keyed by wire name.
func Catalog() map[string]any {
	return map[string]any{
		names[TypeProcessStarted]:   ProcessStartedEvent{},
		names[TypeProcessExited]:    ProcessExitedEvent{},
		names[TypeProcessRestarted]: ProcessRestartedEvent{},
		names[TypeProcessEvicted]:   ProcessEvictedEvent{},
		names[TypeSignalRelayed]:    SignalRelayedEvent{},
		names[TypeStateChanged]:     StateChangedEvent{},
		names[TypeMemorySample]:     MemorySampleEvent{},
		names[TypeEscalation]:       EscalationEvent{},
	}
}

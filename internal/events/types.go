package events

// Event type constants for kelindar/event.
const (
	TypeProcessStarted uint32 = iota + 1
	TypeProcessExited
	TypeProcessRestarted
	TypeProcessEvicted
	TypeSignalRelayed
	TypeStateChanged
	TypeMemorySample
	TypeEscalation
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProcessStartedEvent is published after a worker process has been launched.
type ProcessStartedEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Worker process id"`
	Live      int    `json:"live" example:"4" doc:"Live worker count after the launch"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStartedEvent.
func (e ProcessStartedEvent) Type() uint32 { return TypeProcessStarted }

// ProcessExitedEvent is published when a worker has been reaped.
type ProcessExitedEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Worker process id"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Exit code, -1 when killed by a signal"`
	Signal    string `json:"signal,omitempty" example:"terminated" doc:"Terminating signal, if any"`
	Live      int    `json:"live" example:"3" doc:"Live worker count after the exit"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessExitedEvent.
func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }

// ProcessRestartedEvent is published when a dead worker has been replaced.
type ProcessRestartedEvent struct {
	OldPID    int    `json:"old_pid" example:"4242" doc:"Process id of the worker that exited"`
	NewPID    int    `json:"new_pid" example:"4250" doc:"Process id of the replacement"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessRestartedEvent.
func (e ProcessRestartedEvent) Type() uint32 { return TypeProcessRestarted }

// ProcessEvictedEvent is published when a worker is terminated for exceeding the memory ceiling.
type ProcessEvictedEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Worker process id"`
	Bytes     uint64 `json:"bytes" example:"268435456" doc:"Measured memory usage"`
	Limit     uint64 `json:"limit" example:"209715200" doc:"Configured memory ceiling"`
	Mode      string `json:"mode" example:"rss" doc:"Measurement mode"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessEvictedEvent.
func (e ProcessEvictedEvent) Type() uint32 { return TypeProcessEvicted }

// SignalRelayedEvent is published after a trapped signal was fanned out to the workers.
type SignalRelayedEvent struct {
	Signal    string `json:"signal" example:"user defined signal 1" doc:"Relayed signal"`
	Targets   int    `json:"targets" example:"4" doc:"Number of workers signalled"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SignalRelayedEvent.
func (e SignalRelayedEvent) Type() uint32 { return TypeSignalRelayed }

// StateChangedEvent is published on every supervisor lifecycle transition.
type StateChangedEvent struct {
	From      string `json:"from" example:"running" doc:"Previous state"`
	To        string `json:"to" example:"draining" doc:"New state"`
	Status    string `json:"status" example:"procman [4 processes]" doc:"Status line"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// MemorySampleEvent carries one memory measurement of a worker.
type MemorySampleEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Worker process id"`
	Bytes     uint64 `json:"bytes" example:"104857600" doc:"Measured memory usage"`
	Mode      string `json:"mode" example:"rss" doc:"Measurement mode"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MemorySampleEvent.
func (e MemorySampleEvent) Type() uint32 { return TypeMemorySample }

// EscalationEvent is published when workers outlive the shutdown deadline.
type EscalationEvent struct {
	Signal    string `json:"signal" example:"interrupt" doc:"Signal sent to the survivors"`
	PIDs      []int  `json:"pids" doc:"Workers still alive at the deadline"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EscalationEvent.
func (e EscalationEvent) Type() uint32 { return TypeEscalation }

// Package metrics provides Prometheus metrics for the supervised worker pool.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/procman/internal/events"
)

var (
	workersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "live",
		Help:      "Number of live worker processes",
	})

	workerStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "started_total",
		Help:      "Worker processes launched, including replacements",
	})

	workerExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "exited_total",
		Help:      "Worker processes reaped, by how they ended",
	}, []string{"reason"})

	workerRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "restarted_total",
		Help:      "Worker processes replaced after an exit",
	})

	workerEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "evicted_total",
		Help:      "Worker processes terminated for exceeding the memory ceiling",
	})

	workerMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procman",
		Subsystem: "workers",
		Name:      "memory_bytes",
		Help:      "Last measured memory usage per worker",
	}, []string{"pid", "mode"})

	signalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "signals",
		Name:      "relayed_total",
		Help:      "Signals fanned out to the workers",
	}, []string{"signal"})

	escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procman",
		Subsystem: "shutdown",
		Name:      "escalations_total",
		Help:      "Forceful signals sent to workers that outlived the shutdown timeout",
	}, []string{"signal"})

	supervisorState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procman",
		Subsystem: "supervisor",
		Name:      "state",
		Help:      "1 for the current lifecycle state, 0 otherwise",
	}, []string{"state"})

	// Measured pids, so exits can drop their memory series.
	memoryModes   = make(map[int]string)
	memoryModesMu sync.Mutex
)

// Subscribe feeds the metrics from bus and returns a function that stops it.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.ProcessStartedEvent) {
			workerStarts.Inc()
			workersLive.Set(float64(e.Live))
		}),
		bus.Subscribe(func(e events.ProcessExitedEvent) {
			reason := "exit"
			if e.Signal != "" {
				reason = "signal"
			} else if e.ExitCode != 0 {
				reason = "error"
			}
			workerExits.WithLabelValues(reason).Inc()
			workersLive.Set(float64(e.Live))
			deleteMemory(e.PID)
		}),
		bus.Subscribe(func(_ events.ProcessRestartedEvent) {
			workerRestarts.Inc()
		}),
		bus.Subscribe(func(_ events.ProcessEvictedEvent) {
			workerEvictions.Inc()
		}),
		bus.Subscribe(func(e events.MemorySampleEvent) {
			setMemory(e.PID, e.Mode, e.Bytes)
		}),
		bus.Subscribe(func(e events.SignalRelayedEvent) {
			signalsRelayed.WithLabelValues(e.Signal).Inc()
		}),
		bus.Subscribe(func(e events.EscalationEvent) {
			escalations.WithLabelValues(e.Signal).Add(float64(len(e.PIDs)))
		}),
		bus.Subscribe(func(e events.StateChangedEvent) {
			if e.From != "" {
				supervisorState.WithLabelValues(e.From).Set(0)
			}
			supervisorState.WithLabelValues(e.To).Set(1)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func setMemory(pid int, mode string, bytes uint64) {
	memoryModesMu.Lock()
	memoryModes[pid] = mode
	memoryModesMu.Unlock()
	workerMemory.WithLabelValues(strconv.Itoa(pid), mode).Set(float64(bytes))
}

func deleteMemory(pid int) {
	memoryModesMu.Lock()
	mode, ok := memoryModes[pid]
	delete(memoryModes, pid)
	memoryModesMu.Unlock()
	if ok {
		workerMemory.DeleteLabelValues(strconv.Itoa(pid), mode)
	}
}

package supervisor

import (
	"context"
	"syscall"
	"time"

	"github.com/docker/go-units"

	"github.com/smazurov/procman/internal/events"
)

// defaultMemoryInterval is the scan period when MemoryInterval is unset.
const defaultMemoryInterval = time.Minute

// memoryLoop scans the pool every interval until ctx is cancelled.
func (m *Manager) memoryLoop(ctx context.Context) {
	ticker := time.NewTicker(m.memoryInterval)
	defer ticker.Stop()

	m.logger.Info("Memory monitor started",
		"limit", units.BytesSize(float64(m.maxMemory)),
		"mode", string(m.memoryMode),
		"interval", m.memoryInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scanMemory()
		}
	}
}

// scanMemory measures each child and sends SIGTERM to the first one over the
// ceiling. At most one child is evicted per scan. It returns the evicted pid,
// or 0.
func (m *Manager) scanMemory() int {
	if m.desired.Load() == 0 {
		return 0
	}

	for _, pid := range m.table.Snapshot() {
		used, err := m.probe.Measure(pid, m.memoryMode)
		if err != nil {
			m.logger.Warn("Failed to measure worker memory", "pid", pid, "error", err)
			continue
		}

		now := time.Now().Format(time.RFC3339)
		m.bus.Publish(events.MemorySampleEvent{
			PID:       pid,
			Bytes:     used,
			Mode:      string(m.memoryMode),
			Timestamp: now,
		})

		if used > m.maxMemory {
			m.logger.Warn("Worker over memory limit, terminating",
				"pid", pid,
				"used", units.BytesSize(float64(used)),
				"limit", units.BytesSize(float64(m.maxMemory)))
			m.signal(pid, syscall.SIGTERM)
			m.bus.Publish(events.ProcessEvictedEvent{
				PID:       pid,
				Bytes:     used,
				Limit:     m.maxMemory,
				Mode:      string(m.memoryMode),
				Timestamp: now,
			})
			return pid
		}
	}
	return 0
}

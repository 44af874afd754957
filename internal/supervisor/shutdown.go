package supervisor

import (
	"context"
	"syscall"
	"time"

	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/worker"
)

const (
	// defaultShutdownTimeout applies when neither the options nor the worker set one.
	defaultShutdownTimeout = 25 * time.Second
	// shutdownGrace is added to a worker-provided shutdown timeout.
	shutdownGrace = 5 * time.Second
)

// Stop drains the pool: the desired count drops to 0, every child receives
// SIGTSTP to quiesce and then SIGTERM. Children still alive after the
// shutdown timeout receive SIGINT, and SIGKILL after KillTimeout when set.
// Stop does not wait; Start returns once the last child is reaped.
func (m *Manager) Stop() {
	m.desired.Store(0)
	m.relay(syscall.SIGTSTP)
	m.relay(syscall.SIGTERM)
}

// shutdownTimeout is resolved on use since the worker's own timeout is only
// known after Parse.
func (m *Manager) shutdownTimeout() time.Duration {
	if m.opts.ShutdownTimeout > 0 {
		return m.opts.ShutdownTimeout
	}
	if st, ok := m.entry.(worker.ShutdownTimeouter); ok {
		if d := st.ShutdownTimeout(); d > 0 {
			return d + shutdownGrace
		}
	}
	return defaultShutdownTimeout
}

// escalate waits for pids to exit and force-terminates the survivors. Pids
// already claimed by another escalation are skipped.
func (m *Manager) escalate(ctx context.Context, pids []int) {
	if pids = m.claimEscalation(pids); len(pids) > 0 {
		m.forceExit(ctx, pids)
	}
}

// forceExit waits out the shutdown timeout, then sends SIGINT and, with
// KillTimeout set, SIGKILL to whatever of pids is still alive.
func (m *Manager) forceExit(ctx context.Context, pids []int) {
	timeout := m.shutdownTimeout()
	survivors := m.waitForChildrenToExit(ctx, pids, time.Now().Add(timeout))
	if len(survivors) == 0 {
		return
	}

	m.logger.Warn("Workers did not exit in time, interrupting", "pids", survivors, "timeout", timeout)
	m.forceSignal(survivors, syscall.SIGINT)

	if m.opts.KillTimeout <= 0 {
		return
	}
	survivors = m.waitForChildrenToExit(ctx, survivors, time.Now().Add(m.opts.KillTimeout))
	if len(survivors) == 0 {
		return
	}

	m.logger.Warn("Workers ignored interrupt, killing", "pids", survivors, "timeout", m.opts.KillTimeout)
	m.forceSignal(survivors, syscall.SIGKILL)
}

// claimEscalation returns the pids of pids not yet escalated and marks them.
func (m *Manager) claimEscalation(pids []int) []int {
	m.escalateMu.Lock()
	defer m.escalateMu.Unlock()
	var out []int
	for _, pid := range pids {
		if !m.escalated[pid] {
			m.escalated[pid] = true
			out = append(out, pid)
		}
	}
	return out
}

func (m *Manager) forceSignal(pids []int, sig syscall.Signal) {
	for _, pid := range pids {
		m.signal(pid, sig)
	}
	m.bus.Publish(events.EscalationEvent{
		Signal:    sig.String(),
		PIDs:      pids,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// waitForChildrenToExit polls until none of pids is alive or the deadline
// passes, and returns the pids still alive. A pid is alive while the process
// exists and the table still tracks it.
func (m *Manager) waitForChildrenToExit(ctx context.Context, pids []int, deadline time.Time) []int {
	for {
		var alive []int
		for _, pid := range pids {
			if m.table.Contains(pid) && m.alive(pid) {
				alive = append(alive, pid)
			}
		}
		if len(alive) == 0 || !time.Now().Before(deadline) {
			return alive
		}
		pids = alive

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.pollInterval):
		}
	}
}

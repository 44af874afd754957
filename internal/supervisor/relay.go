package supervisor

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/procman/internal/events"
)

// relayedSignals are trapped in the master and forwarded verbatim to every
// child. SIGTTIN is the stop request and SIGTSTP the terminal stop.
var relayedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
	syscall.SIGTTIN,
	syscall.SIGTSTP,
}

const signalBuffer = 16

func isDrainSignal(sig syscall.Signal) bool {
	return sig == syscall.SIGINT || sig == syscall.SIGTERM
}

// installRelay starts trapping relayedSignals. The runtime's handler only
// queues the signal; all work happens on the relay goroutine. It returns
// false when called outside the master process.
func (m *Manager) installRelay(ctx context.Context) bool {
	if os.Getpid() != m.masterPID {
		m.logger.Warn("Not the master process, signal relay not installed", "pid", os.Getpid(), "master_pid", m.masterPID)
		return false
	}

	sigs := make(chan os.Signal, signalBuffer)
	signal.Notify(sigs, relayedSignals...)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if s, ok := sig.(syscall.Signal); ok {
					m.logger.Info("Signal trapped", "signal", s.String())
					m.relay(s)
				}
			}
		}
	}()
	return true
}

// relay forwards sig to every tracked child. INT and TERM also start draining
// and, once per Manager, the wait-and-escalate helper.
func (m *Manager) relay(sig syscall.Signal) {
	drain := isDrainSignal(sig)
	if drain {
		m.desired.Store(0)
		if m.started.Load() {
			m.setState(StateDraining)
		}
	}

	pids := m.table.Snapshot()
	for _, pid := range pids {
		m.signal(pid, sig)
	}
	if drain {
		// A child stopped by an earlier SIGTSTP only sees TERM once resumed.
		for _, pid := range pids {
			m.signal(pid, syscall.SIGCONT)
		}
	}

	m.logger.Debug("Signal relayed", "signal", sig.String(), "targets", len(pids))
	m.bus.Publish(events.SignalRelayedEvent{
		Signal:    sig.String(),
		Targets:   len(pids),
		Timestamp: time.Now().Format(time.RFC3339),
	})

	if drain && m.desired.Load() == 0 && m.escalating.CompareAndSwap(false, true) {
		go m.escalate(m.ctx, m.table.Snapshot())
	}
}

// signal sends sig to pid. A vanished pid is an expected race and only logged
// at debug level.
func (m *Manager) signal(pid int, sig syscall.Signal) {
	err := m.kill(pid, sig)
	switch {
	case err == nil:
	case errors.Is(err, syscall.ESRCH), errors.Is(err, os.ErrProcessDone):
		m.logger.Debug("Worker already gone", "pid", pid, "signal", sig.String())
	default:
		m.logger.Warn("Failed to signal worker", "pid", pid, "signal", sig.String(), "error", err)
	}
}

func killProcess(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

// processAlive reports whether pid exists. Unreaped zombies count as alive,
// so callers also check the table.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

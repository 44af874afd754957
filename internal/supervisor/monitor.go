package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/smazurov/procman/internal/events"
)

// childExit is the reaped status of one child.
type childExit struct {
	pid    int
	code   int
	signal syscall.Signal
	err    error
}

// waitChild reaps cmd and reports its exit to the health monitor.
func (m *Manager) waitChild(cmd *exec.Cmd) {
	err := cmd.Wait()

	ex := childExit{pid: cmd.Process.Pid, code: exitCodeFromError(err)}
	if state := cmd.ProcessState; state != nil {
		ex.code = state.ExitCode()
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			ex.signal = ws.Signal()
		}
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		ex.err = err
	}

	select {
	case m.exits <- ex:
	case <-m.done:
	}
}

// monitor reaps children and replaces them until the table is empty.
func (m *Manager) monitor(ctx context.Context) error {
	stopRequested := false
	for m.table.Size() > 0 {
		select {
		case ex := <-m.exits:
			if err := m.handleExit(ex); err != nil {
				return err
			}
		case <-ctx.Done():
			if !stopRequested {
				stopRequested = true
				m.logger.Info("Context cancelled, stopping workers")
				m.Stop()
			}
			ctx = context.WithoutCancel(ctx)
		}
	}
	return nil
}

func (m *Manager) handleExit(ex childExit) error {
	m.table.Remove(ex.pid)

	attrs := []any{"pid", ex.pid, "exit_code", ex.code}
	if ex.signal != 0 {
		attrs = append(attrs, "signal", ex.signal.String())
	}
	if ex.err != nil {
		attrs = append(attrs, "error", ex.err)
	}
	m.logger.Info("Worker exited", attrs...)

	ev := events.ProcessExitedEvent{
		PID:       ex.pid,
		ExitCode:  ex.code,
		Live:      m.table.Size(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if ex.signal != 0 {
		ev.Signal = ex.signal.String()
	}
	m.bus.Publish(ev)

	if m.table.Size() < int(m.desired.Load()) {
		pid, err := m.launch()
		if err != nil {
			return err
		}
		m.logger.Info("Worker replaced", "old_pid", ex.pid, "new_pid", pid)
		m.bus.Publish(events.ProcessRestartedEvent{
			OldPID:    ex.pid,
			NewPID:    pid,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}

	m.updateStatus()
	return nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

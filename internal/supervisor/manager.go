package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/hooks"
	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/memprobe"
	"github.com/smazurov/procman/internal/worker"
)

// pollInterval is the period of Wait and the shutdown liveness poll.
const pollInterval = 10 * time.Millisecond

// Options configures a Manager.
type Options struct {
	// Processes is the pool size (required, at least 1).
	Processes int
	// Prefork boots the worker once in the parent before any child exists.
	Prefork bool
	// Preboot is a shell file run once in the parent before launching.
	Preboot string

	// MaxMemory enables the memory monitor when non-zero (bytes).
	MaxMemory uint64
	// MemoryMode selects rss, uss or pss. Defaults to rss.
	MemoryMode memprobe.Mode
	// MemoryInterval is the memory scan period. Defaults to one minute.
	MemoryInterval time.Duration

	// ShutdownTimeout is how long draining children get before SIGINT.
	// Zero derives it from the worker entry, falling back to 25s.
	ShutdownTimeout time.Duration
	// KillTimeout enables SIGKILL for children that survive the SIGINT.
	KillTimeout time.Duration

	// Silent discards all supervisor logging.
	Silent bool
	// Logger for supervisor output. If nil, uses the "supervisor" module logger.
	Logger logging.Logger

	// Hooks holds the fork hooks. If nil, a fresh registry is used.
	Hooks *hooks.Registry
	// Probe measures memory. If nil and MaxMemory is set, the /proc probe is used.
	Probe memprobe.Probe
	// Bus receives lifecycle events (optional).
	Bus *events.Bus
	// Launcher creates children (required).
	Launcher Launcher
	// Entry is the worker run in each child. Required for re-exec launchers
	// and for prefork.
	Entry worker.Entry
}

// Manager supervises a pool of worker processes.
type Manager struct {
	opts     Options
	logger   logging.Logger
	hooks    *hooks.Registry
	probe    memprobe.Probe
	bus      *events.Bus
	launcher Launcher
	entry    worker.Entry
	app      worker.App

	mode           worker.BootMode
	maxMemory      uint64
	memoryMode     memprobe.Mode
	memoryInterval time.Duration
	masterPID      int

	table      *Table
	desired    atomic.Int64
	started    atomic.Bool
	escalating atomic.Bool
	launches   atomic.Int64

	escalateMu sync.Mutex
	escalated  map[int]bool

	stateMu sync.RWMutex
	state   State
	status  string

	exits    chan childExit
	done     chan struct{}
	doneOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	kill         func(pid int, sig syscall.Signal) error
	alive        func(pid int) bool
	pollInterval time.Duration
}

// New validates opts and returns an idle Manager. The boot mode is decided
// here, once.
func New(opts Options) (*Manager, error) {
	if opts.Processes < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidProcessCount, opts.Processes)
	}
	if opts.Launcher == nil {
		return nil, errors.New("launcher required")
	}

	mode := selectMode(opts)
	if opts.Entry == nil {
		if el, ok := opts.Launcher.(*ExecLauncher); ok && el.Reexec() {
			return nil, fmt.Errorf("%w: re-exec launcher", ErrNoEntry)
		}
		if mode == worker.BootPrefork {
			return nil, fmt.Errorf("%w: prefork", ErrNoEntry)
		}
	}

	memoryMode := opts.MemoryMode
	if memoryMode == "" {
		memoryMode = memprobe.ModeRSS
	}
	if _, err := memprobe.ParseMode(string(memoryMode)); err != nil {
		return nil, err
	}
	interval := opts.MemoryInterval
	if interval <= 0 {
		interval = defaultMemoryInterval
	}

	probe := opts.Probe
	if probe == nil && opts.MaxMemory > 0 {
		p, err := memprobe.New()
		if err != nil {
			return nil, err
		}
		probe = p
	}

	var logger logging.Logger
	switch {
	case opts.Silent:
		logger = logging.Nop()
	case opts.Logger != nil:
		logger = opts.Logger
	default:
		logger = logging.GetLogger("supervisor")
	}

	reg := opts.Hooks
	if reg == nil {
		reg = hooks.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		opts:           opts,
		logger:         logger,
		hooks:          reg,
		probe:          probe,
		bus:            opts.Bus,
		launcher:       opts.Launcher,
		entry:          opts.Entry,
		mode:           mode,
		maxMemory:      opts.MaxMemory,
		memoryMode:     memoryMode,
		memoryInterval: interval,
		masterPID:      os.Getpid(),
		table:          NewTable(),
		escalated:      make(map[int]bool),
		state:          StateIdle,
		exits:          make(chan childExit, opts.Processes),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		kill:           killProcess,
		alive:          processAlive,
		pollInterval:   pollInterval,
	}
	m.desired.Store(int64(opts.Processes))
	m.status = m.formatStatus(0)
	return m, nil
}

// Start installs the signal relay, boots, launches the pool and supervises
// it. It blocks until every child has exited. Cancelling ctx behaves like
// Stop. A second call returns ErrAlreadyStarted.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer m.finish()

	m.setState(StateLaunching)
	m.installRelay(m.ctx)

	if err := m.boot(m.ctx); err != nil {
		m.logger.Error("Boot failed", "error", err)
		return err
	}

	for i := 0; i < m.opts.Processes && m.desired.Load() > 0; i++ {
		if _, err := m.launch(); err != nil {
			m.abort(err)
			return err
		}
	}

	if m.desired.Load() > 0 {
		m.setState(StateRunning)
	}
	m.logger.Info("Workers started", "processes", m.table.Size(), "mode", m.mode.String())

	if m.maxMemory > 0 {
		go m.memoryLoop(m.ctx)
	}

	if err := m.monitor(ctx); err != nil {
		m.abort(err)
		return err
	}
	m.logger.Info("All workers stopped")
	return nil
}

// finish releases the background goroutines and records the terminal state.
func (m *Manager) finish() {
	m.doneOnce.Do(func() {
		m.cancel()
		close(m.done)
	})
	m.setState(StateStopped)
}

// abort is the fatal-launch path: every child already launched gets TERM and
// is escalated before Start returns. Without KillTimeout a child that also
// ignores SIGINT outlives the supervisor.
func (m *Manager) abort(err error) {
	m.logger.Error("Launch failed, terminating workers", "error", err, "processes", m.table.Size())
	m.desired.Store(0)
	pids := m.table.Snapshot()
	for _, pid := range pids {
		m.signal(pid, syscall.SIGTERM)
	}
	m.forceExit(m.ctx, pids)
}

// launch creates one child and starts reaping it.
func (m *Manager) launch() (int, error) {
	idx := int(m.launches.Add(1) - 1)
	cmd, err := m.launcher.Launch(LaunchContext{Mode: m.mode, MasterPID: m.masterPID, Index: idx})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	pid := cmd.Process.Pid
	m.table.Add(pid)
	go m.waitChild(cmd)

	// A drain that snapshotted the table before Add never signalled this child,
	// and an escalation already under way does not cover it.
	if m.desired.Load() == 0 {
		m.signal(pid, syscall.SIGTERM)
		if m.escalating.Load() {
			go m.escalate(m.ctx, []int{pid})
		}
	}

	live := m.table.Size()
	m.logger.Info("Worker started", "pid", pid, "processes", live)
	m.bus.Publish(events.ProcessStartedEvent{
		PID:       pid,
		Live:      live,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	m.updateStatus()
	return pid, nil
}

// Wait polls until the number of live children equals the desired count.
// On timeout it returns an error wrapping ErrWaitTimeout. It never changes
// the Manager's state.
func (m *Manager) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		live, want := m.table.Size(), int(m.desired.Load())
		if live == want {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %d of %d processes after %s", ErrWaitTimeout, live, want, timeout)
		}
		time.Sleep(m.pollInterval)
	}
}

// PIDs returns a snapshot of the live child pids in launch order.
func (m *Manager) PIDs() []int {
	return m.table.Snapshot()
}

// Started reports whether Start has been called.
func (m *Manager) Started() bool {
	return m.started.Load()
}

// Desired returns the desired pool size. It is 0 while draining.
func (m *Manager) Desired() int {
	return int(m.desired.Load())
}

// Mode returns the boot mode chosen at construction.
func (m *Manager) Mode() worker.BootMode {
	return m.mode
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Status returns the human-readable status line.
func (m *Manager) Status() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.status
}

// Info returns a snapshot of the Manager.
func (m *Manager) Info() Info {
	m.stateMu.RLock()
	state, status := m.state, m.status
	m.stateMu.RUnlock()

	return Info{
		State:     state,
		Status:    status,
		Mode:      m.mode,
		PIDs:      m.table.Snapshot(),
		Desired:   m.Desired(),
		Processes: m.opts.Processes,
		MaxMemory: m.maxMemory,
		Started:   m.Started(),
	}
}

func (m *Manager) formatStatus(live int) string {
	return fmt.Sprintf("procman [%d processes]", live)
}

func (m *Manager) updateStatus() {
	status := m.formatStatus(m.table.Size())
	m.stateMu.Lock()
	m.status = status
	m.stateMu.Unlock()
}

// setState transitions the lifecycle state. Stopped is terminal.
func (m *Manager) setState(to State) {
	m.stateMu.Lock()
	from := m.state
	if from == to || from == StateStopped {
		m.stateMu.Unlock()
		return
	}
	m.state = to
	status := m.status
	m.stateMu.Unlock()

	m.logger.Debug("State changed", "from", string(from), "to", string(to))
	m.bus.Publish(events.StateChangedEvent{
		From:      string(from),
		To:        string(to),
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Package demo is a small built-in worker used by "procman demo". It logs a
// heartbeat, optionally holds a block of memory to exercise the memory
// monitor, and exits cleanly on INT or TERM.
package demo

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"

	"github.com/smazurov/procman/internal/hooks"
	"github.com/smazurov/procman/internal/worker"
)

// Name is the worker name the demo registers under.
const Name = "procman-demo"

// Entry implements worker.Entry.
type Entry struct {
	Args   []string
	Logger *slog.Logger

	ballast   int64
	heartbeat time.Duration
	grace     time.Duration
}

type app struct {
	ballast []byte
}

// Flags returns the child argument list for the given settings.
func Flags(ballast string, heartbeat, grace time.Duration) []string {
	return []string{
		"--ballast", ballast,
		"--heartbeat", heartbeat.String(),
		"--grace", grace.String(),
	}
}

// Parse implements worker.Entry.
func (e *Entry) Parse() error {
	fs := pflag.NewFlagSet(Name, pflag.ContinueOnError)
	ballast := fs.String("ballast", "0", "Memory to hold while running (e.g. 64MB)")
	fs.DurationVar(&e.heartbeat, "heartbeat", 10*time.Second, "Heartbeat log interval")
	fs.DurationVar(&e.grace, "grace", 0, "Time spent finishing up after TERM")
	if err := fs.Parse(e.Args); err != nil {
		return err
	}

	size, err := units.RAMInBytes(*ballast)
	if err != nil {
		return fmt.Errorf("invalid ballast %q: %w", *ballast, err)
	}
	if size < 0 {
		return fmt.Errorf("invalid ballast %q: must not be negative", *ballast)
	}
	if e.heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", e.heartbeat)
	}
	e.ballast = size
	return nil
}

// Boot implements worker.Entry.
func (e *Entry) Boot(reg *hooks.Registry) (worker.App, error) {
	logger := e.logger()
	reg.BeforeFork(func() error {
		logger.Info("Demo booted in parent", "pid", os.Getpid())
		return nil
	})
	reg.AfterFork(func() error {
		logger.Info("Demo worker forked", "pid", os.Getpid(), "master_pid", worker.MasterPID())
		return nil
	})
	return &app{}, nil
}

// Run implements worker.Entry.
func (e *Entry) Run(a worker.App) error {
	logger := e.logger()
	state, ok := a.(*app)
	if !ok {
		return fmt.Errorf("unexpected app type %T", a)
	}

	if e.ballast > 0 {
		state.ballast = make([]byte, e.ballast)
		// Touch every page so the ballast is resident.
		for i := 0; i < len(state.ballast); i += os.Getpagesize() {
			state.ballast[i] = 1
		}
		logger.Info("Holding memory ballast", "size", units.BytesSize(float64(e.ballast)))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(e.heartbeat)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
		case sig := <-sigs:
			logger.Info("Demo worker stopping", "signal", sig.String(), "uptime", time.Since(started).Round(time.Second))
			if e.grace > 0 {
				time.Sleep(e.grace)
			}
			return nil
		case <-ticker.C:
			logger.Info("Demo worker heartbeat", "pid", os.Getpid(), "uptime", time.Since(started).Round(time.Second))
		}
	}
}

// ShutdownTimeout implements worker.ShutdownTimeouter.
func (e *Entry) ShutdownTimeout() time.Duration {
	return e.grace
}

func (e *Entry) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/procman/internal/hooks"
)

// ErrNotChild is returned when the child runtime is entered outside a worker process.
var ErrNotChild = errors.New("not running as a supervised worker")

// Run executes entry inside a child process. It parses and boots the entry,
// settles the fork hooks for the boot mode, then blocks in entry.Run.
//
// The before-fork list never fires in a child. After-fork hooks fire only in
// prefork mode; in every other mode they are discarded unfired.
func Run(entry Entry, reg *hooks.Registry, logger *slog.Logger) error {
	if !IsChild() {
		return ErrNotChild
	}
	if reg == nil {
		reg = hooks.New()
	}
	mode := BootModeFromEnv()

	defer watchQuiet(logger)()

	if err := entry.Parse(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	app, err := entry.Boot(reg)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	reg.Discard(hooks.BeforeFork)
	if mode == BootPrefork {
		if err := reg.RunAfterFork(); err != nil {
			return err
		}
	} else {
		reg.Discard(hooks.AfterFork)
	}

	logger.Debug("Worker running", "mode", mode.String(), "master_pid", MasterPID())
	return entry.Run(app)
}

// watchQuiet logs the quiet requests the master relays as SIGTSTP and
// SIGTTIN. With no handler their default action would stop this process. The
// returned function stops watching and waits for the logging goroutine.
func watchQuiet(logger *slog.Logger) func() {
	quiet := make(chan os.Signal, 4)
	signal.Notify(quiet, syscall.SIGTSTP, syscall.SIGTTIN)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for sig := range quiet {
			logger.Info("Quiet signal received", "signal", sig.String())
		}
	}()
	return func() {
		signal.Stop(quiet)
		close(quiet)
		<-done
	}
}

// RunChild runs entry with Run and converts the outcome to a process exit code.
func RunChild(entry Entry, reg *hooks.Registry, logger *slog.Logger) int {
	if err := Run(entry, reg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		return 1
	}
	return 0
}

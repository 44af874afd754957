package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/smazurov/procman/internal/hooks"
	"github.com/smazurov/procman/internal/worker"
)

// prebootShell runs preboot files.
var prebootShell = "/bin/sh"

// selectMode picks the boot strategy. Prefork wins over preboot, and both
// need more than one process.
func selectMode(opts Options) worker.BootMode {
	switch {
	case opts.Prefork && opts.Processes > 1:
		return worker.BootPrefork
	case opts.Preboot != "" && opts.Processes > 1:
		return worker.BootPreboot
	default:
		return worker.BootNone
	}
}

// boot runs the one-time parent-side initialization for the boot mode.
func (m *Manager) boot(ctx context.Context) error {
	if m.entry != nil {
		if err := m.entry.Parse(); err != nil {
			return fmt.Errorf("parse worker: %w", err)
		}
	}

	switch m.mode {
	case worker.BootPrefork:
		return m.prefork()
	case worker.BootPreboot:
		return m.preboot(ctx)
	default:
		return nil
	}
}

func (m *Manager) prefork() error {
	m.logger.Info("Booting worker in parent", "mode", m.mode.String())

	app, err := m.entry.Boot(m.hooks)
	if err != nil {
		return fmt.Errorf("boot worker: %w", err)
	}
	m.app = app

	if err := m.hooks.RunBeforeFork(); err != nil {
		return err
	}
	// After-fork hooks belong to the children, which register their own.
	m.hooks.Discard(hooks.AfterFork)

	runtime.GC()
	debug.FreeOSMemory()
	return nil
}

func (m *Manager) preboot(ctx context.Context) error {
	path := m.opts.Preboot
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("Preboot file not found, continuing without it", "path", path)
			return nil
		}
		return fmt.Errorf("preboot %s: %w", path, err)
	}

	m.logger.Info("Running preboot file", "path", path)
	cmd := exec.CommandContext(ctx, prebootShell, path)
	cmd.Env = append(os.Environ(), worker.EnvBootMode+"="+string(worker.BootPreboot))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("preboot %s: %w", path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("preboot %s: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("preboot %s: %w", path, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.streamOutput(stdout, "stdout")
	}()
	go func() {
		defer wg.Done()
		m.streamOutput(stderr, "stderr")
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("preboot %s: exit code %d: %w", path, exitCodeFromError(err), err)
	}
	return nil
}

// streamOutput logs each line of a preboot stream.
func (m *Manager) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		m.logger.Info(scanner.Text(), "source", "preboot", "stream", source)
	}
	if err := scanner.Err(); err != nil {
		m.logger.Warn("Error reading preboot output", "stream", source, "error", err)
	}
}

package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/smazurov/procman/internal/worker"
)

// LaunchContext describes the child about to be created.
type LaunchContext struct {
	Mode      worker.BootMode
	MasterPID int
	// Index counts launches, starting at 0, including replacements.
	Index int
}

// Launcher creates one worker process and returns it already started.
type Launcher interface {
	Launch(ctx LaunchContext) (*exec.Cmd, error)
}

// ExecLauncher starts children with os/exec.
type ExecLauncher struct {
	name   string
	path   string
	args   []string
	reexec bool

	// Stdout and Stderr default to the supervisor's own streams.
	Stdout io.Writer
	Stderr io.Writer
	// Env is appended to the inherited environment.
	Env []string
	Dir string
	// Title replaces argv[0] of the child when set.
	Title string
}

// NewReexecLauncher returns a launcher that starts the running executable
// again as a worker child. argv[0] of the child is name, placed next to the
// executable, so tools keyed on the command name see the worker name.
func NewReexecLauncher(name string, args ...string) *ExecLauncher {
	return &ExecLauncher{name: name, args: args, reexec: true}
}

// NewCommandLauncher returns a launcher that starts argv as an external
// command. Fork hooks cannot run inside such a child.
func NewCommandLauncher(argv []string) *ExecLauncher {
	l := &ExecLauncher{}
	if len(argv) > 0 {
		l.path = argv[0]
		l.name = filepath.Base(argv[0])
		l.args = argv[1:]
	}
	return l
}

// Reexec reports whether children are re-executed copies of this binary.
func (l *ExecLauncher) Reexec() bool { return l.reexec }

// Name returns the worker name.
func (l *ExecLauncher) Name() string { return l.name }

// Launch implements Launcher.
func (l *ExecLauncher) Launch(ctx LaunchContext) (*exec.Cmd, error) {
	cmd, err := l.command(ctx)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (l *ExecLauncher) command(ctx LaunchContext) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	env := os.Environ()

	if l.reexec {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		cmd = exec.Command(exe, l.args...)
		if l.name != "" {
			cmd.Args[0] = filepath.Join(filepath.Dir(exe), l.name)
		}
		env = append(env, worker.ChildEnv(ctx.Mode, ctx.MasterPID, l.name)...)
	} else {
		if l.path == "" {
			return nil, errors.New("empty command")
		}
		cmd = exec.Command(l.path, l.args...)
		env = append(env, worker.EnvMasterPID+"="+strconv.Itoa(ctx.MasterPID))
	}

	if l.Title != "" {
		cmd.Args[0] = l.Title
	}
	cmd.Env = append(env, l.Env...)
	cmd.Dir = l.Dir
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	// Own process group: terminal job control reaches only the master, which
	// relays it. Stdin stays /dev/null since a background group reading the
	// terminal would be stopped by SIGTTIN.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// Package worker defines the entry point a supervised worker implements and
// the runtime that executes it inside a re-executed child process.
//
// A child is the supervisor's own executable started again with PROCMAN_CHILD
// set. The program's main function checks IsChild first and, in a child,
// hands control to RunChild instead of building the command line:
//
//	func main() {
//		if worker.IsChild() {
//			os.Exit(worker.RunChild(entry, hooks.New(), logger))
//		}
//		...
//	}
package worker

import (
	"os"
	"strconv"
	"time"

	"github.com/smazurov/procman/internal/hooks"
)

// Environment markers set on every re-executed child.
const (
	EnvChild     = "PROCMAN_CHILD"
	EnvBootMode  = "PROCMAN_BOOT_MODE"
	EnvMasterPID = "PROCMAN_MASTER_PID"
	EnvWorker    = "PROCMAN_WORKER"
)

// App is the opaque application handle returned by Boot and passed to Run.
type App any

// Entry is the capability set of a supervised worker.
type Entry interface {
	// Parse validates the worker configuration.
	Parse() error
	// Boot performs the one-time preload and may register fork hooks.
	Boot(reg *hooks.Registry) (App, error)
	// Run blocks until the worker decides to exit, typically on INT or TERM.
	Run(app App) error
}

// ShutdownTimeouter is implemented by entries that know how long they need
// to finish in-flight work after receiving TERM.
type ShutdownTimeouter interface {
	ShutdownTimeout() time.Duration
}

// BootMode is the one-time initialization strategy of a supervisor.
type BootMode string

// Boot modes.
const (
	BootNone    BootMode = "none"
	BootPrefork BootMode = "prefork"
	BootPreboot BootMode = "preboot"
)

func (m BootMode) String() string { return string(m) }

// IsChild reports whether the current process is a re-executed worker.
func IsChild() bool {
	return os.Getenv(EnvChild) == "1"
}

// BootModeFromEnv returns the boot mode exported by the supervisor.
// Unknown or missing values mean BootNone.
func BootModeFromEnv() BootMode {
	switch m := BootMode(os.Getenv(EnvBootMode)); m {
	case BootPrefork, BootPreboot:
		return m
	default:
		return BootNone
	}
}

// MasterPID returns the pid of the supervising process, or 0 when unknown.
func MasterPID() int {
	pid, err := strconv.Atoi(os.Getenv(EnvMasterPID))
	if err != nil {
		return 0
	}
	return pid
}

// Name returns the worker name exported by the supervisor.
func Name() string {
	return os.Getenv(EnvWorker)
}

// ChildEnv returns the environment markers for a child of masterPID.
func ChildEnv(mode BootMode, masterPID int, name string) []string {
	return []string{
		EnvChild + "=1",
		EnvBootMode + "=" + string(mode),
		EnvMasterPID + "=" + strconv.Itoa(masterPID),
		EnvWorker + "=" + name,
	}
}

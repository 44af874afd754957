// Package memprobe measures the memory footprint of a process.
package memprobe

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how shared pages are attributed to a process.
type Mode string

// Measurement modes.
const (
	// ModeRSS counts every resident page, shared or not.
	ModeRSS Mode = "rss"
	// ModeUSS counts only pages private to the process.
	ModeUSS Mode = "uss"
	// ModePSS splits each shared page evenly between the processes mapping it.
	ModePSS Mode = "pss"
)

var (
	// ErrUnsupported is returned when the platform or mode cannot be measured.
	ErrUnsupported = errors.New("memory measurement not supported")
	// ErrNoProcess is returned when the pid no longer exists.
	ErrNoProcess = errors.New("process does not exist")
)

// Probe reports the memory usage of a process in bytes.
type Probe interface {
	Measure(pid int, mode Mode) (uint64, error)
}

// Func adapts a function to the Probe interface.
type Func func(pid int, mode Mode) (uint64, error)

// Measure calls f.
func (f Func) Measure(pid int, mode Mode) (uint64, error) {
	return f(pid, mode)
}

// ParseMode converts a configuration string to a Mode. Empty means RSS.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRSS, nil
	case ModeRSS, ModeUSS, ModePSS:
		return m, nil
	default:
		return "", fmt.Errorf("unknown memory mode %q (want rss, uss or pss)", s)
	}
}

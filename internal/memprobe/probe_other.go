//go:build !linux

package memprobe

import "fmt"

// ProcProbe is unavailable off Linux; every measurement fails.
type ProcProbe struct{}

// New returns a probe that reports ErrUnsupported.
func New() (*ProcProbe, error) {
	return &ProcProbe{}, nil
}

// Measure implements Probe.
func (p *ProcProbe) Measure(pid int, mode Mode) (uint64, error) {
	return 0, fmt.Errorf("pid %d mode %s: %w", pid, mode, ErrUnsupported)
}

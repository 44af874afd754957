//go:build linux

package memprobe

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/prometheus/procfs"
)

// ProcProbe reads memory usage from /proc.
type ProcProbe struct {
	fs procfs.FS
}

// New returns a probe backed by the default /proc mount.
func New() (*ProcProbe, error) {
	pfs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &ProcProbe{fs: pfs}, nil
}

// Measure implements Probe. RSS comes from /proc/<pid>/stat; USS and PSS come
// from /proc/<pid>/smaps_rollup, which needs Linux 4.14 or newer.
func (p *ProcProbe) Measure(pid int, mode Mode) (uint64, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return 0, wrapProcErr(pid, err)
	}

	switch mode {
	case ModeRSS, "":
		stat, err := proc.Stat()
		if err != nil {
			return 0, wrapProcErr(pid, err)
		}
		return uint64(stat.ResidentMemory()), nil
	case ModeUSS, ModePSS:
		rollup, err := proc.ProcSMapsRollup()
		if err != nil {
			return 0, wrapProcErr(pid, err)
		}
		if mode == ModePSS {
			return rollup.Pss, nil
		}
		return rollup.PrivateClean + rollup.PrivateDirty, nil
	default:
		return 0, fmt.Errorf("%w: mode %q", ErrUnsupported, mode)
	}
}

func wrapProcErr(pid int, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("pid %d: %w", pid, ErrNoProcess)
	}
	return fmt.Errorf("pid %d: %w", pid, err)
}

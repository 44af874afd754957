//go:build linux

package memprobe

import (
	"errors"
	"os"
	"testing"
)

func TestProcProbeSelf(t *testing.T) {
	probe, err := New()
	if err != nil {
		t.Skipf("procfs unavailable: %v", err)
	}

	rss, err := probe.Measure(os.Getpid(), ModeRSS)
	if err != nil {
		t.Fatalf("Measure(rss): %v", err)
	}
	if rss == 0 {
		t.Error("expected non-zero RSS for the test process")
	}

	uss, err := probe.Measure(os.Getpid(), ModeUSS)
	if err != nil {
		t.Skipf("smaps_rollup unavailable: %v", err)
	}
	if uss == 0 || uss > rss*2 {
		t.Errorf("USS = %d looks wrong next to RSS = %d", uss, rss)
	}
}

func TestProcProbeMissingPid(t *testing.T) {
	probe, err := New()
	if err != nil {
		t.Skipf("procfs unavailable: %v", err)
	}

	// Above the kernel's pid_max ceiling, so it can never exist.
	_, err = probe.Measure(1<<23, ModeRSS)
	if !errors.Is(err, ErrNoProcess) {
		t.Errorf("err = %v, want ErrNoProcess", err)
	}
}

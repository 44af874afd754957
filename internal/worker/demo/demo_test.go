package demo

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/smazurov/procman/internal/hooks"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		ballast int64
		wantErr bool
	}{
		{"defaults", nil, 0, false},
		{"ballast", Flags("64MB", time.Second, 0), 64 << 20, false},
		{"bad size", []string{"--ballast", "lots"}, 0, true},
		{"bad heartbeat", []string{"--heartbeat", "0s"}, 0, true},
		{"unknown flag", []string{"--nope"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Args: tt.args}
			err := e.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e.ballast != tt.ballast {
				t.Errorf("ballast = %d, want %d", e.ballast, tt.ballast)
			}
		})
	}
}

func TestBootRegistersHooks(t *testing.T) {
	e := &Entry{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	reg := hooks.New()

	if _, err := e.Boot(reg); err != nil {
		t.Fatal(err)
	}
	if reg.Len(hooks.BeforeFork) != 1 || reg.Len(hooks.AfterFork) != 1 {
		t.Errorf("hooks registered: before=%d after=%d, want 1 and 1",
			reg.Len(hooks.BeforeFork), reg.Len(hooks.AfterFork))
	}
	if err := reg.RunAfterFork(); err != nil {
		t.Errorf("RunAfterFork: %v", err)
	}
}

func TestShutdownTimeoutFromGrace(t *testing.T) {
	e := &Entry{Args: Flags("0", time.Second, 3*time.Second)}
	if err := e.Parse(); err != nil {
		t.Fatal(err)
	}
	if got := e.ShutdownTimeout(); got != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 3s", got)
	}
}

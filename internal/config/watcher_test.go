package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/procman/internal/logging"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newWatchedFile creates a config file in a fresh directory and starts a
// watcher on it. The watcher is stopped when the test ends.
func newWatchedFile(t *testing.T, initial string, opts ...WatcherOption[testConfig]) (string, *Watcher[testConfig]) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procman.toml")
	writeConfigFile(t, path, initial)

	opts = append([]WatcherOption[testConfig]{WithDebounce[testConfig](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadTestConfig, newTestLogger(), opts...)
	return path, w
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Let the inotify watch settle.
	time.Sleep(100 * time.Millisecond)
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path, watcher := newWatchedFile(t, "name = \"initial\"\nvalue = 1\n")

	received := make(chan testConfig, 1)
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	writeConfigFile(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated, value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_RenameOverFile(t *testing.T) {
	path, watcher := newWatchedFile(t, "value = 1\n")

	received := make(chan testConfig, 4)
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	// Editors commonly save by writing a temp file and renaming it into place.
	tmp := filepath.Join(filepath.Dir(path), ".procman.toml.swp")
	writeConfigFile(t, tmp, "value = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 7 {
			t.Errorf("expected value=7, got %d", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}

	// The watch must survive the replacement.
	writeConfigFile(t, path, "value = 8\n")
	select {
	case cfg := <-received:
		if cfg.Value != 8 {
			t.Errorf("expected value=8, got %d", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for second reload")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	path, watcher := newWatchedFile(t, "value = 1\n")

	var count atomic.Int32
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})
	startWatcher(t, watcher)

	writeConfigFile(t, filepath.Join(filepath.Dir(path), "other.toml"), "value = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads for sibling file, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path, watcher := newWatchedFile(t, "name = \"test\"\nvalue = 1\n")

	var count atomic.Int32
	var configs []testConfig
	var mu sync.Mutex

	for range 3 {
		watcher.OnReload(func(cfg testConfig) {
			count.Add(1)
			mu.Lock()
			configs = append(configs, cfg)
			mu.Unlock()
		})
	}
	startWatcher(t, watcher)

	writeConfigFile(t, path, "name = \"new\"\nvalue = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 handlers called, got %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, cfg := range configs {
		if cfg.Name != "new" || cfg.Value != 2 {
			t.Errorf("handler %d got wrong config: %+v", i, cfg)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path, watcher := newWatchedFile(t, "value = 1\n")

	var count1, count2 atomic.Int32
	var lastValue1, lastValue2 atomic.Int32
	watcher.OnReload(func(cfg testConfig) {
		lastValue1.Store(int32(cfg.Value))
		count1.Add(1)
	})
	unsub2 := watcher.OnReload(func(cfg testConfig) {
		lastValue2.Store(int32(cfg.Value))
		count2.Add(1)
	})
	startWatcher(t, watcher)

	writeConfigFile(t, path, "value = 10\n")
	time.Sleep(300 * time.Millisecond)

	unsub2()

	writeConfigFile(t, path, "value = 20\n")
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
	if got := lastValue1.Load(); got != 20 {
		t.Errorf("handler1: expected last value 20, got %d", got)
	}
	if got := lastValue2.Load(); got != 10 {
		t.Errorf("handler2: expected last value 10, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errorReceived := make(chan error, 1)
	path, watcher := newWatchedFile(t, "name = \"valid\"\nvalue = 1\n",
		WithErrorHandler[testConfig](func(err error) {
			errorReceived <- err
		}),
	)

	configReceived := make(chan testConfig, 1)
	watcher.OnReload(func(cfg testConfig) {
		configReceived <- cfg
	})
	startWatcher(t, watcher)

	writeConfigFile(t, path, "invalid toml [[[")

	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path, watcher := newWatchedFile(t, "value = 0\n", WithDebounce[testConfig](200*time.Millisecond))

	var count atomic.Int32
	var lastValue atomic.Int32
	watcher.OnReload(func(cfg testConfig) {
		count.Add(1)
		lastValue.Store(int32(cfg.Value))
	})
	startWatcher(t, watcher)

	for i := 1; i <= 5; i++ {
		writeConfigFile(t, path, fmt.Sprintf("value = %d\n", i))
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastValue.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestConfigWatcher_ThreadSafety(t *testing.T) {
	path, watcher := newWatchedFile(t, "name = \"test\"\n", WithDebounce[testConfig](10*time.Millisecond))
	startWatcher(t, watcher)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := watcher.OnReload(func(_ testConfig) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 10 {
		writeConfigFile(t, path, fmt.Sprintf("value = %d\n", i))
		time.Sleep(20 * time.Millisecond)
	}

	wg.Wait()
}

func TestConfigWatcher_Stop(t *testing.T) {
	path, watcher := newWatchedFile(t, "value = 1\n")

	var count atomic.Int32
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	writeConfigFile(t, path, "value = 99\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestWatchLoggingReappliesLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procman.toml")
	writeConfigFile(t, path, "[logging]\nlevel = \"info\"\nreloadtest = \"info\"\n")

	logging.Initialize(logging.Config{Level: "info", Format: "text"})
	t.Cleanup(func() { logging.SetLevels(logging.Config{Level: "info"}) })

	logger := logging.GetLogger("reloadtest")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled before reload")
	}

	w, err := WatchLogging(path, newTestLogger(), WithDebounce[logging.Config](50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, path, "[logging]\nlevel = \"info\"\nreloadtest = \"debug\"\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("module level was not reloaded to debug")
}

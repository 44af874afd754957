package api

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/procman/internal/api/models"
	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/supervisor"
	"github.com/smazurov/procman/internal/worker"
)

type fakeSupervisor struct {
	mu      sync.Mutex
	info    supervisor.Info
	stopped int
}

func (f *fakeSupervisor) Info() supervisor.Info {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

func (f *fakeSupervisor) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	f.info.State = supervisor.StateDraining
	f.info.Desired = 0
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeSupervisor, *events.Bus) {
	t.Helper()
	sup := &fakeSupervisor{info: supervisor.Info{
		State:     supervisor.StateRunning,
		Status:    "procman [2 processes]",
		Mode:      worker.BootPrefork,
		PIDs:      []int{101, 102},
		Desired:   2,
		Processes: 2,
		Started:   true,
	}}
	bus := events.New()
	server := NewServer(&Options{
		Supervisor:        sup,
		EventBus:          bus,
		PrometheusHandler: promhttp.Handler(),
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, sup, bus
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body models.HealthData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("health status = %q", body.Status)
	}
}

func TestStatusReportsPool(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body models.StatusData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.State != "running" || body.Mode != "prefork" {
		t.Errorf("state/mode = %s/%s", body.State, body.Mode)
	}
	if body.Live != 2 || body.Desired != 2 || len(body.PIDs) != 2 || body.PIDs[0] != 101 {
		t.Errorf("status body = %+v", body)
	}
}

func TestStopAccepted(t *testing.T) {
	ts, sup, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/stop", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var body models.StopData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.State != "draining" {
		t.Errorf("state = %q, want draining", body.State)
	}
	if sup.stopped != 1 {
		t.Errorf("Stop called %d times, want 1", sup.stopped)
	}
}

func TestStatusWithoutSupervisor(t *testing.T) {
	server := NewServer(&Options{})
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "go_goroutines") {
		t.Errorf("metrics response %d missing go collector output", resp.StatusCode)
	}
}

func TestSSEStreamsEvents(t *testing.T) {
	ts, _, bus := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line := <-lines:
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timeout waiting for %q line", prefix)
				return ""
			}
		}
	}

	if hello := next("data:"); !strings.Contains(hello, "procman [2 processes]") {
		t.Errorf("initial message = %s", hello)
	}

	// The subscription is registered before the initial message is sent.
	bus.Publish(events.ProcessExitedEvent{PID: 101, ExitCode: 3, Live: 1})

	if ev := next("event:"); !strings.Contains(ev, "process-exited") {
		t.Errorf("event line = %s, want process-exited", ev)
	}
	if data := next("data:"); !strings.Contains(data, `"pid":101`) || !strings.Contains(data, `"exit_code":3`) {
		t.Errorf("data line = %s", data)
	}
}

package nats

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/supervisor"
)

type fakeSupervisor struct {
	stops atomic.Int32
}

func (f *fakeSupervisor) Info() supervisor.Info {
	state := supervisor.StateRunning
	if f.stops.Load() > 0 {
		state = supervisor.StateDraining
	}
	return supervisor.Info{State: state, PIDs: []int{10, 11}, Desired: 2, Processes: 2, Started: true}
}

func (f *fakeSupervisor) Stop() { f.stops.Add(1) }

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(ServerOptions{Port: -1, Name: "test-server"})
	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func connectClient(t *testing.T, srv *Server) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(ServerOptions{Port: -1, Name: "test-server"})
	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("Server should be running after Start()")
	}
	if srv.ClientURL() == "" {
		t.Error("ClientURL should not be empty")
	}

	srv.Stop()
	if srv.IsRunning() {
		t.Error("Server should not be running after Stop()")
	}
}

func TestSubjects(t *testing.T) {
	if got := SubjectEvents("procman-demo", "process-exited"); got != "procman.procman-demo.events.process-exited" {
		t.Errorf("SubjectEvents = %q", got)
	}
	if got := SubjectControl("my.worker *"); got != "procman.my_worker__.control" {
		t.Errorf("SubjectControl = %q", got)
	}
	if got := SubjectControl(""); got != "procman._.control" {
		t.Errorf("SubjectControl(empty) = %q", got)
	}
}

func TestPublisherGracefulDegradation(t *testing.T) {
	p := NewPublisher("nats://127.0.0.1:1", "demo", nil, nil)
	if err := p.Connect(); err == nil {
		t.Error("Connect should fail with non-existent server")
	}

	// No-ops without panicking.
	p.Publish(events.ProcessStartedEvent{PID: 1})
	if p.IsConnected() {
		t.Error("Publisher should not be connected")
	}
	p.Close()
}

func TestPublisherForwardsBusEvents(t *testing.T) {
	srv := startTestServer(t)
	nc := connectClient(t, srv)

	msgs := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe("procman.demo.events.>", msgs)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	p := NewPublisher(srv.ClientURL(), "demo", nil, nil)
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	bus := events.New()
	unsubscribe := p.Subscribe(bus)
	defer unsubscribe()

	bus.Publish(events.ProcessExitedEvent{PID: 42, ExitCode: 3})

	select {
	case msg := <-msgs:
		if msg.Subject != "procman.demo.events.process-exited" {
			t.Errorf("subject = %q", msg.Subject)
		}
		var env struct {
			Event  string                    `json:"event"`
			Worker string                    `json:"worker"`
			Data   events.ProcessExitedEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.Fatal(err)
		}
		if env.Event != "process-exited" || env.Worker != "demo" {
			t.Errorf("envelope = %+v", env)
		}
		if env.Data.PID != 42 || env.Data.ExitCode != 3 {
			t.Errorf("data = %+v", env.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublisherControl(t *testing.T) {
	srv := startTestServer(t)
	nc := connectClient(t, srv)

	sup := &fakeSupervisor{}
	p := NewPublisher(srv.ClientURL(), "demo", sup, nil)
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	request := func(action string) ControlReply {
		t.Helper()
		data, err := ControlMessage{Action: action}.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		msg, err := nc.Request(SubjectControl("demo"), data, 2*time.Second)
		if err != nil {
			t.Fatalf("request %s: %v", action, err)
		}
		reply, err := UnmarshalReply(msg.Data)
		if err != nil {
			t.Fatal(err)
		}
		return reply
	}

	status := request(ActionStatus)
	if !status.OK || status.Status == nil || status.Status.State != supervisor.StateRunning {
		t.Errorf("status reply = %+v", status)
	}
	if sup.stops.Load() != 0 {
		t.Error("status request stopped the pool")
	}

	stop := request(ActionStop)
	if !stop.OK || stop.Status == nil || stop.Status.State != supervisor.StateDraining {
		t.Errorf("stop reply = %+v", stop)
	}
	if sup.stops.Load() != 1 {
		t.Errorf("Stop called %d times, want 1", sup.stops.Load())
	}

	unknown := request("reload")
	if unknown.OK || unknown.Error == "" {
		t.Errorf("unknown action reply = %+v", unknown)
	}
}

func TestPublisherControlWithoutSupervisor(t *testing.T) {
	p := NewPublisher("", "demo", nil, nil)
	data, _ := ControlMessage{Action: ActionStop}.Marshal()
	if reply := p.control(data); reply.OK {
		t.Errorf("reply = %+v, want rejection", reply)
	}
	if reply := p.control([]byte("not json")); reply.OK || reply.Error == "" {
		t.Errorf("reply = %+v, want invalid message", reply)
	}
}

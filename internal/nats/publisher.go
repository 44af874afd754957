package nats

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/supervisor"
)

// Supervisor is the part of the Manager the control subject drives.
type Supervisor interface {
	Info() supervisor.Info
	Stop()
}

// Publisher forwards bus events to NATS and serves control requests.
// Gracefully degrades when NATS is unavailable.
type Publisher struct {
	url        string
	worker     string
	host       string
	masterPID  int
	supervisor Supervisor
	logger     logging.Logger

	mu        sync.RWMutex
	conn      *nats.Conn
	sub       *nats.Subscription
	connected bool
}

// NewPublisher creates a publisher for the pool running worker.
// sup may be nil, in which case control requests are rejected.
func NewPublisher(url, worker string, sup Supervisor, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	host, _ := os.Hostname()
	return &Publisher{
		url:        url,
		worker:     worker,
		host:       host,
		masterPID:  os.Getpid(),
		supervisor: sup,
		logger:     logger,
	}
}

// Connect establishes a connection to the NATS server and subscribes to the
// control subject. On failure the publisher stays usable in offline mode.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []nats.Option{
		nats.Name("procman-" + p.worker),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.setConnected(false)
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			} else {
				p.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.setConnected(true)
			p.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		p.logger.Warn("Failed to connect to NATS, running in offline mode", "url", p.url, "error", err)
		return err
	}

	sub, err := conn.Subscribe(SubjectControl(p.worker), p.handleControl)
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe control: %w", err)
	}

	p.conn = conn
	p.sub = sub
	p.connected = true
	p.logger.Info("Connected to NATS", "url", p.url, "control", SubjectControl(p.worker))
	return nil
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// IsConnected reports whether the publisher currently holds a live connection.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.connected
}

// Publish sends one event. No-op if not connected.
func (p *Publisher) Publish(ev events.Event) {
	p.mu.RLock()
	conn := p.conn
	connected := p.connected
	p.mu.RUnlock()

	if conn == nil || !connected {
		return
	}

	name := events.Name(ev)
	if name == "" {
		return
	}
	data, err := EventMessage{
		Event:     name,
		Worker:    p.worker,
		Host:      p.host,
		MasterPID: p.masterPID,
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      ev,
	}.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal event", "event", name, "error", err)
		return
	}

	if err := conn.Publish(SubjectEvents(p.worker, name), data); err != nil {
		p.logger.Warn("Failed to publish event", "event", name, "error", err)
	}
}

// Subscribe forwards every bus event to NATS until the returned function is called.
func (p *Publisher) Subscribe(bus *events.Bus) func() {
	ch := make(chan any, 64)
	unsubscribe := events.SubscribeAll(bus, ch)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case v := <-ch:
				if ev, ok := v.(events.Event); ok {
					p.Publish(ev)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}
}

// handleControl answers control requests. Requests without a reply subject
// are still acted on.
func (p *Publisher) handleControl(msg *nats.Msg) {
	reply := p.control(msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		p.logger.Warn("Failed to send control reply", "error", err)
	}
}

func (p *Publisher) control(data []byte) ControlReply {
	ctrl, err := UnmarshalControl(data)
	if err != nil {
		p.logger.Warn("Failed to unmarshal control message", "error", err)
		return ControlReply{Error: "invalid control message"}
	}
	if p.supervisor == nil {
		return ControlReply{Error: "supervisor not running"}
	}

	switch ctrl.Action {
	case ActionStatus:
		p.logger.Debug("Status requested via NATS")
	case ActionStop:
		p.logger.Info("Stop requested via NATS", "reason", ctrl.Reason)
		p.supervisor.Stop()
	default:
		return ControlReply{Error: fmt.Sprintf("unknown action %q", ctrl.Action)}
	}

	info := p.supervisor.Info()
	return ControlReply{OK: true, Status: &info}
}

// Close drains the control subscription and closes the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub != nil {
		_ = p.sub.Unsubscribe()
		p.sub = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connected = false
}

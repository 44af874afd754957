// Package systemd reports supervisor readiness and status to the service
// manager through the sd_notify protocol. Outside systemd, when NOTIFY_SOCKET
// is unset, every notification is a no-op.
package systemd

import (
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/logging"
)

// Notifier sends READY, STATUS and STOPPING notifications.
type Notifier struct {
	logger logging.Logger
	notify func(state string) (bool, error)

	mu       sync.Mutex
	ready    bool
	stopping bool
}

// NewNotifier returns a Notifier writing to $NOTIFY_SOCKET.
func NewNotifier(logger logging.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

// Ready reports that the pool is up. Only the first call is sent.
func (n *Notifier) Ready(status string) {
	n.mu.Lock()
	if n.ready {
		n.mu.Unlock()
		n.Status(status)
		return
	}
	n.ready = true
	n.mu.Unlock()

	n.send(daemon.SdNotifyReady + "\nSTATUS=" + status)
}

// Status updates the free-form status line shown by systemctl.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// Stopping reports that shutdown has begun. Only the first call is sent.
func (n *Notifier) Stopping() {
	n.mu.Lock()
	if n.stopping {
		n.mu.Unlock()
		return
	}
	n.stopping = true
	n.mu.Unlock()

	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}

// Subscribe drives the notifier from supervisor events. status returns the
// current status line. The returned function unsubscribes.
func (n *Notifier) Subscribe(bus *events.Bus, status func() string) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StateChangedEvent) {
			switch e.To {
			case "running":
				n.Ready(status())
			case "draining", "stopped":
				n.Stopping()
				n.Status(fmt.Sprintf("%s, %s", status(), e.To))
			}
		}),
		bus.Subscribe(func(_ events.ProcessStartedEvent) { n.Status(status()) }),
		bus.Subscribe(func(_ events.ProcessExitedEvent) { n.Status(status()) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

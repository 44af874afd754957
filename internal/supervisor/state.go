package supervisor

import "github.com/smazurov/procman/internal/worker"

// State is the lifecycle state of a Manager.
type State string

// Manager states.
const (
	StateIdle      State = "idle"      // Constructed, not started
	StateLaunching State = "launching" // Booting and creating the initial children
	StateRunning   State = "running"   // Pool at full strength, replacing exits
	StateDraining  State = "draining"  // Desired count is 0, children are being stopped
	StateStopped   State = "stopped"   // Last child reaped, Start returned
)

// Info is a point-in-time view of a Manager.
type Info struct {
	State     State           `json:"state"`
	Status    string          `json:"status"`
	Mode      worker.BootMode `json:"mode"`
	PIDs      []int           `json:"pids"`
	Desired   int             `json:"desired"`
	Processes int             `json:"processes"`
	MaxMemory uint64          `json:"max_memory"`
	Started   bool            `json:"started"`
}

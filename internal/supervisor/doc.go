// Package supervisor runs a fixed pool of worker processes.
//
// A Manager launches Processes children, relays trapped OS signals to them,
// replaces children that exit while the pool is not draining, optionally
// evicts children that exceed a memory ceiling, and drains the pool on INT,
// TERM or Stop. Start blocks until the last child has been reaped.
//
// Children are created by a Launcher. The re-exec launcher starts the
// supervisor's own executable again with PROCMAN_CHILD set, and the program's
// main function hands control to worker.RunChild. The command launcher runs
// an arbitrary external program instead.
//
// Lifecycle:
//
//	idle -> launching -> running -> draining -> stopped
//
// Example:
//
//	mgr, err := supervisor.New(supervisor.Options{
//	    Processes: 4,
//	    Prefork:   true,
//	    Entry:     entry,
//	    Launcher:  supervisor.NewReexecLauncher("my-worker"),
//	})
//	if err != nil {
//	    return err
//	}
//	return mgr.Start(ctx)
package supervisor

// Package nats mirrors supervisor events onto NATS and accepts control
// requests from it, so a fleet of procman instances can be watched and
// driven from one place.
//
// # Subject Hierarchy
//
//	procman.{worker}.events.{event}   # lifecycle events (procman → subscribers)
//	procman.{worker}.control          # control requests (request/reply)
//
// {event} is the same wire name the SSE stream uses, e.g. process-exited.
// Control requests are JSON objects with an "action" of "status" or "stop";
// the reply carries the pool status.
//
// The publisher uses core NATS, fire-and-forget for events. It degrades
// gracefully: when the server is unreachable every publish is a no-op and
// the supervisor runs as usual.
//
// # Debugging with nats CLI
//
// Monitor every event of every instance:
//
//	nats sub "procman.*.events.>"
//
// Query and drain one pool:
//
//	nats req procman.procman-demo.control '{"action":"status"}'
//	nats req procman.procman-demo.control '{"action":"stop"}'
//
// An embedded server (Server) is available for single-host setups and tests.
package nats

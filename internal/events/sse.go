package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// The SSE endpoint uses it because huma's sse handler runs a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeAll forwards every supervisor event type into ch and returns one
// function that removes all of the subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[ProcessStartedEvent](bus, ch),
		SubscribeToChannel[ProcessExitedEvent](bus, ch),
		SubscribeToChannel[ProcessRestartedEvent](bus, ch),
		SubscribeToChannel[ProcessEvictedEvent](bus, ch),
		SubscribeToChannel[SignalRelayedEvent](bus, ch),
		SubscribeToChannel[StateChangedEvent](bus, ch),
		SubscribeToChannel[MemorySampleEvent](bus, ch),
		SubscribeToChannel[EscalationEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

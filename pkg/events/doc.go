/*
Package events provides an in-memory event broker for rollout progress.

The events package implements a lightweight event bus for broadcasting
rollout steps to interested subscribers. It supports asynchronous event
delivery with per-subscriber buffering, enabling loose coupling between the
orchestrator, which emits progress, and consumers such as the CLI progress
printer and the metrics layer.

# Architecture

The event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │              Event Broker                  │           │
	│  │  - In-memory message bus                   │           │
	│  │  - Topic-agnostic (all events broadcast)   │           │
	│  │  - Non-blocking publish                    │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │          Event Distribution                │           │
	│  │                                            │           │
	│  │  Orchestrator → Event Channel (buffer 100) │           │
	│  │       ↓                                    │           │
	│  │  Broadcast Loop                            │           │
	│  │       ↓                                    │           │
	│  │  Subscriber Channels (buffer: 50 each)     │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Event Types                      │           │
	│  │                                            │           │
	│  │  Rollout lifecycle:                        │           │
	│  │    - rollout.started                       │           │
	│  │    - rollout.completed                     │           │
	│  │    - rollout.failed                        │           │
	│  │                                            │           │
	│  │  Provisioning:                             │           │
	│  │    - template.created                      │           │
	│  │    - unit.created                          │           │
	│  │                                            │           │
	│  │  Health:                                   │           │
	│  │    - health.confirmed                      │           │
	│  │    - health.timeout                        │           │
	│  │                                            │           │
	│  │  Traffic and cleanup:                      │           │
	│  │    - backend.attached, backend.detached    │           │
	│  │    - rollback.started                      │           │
	│  │    - stale.deleted                         │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - Type: Event type (rollout.started, health.timeout, etc.)
  - Service: Service the rollout belongs to
  - Generation: Generation being rolled out
  - Timestamp: When the step happened
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Flow

Publish Flow:
 1. Orchestrator calls broker.Publish(event)
 2. Event added to main event channel (non-blocking)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber receives events via channel
 5. Subscriber processes events in own goroutine

# Usage

Creating and Starting Broker:

	import "github.com/loadwise/cutover/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("[%s] %s: %s\n",
				event.Timestamp.Format("15:04:05"),
				event.Type,
				event.Message)
		}
	}()

Publishing Events:

	broker.Publish(&events.Event{
		Type:       events.EventUnitCreated,
		Service:    "web",
		Generation: "abc123",
		Message:    "deployment unit web-abc123 created",
		Metadata: map[string]string{
			"unit": "web-abc123",
			"size": "3",
		},
	})

# Integration Points

This package integrates with:

  - pkg/orchestrator: Publishes one event per rollout step
  - cmd/cutover: Subscribes to print rollout progress lines
  - pkg/metrics: Derives counters from the same steps

# Event Types Catalog

Rollout Lifecycle:

EventRolloutStarted:
  - Published when: Run begins for a generation
  - Metadata: none (service and generation ride on every event)

EventRolloutCompleted:
  - Published when: Traffic migrated and cleanup finished
  - Metadata: none

EventRolloutFailed:
  - Published when: Rollout ends in the failed state
  - Metadata: reason

Provisioning:

EventTemplateCreated:
  - Published when: Instance template accepted by the platform
  - Metadata: template, image

EventUnitCreated:
  - Published when: Deployment unit accepted by the platform
  - Metadata: unit, size

Health:

EventHealthConfirmed:
  - Published when: Every instance is running and passing checks
  - Metadata: none

EventHealthTimeout:
  - Published when: The health window elapsed without convergence
  - Metadata: none

Traffic and Cleanup:

EventBackendAttached:
  - Published when: The backend accepts the new unit. This is the commit
    point; it fires before the warm-up and the drain, which can run for
    minutes after it.
  - Metadata: unit, backend

EventBackendDetached:
  - Published when: A stale unit left the backend set
  - Metadata: unit, backend

EventRollbackStarted:
  - Published when: A failed rollout begins tearing down
  - Metadata: reason

EventStaleDeleted:
  - Published when: Garbage collection removed a stale resource
  - Metadata: resource, kind (unit or template)

# Design Patterns

Non-Blocking Publish:
  - Publish sends to buffered channel
  - Returns immediately (no waiting)
  - Events may be dropped if buffer full
  - Trade-off: A rollout never stalls on a slow consumer

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber gets own channel
  - Independent processing rates
  - Full buffers skip to prevent blocking

Fire-and-Forget:
  - No acknowledgment from subscribers
  - No retry on delivery failure
  - Suitable for progress reporting, not control flow: the rollout
    state machine never depends on event delivery

# Best Practices

Do:
  - Always defer broker.Unsubscribe(sub)
  - Process events asynchronously in goroutine
  - Filter events by type at subscriber
  - Start broker before publishing events

Don't:
  - Block in subscriber event loop
  - Publish events before broker.Start()
  - Forget to unsubscribe (causes leaks)
  - Rely on event delivery for rollout correctness

# See Also

  - pkg/orchestrator for the steps that emit events
  - cmd/cutover for the CLI progress stream
  - Pub/sub pattern: https://en.wikipedia.org/wiki/Publish%E2%80%93subscribe_pattern
*/
package events

/*
Package health waits for a new generation to become healthy before it
receives traffic.

The health poller is the gate between provisioning and traffic migration: a
rollout only proceeds once every instance of the new deployment unit is
running and, when backend confirmation is enabled, passing the load
balancer's health checks. It never decides what healthy means; the platform
does. It only reads the platform's verdict until the verdict is unanimous
or time runs out.

# Architecture

	┌──────────────────── HEALTH POLLER ────────────────────────┐
	│                                                            │
	│  AwaitHealthy(ctx, unit, size)                             │
	│        │                                                   │
	│        ▼                                                   │
	│  ┌──────────────────────────────────────────────┐          │
	│  │  poll every Interval, up to Timeout          │          │
	│  │                                              │          │
	│  │  1. Running gate                             │          │
	│  │     InstanceStatuses(unit)                   │          │
	│  │     size reached, all running?   ──no──▶ wait │         │
	│  │                                              │          │
	│  │  2. Health gate (ConfirmBackend only)        │          │
	│  │     HealthStatuses(unit)                     │          │
	│  │     every instance healthy too?  ──no──▶ wait │         │
	│  └──────────────────────────────────────────────┘          │
	│        │                        │                          │
	│     converged                timeout                       │
	│        │                        │                          │
	│        ▼                        ▼                          │
	│      nil                   ErrTimeout                      │
	└────────────────────────────────────────────────────────────┘

# Outcomes

AwaitHealthy distinguishes three terminal conditions:

  - nil: every instance converged inside the window
  - ErrTimeout: the window elapsed; the caller rolls the generation back
  - ctx.Err(): the operator canceled; deliberately not ErrTimeout so the
    caller can tell an impatient human from an unhealthy build

# Transient Errors

A failed status read proves nothing about the instances, so read errors
never abort the wait. They are logged at warn level and the poll continues;
the timeout is the only authority on giving up. Likewise a snapshot showing
instances running but unhealthy is ordinary convergence (the app is booting
behind its port) and only shows up in debug logs.

# Usage

	poller, err := health.New(drv, health.Config{
		Timeout:        5 * time.Minute,
		Interval:       15 * time.Second,
		ConfirmBackend: true,
	})
	if err != nil {
		return err
	}

	if err := poller.AwaitHealthy(ctx, unit, size); err != nil {
		if errors.Is(err, health.ErrTimeout) {
			// roll back the new generation
		}
		return err
	}

# Integration Points

  - pkg/driver: InstanceStatuses and HealthStatuses snapshots
  - pkg/poll: the shared bounded-wait primitive
  - pkg/orchestrator: calls AwaitHealthy between provisioning and migration
*/
package health

/*
Package poll provides the poll-until-condition primitive shared by every
waiting loop in cutover.

A rollout spends most of its wall-clock time waiting: for instances to
reach a running lifecycle, for the load balancer to report them healthy,
and for detached units to disappear from the backend member list. All
three waits are the same shape (sample a read-only condition, suspend for
a fixed interval, give up after a bounded budget), so they share one
implementation instead of three hand-rolled loops.

# Behavior

	Until(ctx, interval, cond)
	  └─ evaluate cond immediately, then once per interval
	     ├─ cond true  → nil
	     ├─ cond error → that error (abort)
	     └─ ctx done   → ctx.Err()

	UntilTimeout(ctx, timeout, interval, cond)
	  └─ Until bounded by its own deadline
	     ├─ deadline elapsed  → ErrTimeout
	     └─ parent ctx done   → parent's error (passed through)

	UntilAttempts(ctx, attempts, backoff, cond)
	  └─ evaluate cond up to attempts times, fixed backoff between
	     └─ budget exhausted → ErrTimeout

The waits suspend on a ticker or timer; nothing in this package spins.
These loops are the only suspension points in a rollout.

# Timeout vs. Cancellation

UntilTimeout deliberately separates two ways a wait can end early:

  - ErrTimeout: the condition's own budget ran out. For the health poller
    this is an expected outcome that triggers rollback, not a fault.
  - Parent context cancellation: an external abort (signal, pipeline
    cancellation). Returned unchanged so the caller can jump to rollback
    without mistaking it for a health timeout.

# Usage

Waiting for a deployment unit to become healthy:

	err := poll.UntilTimeout(ctx, 300*time.Second, 15*time.Second,
		func(ctx context.Context) (bool, error) {
			statuses, err := drv.InstanceStatuses(ctx, unit)
			if err != nil {
				return false, nil // transient read failure: keep sampling
			}
			return allRunning(statuses), nil
		})
	if errors.Is(err, poll.ErrTimeout) {
		// roll back
	}

Confirming a detach with a bounded retry budget:

	err := poll.UntilAttempts(ctx, 20, 3*time.Second,
		func(ctx context.Context) (bool, error) {
			members, err := drv.ListBackendUnits(ctx, backend)
			if err != nil {
				return false, nil
			}
			return !contains(members, unit), nil
		})

# Integration Points

  - pkg/health: UntilTimeout drives AwaitHealthy
  - pkg/traffic: UntilAttempts confirms each detach
  - Conditions are read-only; side effects belong to the callers
*/
package poll

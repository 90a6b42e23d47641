/*
Package traffic migrates load balancer traffic from stale generations to a
freshly validated one.

The migrator owns the only irreversible moment of a rollout. Until the
attach, nothing the rollout created is serving and everything can be torn
down; after it, the new generation is live and the rollout is committed to
finishing forward. The package's error contract encodes exactly that line.

# Migration Sequence

	Migrate(ctx, newUnit, stale)
	   │
	   ├─ 1. AttachBackend(newUnit)          failure → ErrAttach (fatal)
	   │        the commit point
	   │
	   ├─ 2. UpdateBackendCapacity(newUnit)  failure → logged, defaults kept
	   │        only when balancing params are set
	   │
	   ├─ 3. warm-up overlap                 both generations serve
	   │        WarmUp duration, skipped when zero
	   │
	   └─ 4. for each stale unit:
	           DetachBackend(unit)           call failure → logged
	           confirm via ListBackendUnits  up to DetachAttempts reads
	              confirmed  → Result.Detached
	              exhausted  → Result.Unconfirmed + metric, keep going

# Error Contract

Everything before the attach can fail the rollout; nothing after it does.

  - ErrAttach: the backend rejected the new member. The old generation is
    untouched and still serving, so the caller rolls back safely.
  - Balancing parameters, warm-up, and detaching are best effort. A stale
    unit that will not leave the member set is reported in
    Result.Unconfirmed and counted in cutover_detach_failures_total, but
    the migration still succeeds: serving traffic from an extra old
    generation beats serving none.

The new unit is never detached, even when the caller's stale set wrongly
contains it.

# Usage

	migrator, err := traffic.New(drv, traffic.Config{
		Backend:        types.BackendRef{Name: "web-backend"},
		WarmUp:         60 * time.Second,
		DetachAttempts: 20,
		DetachBackoff:  3 * time.Second,
	})
	if err != nil {
		return err
	}

	result, err := migrator.Migrate(ctx, newUnit, stale)
	if errors.Is(err, traffic.ErrAttach) {
		// old generation still serving: roll back the new one
	}
	for _, unit := range result.Unconfirmed {
		// flag for manual cleanup
	}

# Integration Points

  - pkg/driver: attach, detach, capacity, and membership operations
  - pkg/poll: the attempt-bounded confirmation loop
  - pkg/metrics: counts detaches that never confirmed
  - pkg/orchestrator: computes the stale set and shields a committed
    migration from operator cancellation
*/
package traffic

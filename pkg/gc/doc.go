/*
Package gc sweeps a service's stale generations after traffic has moved.

Garbage collection is how the system stays O(1) in platform resources no
matter how many rollouts have run: once a new generation serves, everything
older than it is deleted, deployment units first and then templates. It
runs at the end of every successful rollout and on demand via the gc
command, after an interrupted run left debris behind.

# Staleness By Name

Ownership is recovered purely from the naming scheme:

	unit:     <service>-<generation>
	template: <service>-tpl-<generation>

Collect lists both resource kinds by the service prefix, parses the
generation out of each name, and deletes whatever does not belong to the
current generation. Names that fall outside the scheme are skipped: a
"web-tpl-x" in web's unit listing could be service web-tpl's unit, so it
is left alone. The scheme stays invertible because generations starting
with "tpl-" are rejected up front (ValidGeneration).

# Ordering and Convergence

All stale units are deleted before any template, which guarantees the
unit-before-template order per generation: the platform refuses to delete a
template that a unit still references.

Every delete is idempotent at the driver level (absent resources are a
success), and per-resource failures are logged and skipped rather than
aborting the pass. Together that makes Collect safe to re-run until the
platform converges; only a failed listing returns an error, since without
the listing nothing can be deleted safely.

# Usage

	collector := gc.New(drv, "web")

	result, err := collector.Collect(ctx, currentGen)
	if err != nil {
		return err
	}
	if !result.Empty() {
		log.Info().
			Strs("units", result.Units).
			Strs("templates", result.Templates).
			Msg("stale generations removed")
	}

# Integration Points

  - pkg/driver: prefix listings and idempotent deletes
  - pkg/orchestrator: runs a pass in the Cleaning state
  - cmd/cutover: the gc command for manual sweeps

# Limitations

Staleness is judged by name prefix, so a service whose name is a prefix of
another's ("web" and "web-api") would match the longer service's resources.
Keep service names prefix-distinct; the rollout config validates the shape
of a single name but cannot see the whole fleet.
*/
package gc

/*
Package orchestrator drives a blue/green rollout from start to finish.

One Run call takes one generation through a fixed state machine. Each state
does its work through the focused packages (health, traffic, rollback, gc)
and decides the single next state; the loop in Run only dispatches and
records. There is no retry logic here: a rollout either finishes or fails,
and the operator reruns it with a new generation.

# State Machine

	┌──────────────┐     ┌────────────────┐     ┌───────────┐     ┌──────────┐
	│ Provisioning │ ──▶ │ AwaitingHealth │ ──▶ │ Migrating │ ──▶ │ Cleaning │
	└──────┬───────┘     └───────┬────────┘     └─────┬─────┘     └─────┬────┘
	       │                     │                    │                 │
	       │ cancellation        │ health timeout     │ attach          ▼
	       │ between steps       │ or cancellation    │ rejected    ┌──────┐
	       │                     ▼                    │             │ Done │
	       │             ┌─────────────┐              │             └──────┘
	       ├───────────▶ │ RollingBack │ ◀────────────┘
	       │             └──────┬──────┘
	       │ creation           │ delete new unit + template
	       │ failure            ▼
	       │               ┌────────┐
	       └─────────────▶ │ Failed │
	                       └────────┘

	Provisioning  create the instance template and the deployment unit
	AwaitingHealth  poll until every instance is running (and healthy)
	Migrating  attach to the backend, warm up, drain stale members
	Cleaning  best-effort sweep of stale generations
	RollingBack  tear down this run's resources; previous generation intact

Every transition is logged, counted in cutover_state_transitions_total,
appended to the rollout's history record, and persisted, so a run killed
mid-flight leaves an in_progress record showing exactly how far it got.

# The Commit Point

The attach in Migrating is the moment the rollout stops being abortable.

Before it, the previous generation holds every request and the new one is
invisible, so any failure (template creation, unhealthy instances, a
rejected attach) resolves by deleting what this run created and reporting
Failed. The service never degrades.

After it, the new generation is serving and the run only moves forward.
Post-attach problems (balancing parameters, a member that will not drain,
garbage collection) are logged and flagged but cannot change the outcome.
Detaching a unit that is serving traffic because a cleanup step hiccuped
would be strictly worse than finishing with debris.

Two failure shapes deliberately skip the rollback:

  - Provisioning failures are terminal as-is. Nothing of the new
    generation exists to drain, and a half-created template is swept by
    the next successful run's Cleaning phase.
  - Post-attach migration errors proceed to Cleaning. The new unit is
    live; the stale units that failed to drain are reported for manual
    attention.

# Cancellation

Run honors ctx between steps while the rollout is still abortable: a
cancellation observed during Provisioning or AwaitingHealth sends the run
through RollingBack. An in-flight platform call is never interrupted
mid-operation, so the resource inventory stays consistent with what the
run believes it created.

Once Migrating begins, the migration, any rollback, and the Cleaning sweep
run on context.WithoutCancel: the Ctrl-C that asked for a rollback must
not also kill the rollback.

# Usage

	cfg, err := config.Load("cutover.yaml")
	if err != nil {
		return err
	}
	drv, err := driver.NewREST(driver.RESTConfig{
		Endpoint: cfg.API.Endpoint,
		Token:    cfg.API.Token,
		Zone:     cfg.Zone,
		Timeout:  time.Duration(cfg.API.Timeout),
	})
	if err != nil {
		return err
	}

	o, err := orchestrator.New(cfg, drv, broker, store)
	if err != nil {
		return err
	}

	if err := o.Run(ctx, "v42"); err != nil {
		// errors.Is(err, orchestrator.ErrRolloutFailed) distinguishes a
		// failed run from a rejected one (bad generation, duplicate).
		return err
	}

The broker and store arguments are optional; pass nil to skip progress
events or history persistence.

# Failure Classification

Run returns three kinds of error:

  - Rejections: invalid generation name, generation already deployed,
    preflight read failure. Nothing was created, no record was written,
    and the error does not wrap ErrRolloutFailed.
  - Failed rollouts: wrap ErrRolloutFailed together with the cause
    (health.ErrTimeout, traffic.ErrAttach, a creation error, or
    context.Canceled). The history record carries the same cause.
  - nil: the new generation is serving and stale generations were swept
    (or flagged where a sweep could not finish).

# Integration Points

  - pkg/health: gates Migrating on instance convergence
  - pkg/traffic: the attach/warm-up/drain sequence
  - pkg/rollback: tears down the failed generation, never fails itself
  - pkg/gc: sweeps stale generations during Cleaning
  - pkg/events: publishes rollout.* progress events per transition
  - pkg/history: persists the step-by-step record of every run
  - pkg/metrics: rollout outcomes, durations, and per-state counters
*/
package orchestrator

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/config"
	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/events"
	"github.com/loadwise/cutover/pkg/gc"
	"github.com/loadwise/cutover/pkg/health"
	"github.com/loadwise/cutover/pkg/history"
	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/metrics"
	"github.com/loadwise/cutover/pkg/rollback"
	"github.com/loadwise/cutover/pkg/traffic"
	"github.com/loadwise/cutover/pkg/types"
)

// State identifies where a rollout is in its lifecycle.
type State string

const (
	StateProvisioning   State = "provisioning"
	StateAwaitingHealth State = "awaiting_health"
	StateMigrating      State = "migrating"
	StateRollingBack    State = "rolling_back"
	StateCleaning       State = "cleaning"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// ErrRolloutFailed marks a rollout that ended in the failed state. The
// underlying cause is wrapped alongside it.
var ErrRolloutFailed = errors.New("rollout failed")

// Orchestrator drives one generation through the rollout state machine:
//
//	Provisioning → AwaitingHealth → Migrating → Cleaning → Done
//	                    │               │
//	                    └──────────▶ RollingBack → Failed
//
// The previous generation keeps serving until Migrating commits, so every
// failure before that point rolls the new generation back and leaves the
// service exactly as it was.
type Orchestrator struct {
	cfg      *config.Config
	driver   driver.Driver
	poller   *health.Poller
	migrator *traffic.Migrator
	rollback *rollback.Manager
	gc       *gc.Collector
	broker   *events.Broker
	store    *history.Store
	logger   zerolog.Logger
}

// New wires an Orchestrator from a validated Config. The broker and store
// may be nil; progress events and history are then skipped.
func New(cfg *config.Config, drv driver.Driver, broker *events.Broker, store *history.Store) (*Orchestrator, error) {
	poller, err := health.New(drv, health.Config{
		Timeout:        time.Duration(cfg.Health.Timeout),
		Interval:       time.Duration(cfg.Health.Interval),
		ConfirmBackend: cfg.Health.ConfirmBackend,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		driver:   drv,
		poller:   poller,
		rollback: rollback.New(drv),
		gc:       gc.New(drv, cfg.Service),
		broker:   broker,
		store:    store,
		logger:   log.WithComponent("orchestrator"),
	}

	migrator, err := traffic.New(drv, traffic.Config{
		Backend:        types.BackendRef{Name: cfg.Backend},
		WarmUp:         time.Duration(cfg.Traffic.WarmUp),
		Balancing:      cfg.BalancingParams(),
		DetachAttempts: cfg.Traffic.DetachAttempts,
		DetachBackoff:  time.Duration(cfg.Traffic.DetachBackoff),
		OnAttached:     o.announceAttach,
	})
	if err != nil {
		return nil, err
	}
	o.migrator = migrator

	return o, nil
}

// rollout carries one run's mutable state between the state handlers.
type rollout struct {
	gen    types.Generation
	unit   types.UnitRef
	tpl    types.TemplateRef
	record *history.Record

	// cause is why the run is heading to Failed.
	cause error
}

// Run rolls out gen and blocks until the run reaches Done or Failed. It
// returns nil on Done and an error wrapping ErrRolloutFailed on Failed.
//
// Cancelling ctx is honored between steps while the previous generation
// still holds all traffic; the run then rolls back and fails. Once the
// migration commits, cancellation is ignored so the run never stops halfway
// through moving traffic.
func (o *Orchestrator) Run(ctx context.Context, gen types.Generation) error {
	if !types.ValidGeneration(gen) {
		return fmt.Errorf("invalid generation %q: must match lowercase resource-name rules", gen)
	}
	if err := o.preflight(ctx, gen); err != nil {
		return err
	}

	logger := o.logger.With().Str("generation", string(gen)).Logger()
	logger.Info().Str("service", o.cfg.Service).Msg("rollout started")

	r := &rollout{gen: gen, record: history.NewRecord(o.cfg.Service, gen)}
	o.publish(events.EventRolloutStarted, gen, fmt.Sprintf("rollout of %s started", types.UnitName(o.cfg.Service, gen)), nil)

	timer := metrics.NewTimer()
	state := StateProvisioning
	for {
		o.transition(logger, r, state)

		switch state {
		case StateProvisioning:
			state = o.provision(ctx, logger, r)
		case StateAwaitingHealth:
			state = o.awaitHealth(ctx, logger, r)
		case StateMigrating:
			state = o.migrate(ctx, logger, r)
		case StateRollingBack:
			state = o.rollBack(ctx, logger, r)
		case StateCleaning:
			state = o.clean(ctx, logger, r)

		case StateDone:
			r.record.Finish(history.OutcomeSucceeded, nil)
			o.saveRecord(r.record)
			timer.ObserveDuration(metrics.RolloutDuration)
			metrics.RolloutsTotal.WithLabelValues("succeeded").Inc()
			o.publish(events.EventRolloutCompleted, gen, fmt.Sprintf("%s is serving", r.unit.Name), nil)
			logger.Info().Dur("elapsed", timer.Duration()).Msg("rollout completed")
			return nil

		case StateFailed:
			r.record.Finish(history.OutcomeFailed, r.cause)
			o.saveRecord(r.record)
			timer.ObserveDuration(metrics.RolloutDuration)
			metrics.RolloutsTotal.WithLabelValues("failed").Inc()
			o.publish(events.EventRolloutFailed, gen, "rollout failed", map[string]string{"reason": r.cause.Error()})
			logger.Error().Err(r.cause).Msg("rollout failed")
			return fmt.Errorf("generation %s: %w: %w", gen, ErrRolloutFailed, r.cause)
		}
	}
}

// preflight rejects a rollout before anything is created. Rolling out a
// generation that already has a deployment unit would collide with a
// serving resource, so it fails here rather than at the platform.
func (o *Orchestrator) preflight(ctx context.Context, gen types.Generation) error {
	unitName := types.UnitName(o.cfg.Service, gen)
	existing, err := o.driver.ListUnitsByPrefix(ctx, unitName)
	if err != nil {
		return fmt.Errorf("preflight check failed: %w", err)
	}
	for _, name := range existing {
		if name == unitName {
			return fmt.Errorf("generation %s is already deployed as %s", gen, unitName)
		}
	}
	return nil
}

// provision creates the template and the deployment unit. A creation
// failure is terminal without rollback: nothing of this generation is
// serving, and whatever half exists is swept by the next successful run's
// cleanup. Cancellation between steps rolls back what was created.
func (o *Orchestrator) provision(ctx context.Context, logger zerolog.Logger, r *rollout) State {
	tpl, err := o.driver.CreateTemplate(ctx, o.cfg.TemplateSpec(r.gen))
	if err != nil {
		r.cause = err
		return StateFailed
	}
	r.tpl = tpl
	logger.Info().Str("template", tpl.Name).Str("image", o.cfg.ImageRef(r.gen)).Msg("template created")
	o.publish(events.EventTemplateCreated, r.gen, fmt.Sprintf("template %s created", tpl.Name), map[string]string{
		"template": tpl.Name,
		"image":    o.cfg.ImageRef(r.gen),
	})

	if err := ctx.Err(); err != nil {
		r.cause = err
		return StateRollingBack
	}

	unit, err := o.driver.CreateUnit(ctx, o.cfg.UnitSpec(r.gen))
	if err != nil {
		r.cause = err
		return StateFailed
	}
	r.unit = unit
	logger.Info().Str("unit", unit.Name).Int("size", o.cfg.Size).Msg("deployment unit created")
	o.publish(events.EventUnitCreated, r.gen, fmt.Sprintf("deployment unit %s created", unit.Name), map[string]string{
		"unit": unit.Name,
		"size": fmt.Sprintf("%d", o.cfg.Size),
	})

	if policy, enabled := o.cfg.AutoscalingPolicy(); enabled {
		if err := o.driver.SetAutoscaling(ctx, unit, policy); err != nil {
			// The fixed-size unit serves fine without a scaler.
			logger.Warn().Err(err).Msg("failed to configure autoscaling")
		}
	}

	if err := ctx.Err(); err != nil {
		r.cause = err
		return StateRollingBack
	}
	return StateAwaitingHealth
}

// awaitHealth gates the migration on the new generation converging.
func (o *Orchestrator) awaitHealth(ctx context.Context, logger zerolog.Logger, r *rollout) State {
	timer := metrics.NewTimer()
	err := o.poller.AwaitHealthy(ctx, r.unit, o.cfg.Size)
	if err == nil {
		timer.ObserveDuration(metrics.HealthWaitDuration)
		logger.Info().Dur("elapsed", timer.Duration()).Msg("new generation healthy")
		o.publish(events.EventHealthConfirmed, r.gen, fmt.Sprintf("%s is healthy", r.unit.Name), nil)
		return StateMigrating
	}

	r.cause = err
	if errors.Is(err, health.ErrTimeout) {
		metrics.HealthTimeoutsTotal.Inc()
		o.publish(events.EventHealthTimeout, r.gen, fmt.Sprintf("%s never became healthy", r.unit.Name), nil)
	}
	return StateRollingBack
}

// migrate computes the stale member set and swaps traffic over. The member
// list is read before the attach, so the new unit can never appear in its
// own stale set. From the attach onward the run is committed: cancellation
// no longer applies, and any post-attach trouble is resolved forward.
func (o *Orchestrator) migrate(ctx context.Context, logger zerolog.Logger, r *rollout) State {
	backend := types.BackendRef{Name: o.cfg.Backend}

	members, err := o.driver.ListBackendUnits(ctx, backend)
	if err != nil {
		// Nothing attached yet; bailing out is still free.
		r.cause = fmt.Errorf("failed to read backend members: %w", err)
		return StateRollingBack
	}

	stale := make([]types.UnitRef, 0, len(members))
	for _, member := range members {
		if member.Name != r.unit.Name {
			stale = append(stale, member)
		}
	}

	result, err := o.migrator.Migrate(context.WithoutCancel(ctx), r.unit, stale)
	if err != nil {
		if errors.Is(err, traffic.ErrAttach) {
			r.cause = err
			return StateRollingBack
		}
		// Attach succeeded, so the new generation is serving; do not take
		// it back out. Whatever failed afterwards is cleanup debt.
		logger.Error().Err(err).Msg("migration finished with errors")
		return StateCleaning
	}

	for _, unit := range result.Detached {
		o.publish(events.EventBackendDetached, r.gen, fmt.Sprintf("%s detached from %s", unit.Name, o.cfg.Backend), map[string]string{
			"unit":    unit.Name,
			"backend": o.cfg.Backend,
		})
	}
	for _, unit := range result.Unconfirmed {
		logger.Warn().Str("unit", unit.Name).Msg("stale unit still in the backend set, flagging for manual cleanup")
	}
	return StateCleaning
}

// announceAttach publishes the attach the moment the backend accepts the new
// unit. The attach is the commit point; the rest of the migration (warm-up,
// drain confirmation) can run for minutes, and anyone watching the event
// stream needs to know traffic has started shifting, not that it finished.
func (o *Orchestrator) announceAttach(unit types.UnitRef) {
	gen, _ := types.GenerationFromUnit(o.cfg.Service, unit.Name)
	o.publish(events.EventBackendAttached, gen, fmt.Sprintf("%s attached to %s", unit.Name, o.cfg.Backend), map[string]string{
		"unit":    unit.Name,
		"backend": o.cfg.Backend,
	})
}

// rollBack tears down the failed generation. It runs shielded from the
// operator's cancellation: a rollback triggered by Ctrl-C must not itself
// die to the same Ctrl-C.
func (o *Orchestrator) rollBack(ctx context.Context, logger zerolog.Logger, r *rollout) State {
	reason := "unknown"
	if r.cause != nil {
		reason = r.cause.Error()
	}
	logger.Warn().Str("reason", reason).Msg("rolling back new generation")
	o.publish(events.EventRollbackStarted, r.gen, fmt.Sprintf("rolling back %s", types.UnitName(o.cfg.Service, r.gen)), map[string]string{"reason": reason})

	o.rollback.Rollback(context.WithoutCancel(ctx), r.unit, r.tpl)
	return StateFailed
}

// clean sweeps stale generations. Best effort: the new generation is
// serving, so nothing found here can change the rollout's outcome.
func (o *Orchestrator) clean(ctx context.Context, logger zerolog.Logger, r *rollout) State {
	result, err := o.gc.Collect(context.WithoutCancel(ctx), r.gen)
	if err != nil {
		logger.Warn().Err(err).Msg("garbage collection incomplete, run the gc command to finish")
		return StateDone
	}

	for _, name := range result.Units {
		o.publish(events.EventStaleDeleted, r.gen, fmt.Sprintf("stale unit %s deleted", name), map[string]string{
			"resource": name, "kind": "unit",
		})
	}
	for _, name := range result.Templates {
		o.publish(events.EventStaleDeleted, r.gen, fmt.Sprintf("stale template %s deleted", name), map[string]string{
			"resource": name, "kind": "template",
		})
	}
	return StateDone
}

// transition records a state entry in the log, the metrics, and history.
func (o *Orchestrator) transition(logger zerolog.Logger, r *rollout, state State) {
	logger.Info().Str("state", string(state)).Msg("state transition")
	metrics.StateTransitionsTotal.WithLabelValues(string(state)).Inc()
	r.record.AddStep(string(state))
	o.saveRecord(r.record)
}

// saveRecord persists history best-effort; losing a row never fails a run.
func (o *Orchestrator) saveRecord(record *history.Record) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(record); err != nil {
		o.logger.Warn().Err(err).Msg("failed to save rollout record")
	}
}

func (o *Orchestrator) publish(eventType events.EventType, gen types.Generation, msg string, metadata map[string]string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{
		Type:       eventType,
		Service:    o.cfg.Service,
		Generation: gen,
		Message:    msg,
		Metadata:   metadata,
	})
}

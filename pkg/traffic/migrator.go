package traffic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/metrics"
	"github.com/loadwise/cutover/pkg/poll"
	"github.com/loadwise/cutover/pkg/types"
)

// ErrAttach indicates the new generation could not be added to the backend
// set. It is the only migration error that fails a rollout: the old
// generation is still serving, so the caller rolls back.
var ErrAttach = errors.New("backend attach rejected")

// Config contains the migration parameters.
type Config struct {
	// Backend is the load balancer backend whose member set is migrated.
	Backend types.BackendRef

	// WarmUp is how long both generations serve side by side after the
	// attach, giving the balancer time to start routing to the new unit.
	// Zero skips the overlap.
	WarmUp time.Duration

	// Balancing is applied to the new member after attach. A zero value
	// leaves the platform defaults in place.
	Balancing types.BalancingParams

	// DetachAttempts bounds how many membership reads may be spent
	// confirming each stale unit's removal.
	DetachAttempts int

	// DetachBackoff is the wait between confirmation reads.
	DetachBackoff time.Duration

	// OnAttached, when set, runs as soon as the backend accepts the new
	// unit, before the warm-up and the drain. The attach is the commit
	// point of a rollout; observers care about it while the rest of the
	// migration, warm-up included, is still minutes from returning.
	OnAttached func(unit types.UnitRef)
}

// Result summarizes what a migration did to the backend set.
type Result struct {
	// Detached lists stale units confirmed gone from the backend.
	Detached []types.UnitRef

	// Unconfirmed lists stale units whose detach was issued but whose
	// removal was never observed. They need manual attention; the rollout
	// itself proceeds.
	Unconfirmed []types.UnitRef
}

// Migrator moves traffic to a new generation: attach it to the backend,
// optionally tune its balancing parameters, let it warm up, then drain the
// stale generations out of the member set.
type Migrator struct {
	driver driver.Driver
	cfg    Config
	logger zerolog.Logger
}

// New creates a Migrator.
func New(drv driver.Driver, cfg Config) (*Migrator, error) {
	if cfg.Backend.Name == "" {
		return nil, fmt.Errorf("backend name is required")
	}
	if cfg.DetachAttempts < 1 {
		return nil, fmt.Errorf("detach attempts must be at least 1, got %d", cfg.DetachAttempts)
	}
	if cfg.DetachBackoff <= 0 {
		return nil, fmt.Errorf("detach backoff must be positive, got %s", cfg.DetachBackoff)
	}

	return &Migrator{
		driver: drv,
		cfg:    cfg,
		logger: log.WithComponent("traffic"),
	}, nil
}

// Migrate points the backend at newUnit and drains the stale units.
//
// Only the attach can fail the migration (ErrAttach). Everything after it
// (balancing parameters, warm-up, detaching) is best effort: the new
// generation is serving by then, and no cleanup problem justifies yanking
// it back out. Callers that must not abandon a committed migration pass a
// context that no longer carries the operator's cancellation.
func (m *Migrator) Migrate(ctx context.Context, newUnit types.UnitRef, stale []types.UnitRef) (Result, error) {
	var result Result

	if err := m.driver.AttachBackend(ctx, newUnit, m.cfg.Backend); err != nil {
		return result, fmt.Errorf("failed to attach %s to backend %s: %w: %w",
			newUnit.Name, m.cfg.Backend.Name, ErrAttach, err)
	}
	m.logger.Info().
		Str("unit", newUnit.Name).
		Str("backend", m.cfg.Backend.Name).
		Msg("new generation attached")
	if m.cfg.OnAttached != nil {
		m.cfg.OnAttached(newUnit)
	}

	if !m.cfg.Balancing.IsZero() {
		if err := m.driver.UpdateBackendCapacity(ctx, m.cfg.Backend, newUnit, m.cfg.Balancing); err != nil {
			m.logger.Warn().Err(err).
				Str("unit", newUnit.Name).
				Msg("failed to apply balancing parameters, platform defaults stay in effect")
		}
	}

	if m.cfg.WarmUp > 0 {
		m.logger.Info().Dur("warm_up", m.cfg.WarmUp).Msg("serving both generations during warm-up")
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(m.cfg.WarmUp):
		}
	}

	for _, unit := range stale {
		// The new unit is never drained, even if a confused caller lists it.
		if unit.Name == newUnit.Name {
			continue
		}

		if err := m.detach(ctx, unit); err != nil {
			if errors.Is(err, poll.ErrTimeout) {
				m.logger.Error().
					Str("unit", unit.Name).
					Int("attempts", m.cfg.DetachAttempts).
					Msg("detach never confirmed, unit may still receive traffic")
				metrics.DetachFailuresTotal.Inc()
				result.Unconfirmed = append(result.Unconfirmed, unit)
				continue
			}
			return result, err
		}

		m.logger.Info().Str("unit", unit.Name).Msg("stale generation detached")
		result.Detached = append(result.Detached, unit)
	}

	return result, nil
}

// detach issues the detach call and polls the member set until the unit is
// gone or the attempt budget runs out.
func (m *Migrator) detach(ctx context.Context, unit types.UnitRef) error {
	if err := m.driver.DetachBackend(ctx, unit, m.cfg.Backend); err != nil {
		// The confirmation loop below decides whether this mattered.
		m.logger.Warn().Err(err).Str("unit", unit.Name).Msg("detach call failed")
	}

	return poll.UntilAttempts(ctx, m.cfg.DetachAttempts, m.cfg.DetachBackoff, func(ctx context.Context) (bool, error) {
		members, err := m.driver.ListBackendUnits(ctx, m.cfg.Backend)
		if err != nil {
			m.logger.Warn().Err(err).Msg("membership read failed, will retry")
			return false, nil
		}
		set := types.BackendSet{Backend: m.cfg.Backend, Units: members}
		return !set.Contains(unit), nil
	})
}

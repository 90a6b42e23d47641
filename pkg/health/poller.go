package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/poll"
	"github.com/loadwise/cutover/pkg/types"
)

// ErrTimeout indicates the deployment unit did not converge to healthy
// within the configured window. The orchestrator treats it as a rollback
// trigger rather than an operational failure.
var ErrTimeout = errors.New("health wait timed out")

// Config contains the health wait parameters.
type Config struct {
	// Timeout bounds the whole wait. When it elapses the unit is declared
	// unhealthy no matter how close it was to converging.
	Timeout time.Duration

	// Interval is the time between polls.
	Interval time.Duration

	// ConfirmBackend requires every instance to also pass the load
	// balancer's health checks. When false, only the running gate applies
	// and the unit is considered ready as soon as all instances run.
	ConfirmBackend bool
}

// Poller waits for a new generation's instances to become running and
// healthy before any traffic is pointed at them.
type Poller struct {
	driver driver.Driver
	cfg    Config
	logger zerolog.Logger
}

// New creates a Poller.
func New(drv driver.Driver, cfg Config) (*Poller, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("health timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("health interval must be positive, got %s", cfg.Interval)
	}

	return &Poller{
		driver: drv,
		cfg:    cfg,
		logger: log.WithComponent("health"),
	}, nil
}

// AwaitHealthy blocks until the unit has at least size instances and every
// instance the platform reports is running and, when backend confirmation
// is on, simultaneously passing its health checks. It returns ErrTimeout
// when the window elapses and the context's error when the caller cancels.
//
// Platform read errors are treated as transient: the poll continues and the
// timeout is the only authority on giving up. A snapshot with running but
// unhealthy instances is normal convergence and is only logged.
func (p *Poller) AwaitHealthy(ctx context.Context, unit types.UnitRef, size int) error {
	logger := p.logger.With().Str("unit", unit.Name).Logger()
	logger.Info().
		Int("size", size).
		Dur("timeout", p.cfg.Timeout).
		Bool("confirm_backend", p.cfg.ConfirmBackend).
		Msg("waiting for deployment unit health")

	started := time.Now()
	err := poll.UntilTimeout(ctx, p.cfg.Timeout, p.cfg.Interval, func(ctx context.Context) (bool, error) {
		return p.converged(ctx, logger, unit, size)
	})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return fmt.Errorf("deployment unit %s not healthy after %s: %w", unit.Name, p.cfg.Timeout, ErrTimeout)
		}
		return err
	}

	logger.Info().Dur("elapsed", time.Since(started)).Msg("deployment unit healthy")
	return nil
}

// converged is one poll: the running gate first, then the health gate, both
// judged per instance. The unit converges only when it has reached size
// instances and every instance the platform reports is running and healthy
// in the same pass. A surplus instance that is still coming up (an
// autoscaler surge, a platform recreation) holds convergence until it is
// serving-grade too; counting ready instances against size would wave such
// a snapshot through.
func (p *Poller) converged(ctx context.Context, logger zerolog.Logger, unit types.UnitRef, size int) (bool, error) {
	statuses, err := p.driver.InstanceStatuses(ctx, unit)
	if err != nil {
		logger.Warn().Err(err).Msg("instance status read failed, will retry")
		return false, nil
	}

	if len(statuses) < size {
		logger.Debug().Int("instances", len(statuses)).Int("size", size).Msg("instances still being created")
		return false, nil
	}
	running := 0
	for _, state := range statuses {
		if state == types.LifecycleRunning {
			running++
		}
	}
	if running < len(statuses) {
		logger.Debug().Int("running", running).Int("instances", len(statuses)).Msg("instances still starting")
		return false, nil
	}

	if !p.cfg.ConfirmBackend {
		return true, nil
	}

	health, err := p.driver.HealthStatuses(ctx, unit)
	if err != nil {
		logger.Warn().Err(err).Msg("health status read failed, will retry")
		return false, nil
	}

	// Joined on instance name: each instance seen running above must itself
	// be the one the balancer calls healthy. An instance missing from the
	// health report has no verdict yet and holds convergence.
	healthy := 0
	for name := range statuses {
		if health[name] == types.HealthHealthy {
			healthy++
		}
	}
	if healthy < len(statuses) {
		logger.Debug().Int("healthy", healthy).Int("instances", len(statuses)).Msg("instances running but not yet healthy")
		return false, nil
	}
	return true, nil
}

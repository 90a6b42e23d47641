package rollback

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/metrics"
	"github.com/loadwise/cutover/pkg/types"
)

// Manager tears down what a failed rollout created. It only ever touches
// the failed generation's resources; the generation that is still serving
// is invisible to it.
type Manager struct {
	driver driver.Driver
	logger zerolog.Logger
}

// New creates a Manager.
func New(drv driver.Driver) *Manager {
	return &Manager{
		driver: drv,
		logger: log.WithComponent("rollback"),
	}
}

// Rollback deletes the failed generation's deployment unit and template, in
// that order, since the platform refuses to delete a template that a unit
// still references. Zero-valued refs are skipped, which covers rollouts
// canceled before the resource existed.
//
// Rollback never returns an error: it runs on paths that are already
// failing, where the only useful move is to delete as much as possible and
// log the rest. Anything left behind is picked up by garbage collection on
// the next successful rollout.
func (m *Manager) Rollback(ctx context.Context, unit types.UnitRef, tpl types.TemplateRef) {
	m.logger.Info().
		Str("unit", unit.Name).
		Str("template", tpl.Name).
		Msg("rolling back failed generation")
	metrics.RollbacksTotal.Inc()

	if unit.Name != "" {
		if err := m.driver.DeleteUnit(ctx, unit); err != nil {
			m.logger.Error().Err(err).Str("unit", unit.Name).Msg("failed to delete deployment unit")
		} else {
			m.logger.Info().Str("unit", unit.Name).Msg("deployment unit deleted")
		}
	}

	if tpl.Name != "" {
		if err := m.driver.DeleteTemplate(ctx, tpl); err != nil {
			m.logger.Error().Err(err).Str("template", tpl.Name).Msg("failed to delete template")
		} else {
			m.logger.Info().Str("template", tpl.Name).Msg("template deleted")
		}
	}
}

package gc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/log"
	"github.com/loadwise/cutover/pkg/metrics"
	"github.com/loadwise/cutover/pkg/types"
)

// Collector deletes a service's stale generations: every deployment unit
// and template whose name does not belong to the current generation.
type Collector struct {
	driver  driver.Driver
	service string
	logger  zerolog.Logger
}

// New creates a Collector for one service.
func New(drv driver.Driver, service string) *Collector {
	return &Collector{
		driver:  drv,
		service: service,
		logger:  log.WithComponent("gc"),
	}
}

// Result lists what a collection pass deleted.
type Result struct {
	Units     []string
	Templates []string
}

// Empty reports whether the pass found nothing to delete.
func (r Result) Empty() bool {
	return len(r.Units) == 0 && len(r.Templates) == 0
}

// Collect deletes every stale unit, then every stale template. Deleting all
// units first guarantees the unit-before-template order for each generation,
// since the platform refuses to delete a template that is still referenced.
//
// Individual delete failures are logged and skipped; a later pass retries
// them, and deleting an already-absent resource is not an error, so repeated
// passes converge. Only a failed listing aborts, because without the listing
// there is nothing safe to do.
func (c *Collector) Collect(ctx context.Context, current types.Generation) (Result, error) {
	var result Result
	currentUnit := types.UnitName(c.service, current)
	currentTpl := types.TemplateName(c.service, current)

	units, err := c.driver.ListUnitsByPrefix(ctx, types.UnitPrefix(c.service))
	if err != nil {
		return result, fmt.Errorf("failed to list deployment units: %w", err)
	}
	for _, name := range units {
		if name == currentUnit {
			continue
		}
		if _, ok := types.GenerationFromUnit(c.service, name); !ok {
			c.logger.Debug().Str("unit", name).Msg("name outside the generation scheme, skipping")
			continue
		}
		if err := c.driver.DeleteUnit(ctx, types.UnitRef{Name: name}); err != nil {
			c.logger.Error().Err(err).Str("unit", name).Msg("failed to delete stale deployment unit")
			continue
		}
		c.logger.Info().Str("unit", name).Msg("stale deployment unit deleted")
		metrics.StaleDeletionsTotal.WithLabelValues("unit").Inc()
		result.Units = append(result.Units, name)
	}

	templates, err := c.driver.ListTemplatesByPrefix(ctx, types.TemplatePrefix(c.service))
	if err != nil {
		return result, fmt.Errorf("failed to list templates: %w", err)
	}
	for _, name := range templates {
		if name == currentTpl {
			continue
		}
		if _, ok := types.GenerationFromTemplate(c.service, name); !ok {
			continue
		}
		if err := c.driver.DeleteTemplate(ctx, types.TemplateRef{Name: name}); err != nil {
			// Usually a template whose unit delete failed above and is
			// still referenced. The next pass gets both.
			c.logger.Error().Err(err).Str("template", name).Msg("failed to delete stale template")
			continue
		}
		c.logger.Info().Str("template", name).Msg("stale template deleted")
		metrics.StaleDeletionsTotal.WithLabelValues("template").Inc()
		result.Templates = append(result.Templates, name)
	}

	return result, nil
}

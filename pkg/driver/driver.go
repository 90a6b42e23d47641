package driver

import (
	"context"

	"github.com/loadwise/cutover/pkg/types"
)

// Driver is the boundary to the cloud platform's resource APIs. Everything
// the rollout does to the outside world (provisioning, status reads,
// traffic membership, cleanup) goes through this interface, so the
// orchestration logic never sees HTTP or platform-specific shapes.
//
// Mutating calls are expected to be synchronous at the resource level: when
// CreateUnit returns, the unit exists (its instances may still be booting);
// when DeleteUnit returns without error, the unit is gone or going. Status
// reads are point-in-time snapshots with no freshness guarantee beyond the
// platform's own.
type Driver interface {
	// CreateTemplate creates an immutable provisioning template. Templates
	// are never updated; a new generation gets a new template.
	CreateTemplate(ctx context.Context, spec types.TemplateSpec) (types.TemplateRef, error)

	// CreateUnit creates a deployment unit from a template with the given
	// size and named ports.
	CreateUnit(ctx context.Context, spec types.UnitSpec) (types.UnitRef, error)

	// DeleteUnit deletes a deployment unit. Deleting a unit that does not
	// exist is not an error.
	DeleteUnit(ctx context.Context, ref types.UnitRef) error

	// DeleteTemplate deletes a template. The platform refuses while a unit
	// still references it, which is why units are always deleted first.
	DeleteTemplate(ctx context.Context, ref types.TemplateRef) error

	// InstanceStatuses reports the lifecycle state of each instance in a
	// unit, keyed by instance name.
	InstanceStatuses(ctx context.Context, ref types.UnitRef) (map[string]types.LifecycleState, error)

	// HealthStatuses reports the load-balancer-evaluated health of each
	// instance in a unit. Health is computed by the platform's health-check
	// system against the application's liveness path; it is read-only here.
	HealthStatuses(ctx context.Context, ref types.UnitRef) (map[string]types.HealthState, error)

	// AttachBackend adds a unit to the backend service's member set, making
	// it a traffic sink.
	AttachBackend(ctx context.Context, unit types.UnitRef, backend types.BackendRef) error

	// DetachBackend removes a unit from the backend service's member set.
	// Removal may lag; callers confirm via ListBackendUnits.
	DetachBackend(ctx context.Context, unit types.UnitRef, backend types.BackendRef) error

	// ListBackendUnits returns the backend's current member units.
	ListBackendUnits(ctx context.Context, backend types.BackendRef) ([]types.UnitRef, error)

	// UpdateBackendCapacity applies balancing parameters to one member of
	// the backend so the load balancer shifts proportional traffic to it.
	UpdateBackendCapacity(ctx context.Context, backend types.BackendRef, unit types.UnitRef, params types.BalancingParams) error

	// SetAutoscaling applies an autoscaling policy to a unit.
	SetAutoscaling(ctx context.Context, unit types.UnitRef, policy types.AutoscalingPolicy) error

	// ListUnitsByPrefix returns the names of all deployment units whose
	// name starts with prefix, across every generation.
	ListUnitsByPrefix(ctx context.Context, prefix string) ([]string, error)

	// ListTemplatesByPrefix returns the names of all templates whose name
	// starts with prefix.
	ListTemplatesByPrefix(ctx context.Context, prefix string) ([]string, error)
}

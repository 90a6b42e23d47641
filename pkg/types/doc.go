/*
Package types defines the core data structures used throughout cutover.

This package contains the domain model for blue/green rollouts onto VM
instance groups: generations, provisioning templates, deployment units, the
load balancer backend set, and the naming scheme that binds platform
resources to the generation that owns them. Every other package consumes
these types; none of them carries behavior beyond simple derivations, so the
package has no dependencies of its own.

# Core Types

Rollout identity:
  - Generation: opaque identifier for one rollout attempt (a build or
    commit reference). Immutable once assigned.

Provisioning:
  - TemplateSpec / TemplateRef: immutable blueprint for one generation's
    instances (image, machine shape, startup metadata)
  - UnitSpec / UnitRef: a deployment unit (managed instance pool) created
    from a template, with desired size and named ports
  - DeploymentUnit: the orchestrator's view of a unit, including the
    per-instance lifecycle and health observations last read

Traffic:
  - BackendRef: the load balancer backend service
  - BackendSet: the backend's current member units
  - BalancingParams: optional capacity parameters applied when a new unit
    is attached
  - AutoscalingPolicy: size bounds when autoscaling is enabled

Observed state:
  - LifecycleState: platform-reported instance status
    (provisioning, staging, running, stopping, terminated)
  - HealthState: load-balancer-evaluated readiness
    (healthy, unhealthy, draining, timeout, unknown)

# Naming Scheme

One generation maps deterministically to the names of the resources that
belong to it:

	unit:     <service>-<generation>        e.g. web-abc123
	template: <service>-tpl-<generation>    e.g. web-tpl-abc123

GenerationFromUnit and GenerationFromTemplate invert the scheme. Rollback
and garbage collection rely on this: given nothing but a name listing from
the platform they can decide which generation owns each resource and whether
it is stale. Because names double as ownership records, generations are
validated against RFC 1035 label rules (ValidGeneration) before any resource
is created, and the "tpl-" prefix is reserved: a generation like "tpl-abc"
would name a unit that parses as a template, leaving it unrecoverable.

# Invariants

The model encodes the rollout safety rules:

  - Exactly one deployment unit exists per generation; names make a second
    unit for the same generation impossible without deleting the first.
  - The backend set contains the current generation's unit plus zero or
    more stale units awaiting garbage collection.
  - Health state is owned by the platform's health-check system and is
    read-only here; nothing in this codebase computes health itself.
  - Templates are never mutated after creation. A new image version means a
    new generation, a new template, and a new unit.

# Usage

Deriving names for a rollout:

	gen := types.Generation("abc123")
	if !types.ValidGeneration(gen) {
		return fmt.Errorf("invalid generation %q", gen)
	}
	unitName := types.UnitName("web", gen)         // "web-abc123"
	tplName := types.TemplateName("web", gen)      // "web-tpl-abc123"

Recovering ownership during garbage collection:

	for _, name := range unitNames {
		gen, ok := types.GenerationFromUnit("web", name)
		if !ok || gen == current {
			continue // foreign name or current generation
		}
		// stale: delete
	}

# Integration Points

  - pkg/driver: speaks these types over the platform API boundary
  - pkg/health: reads LifecycleState and HealthState maps
  - pkg/traffic: mutates BackendSet membership through the driver
  - pkg/gc and pkg/rollback: use the naming scheme to find owned resources
  - pkg/orchestrator: owns the Generation for a rollout attempt
*/
package types

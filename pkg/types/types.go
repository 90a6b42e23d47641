package types

import (
	"time"
)

// Generation identifies one immutable rollout attempt, typically a build or
// commit reference. It is assigned once at invocation time and never changes;
// every platform resource created for the attempt derives its name from it.
type Generation string

func (g Generation) String() string {
	return string(g)
}

// TemplateSpec describes the provisioning blueprint for one generation's
// deployment unit. Templates are immutable: once created they are only ever
// deleted, together with the unit that references them.
type TemplateSpec struct {
	Name        string
	Image       string // full image reference, e.g. registry/app:gen
	MachineType string
	DiskSizeGB  int
	Metadata    map[string]string // startup metadata passed to instances
	Tags        []string
}

// TemplateRef names an existing template on the platform.
type TemplateRef struct {
	Name string
}

// UnitSpec describes a deployment unit to be created from a template.
type UnitSpec struct {
	Name       string
	Template   TemplateRef
	Size       int
	NamedPorts map[string]int // port name -> port number, e.g. "http" -> 8080
}

// UnitRef names an existing deployment unit on the platform.
type UnitRef struct {
	Name string
}

// DeploymentUnit is the orchestrator's view of one instance pool: the
// generation it carries, the size it was asked for, and the per-instance
// lifecycle and health observations last read from the platform. Health
// state is owned by the platform's health-check system and is read-only
// here.
type DeploymentUnit struct {
	Ref        UnitRef
	Generation Generation
	Size       int
	Instances  map[string]LifecycleState
	Health     map[string]HealthState
	Attached   bool
	CreatedAt  time.Time
}

// LifecycleState is the platform-reported status of a single instance.
type LifecycleState string

const (
	LifecycleProvisioning LifecycleState = "provisioning"
	LifecycleStaging      LifecycleState = "staging"
	LifecycleRunning      LifecycleState = "running"
	LifecycleStopping     LifecycleState = "stopping"
	LifecycleTerminated   LifecycleState = "terminated"
)

// HealthState is the load-balancer-evaluated readiness of an instance,
// derived from the application's HTTP liveness path.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	HealthDraining  HealthState = "draining"
	HealthTimeout   HealthState = "timeout"
	HealthUnknown   HealthState = "unknown"
)

// BackendRef names the load balancer backend service whose member set the
// migrator mutates.
type BackendRef struct {
	Name string
}

// BackendSet is the backend service's current collection of
// traffic-receiving deployment units, as listed by the platform. Ordering
// carries no meaning; it exists only for deterministic iteration.
type BackendSet struct {
	Backend BackendRef
	Units   []UnitRef
}

// Contains reports whether the set currently lists ref as a member.
func (s BackendSet) Contains(ref UnitRef) bool {
	for _, u := range s.Units {
		if u.Name == ref.Name {
			return true
		}
	}
	return false
}

// BalancingParams are the optional capacity parameters applied to a freshly
// attached unit so the load balancer starts shifting proportional traffic.
// Zero values mean "leave the platform default in place".
type BalancingParams struct {
	MaxUtilization float64 // target utilization, 0 < u <= 1
	CapacityScaler float64 // fraction of capacity to offer, 0 <= s <= 1
}

// IsZero reports whether no parameter was configured.
func (p BalancingParams) IsZero() bool {
	return p.MaxUtilization == 0 && p.CapacityScaler == 0
}

// AutoscalingPolicy bounds a unit's size when the autoscaling capability is
// enabled. TargetUtilization drives the platform's scaling decisions.
type AutoscalingPolicy struct {
	MinReplicas       int
	MaxReplicas       int
	TargetUtilization float64
}

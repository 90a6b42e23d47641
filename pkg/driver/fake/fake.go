// Package fake provides an in-memory driver.Driver for tests.
//
// Platform keeps templates, deployment units and backend membership in maps
// and lets tests script the behaviors the rollout logic has to survive:
// instances that take several polls to run or become healthy, pinned mixed
// per-instance snapshots, operations that fail, members that refuse to
// detach, and transient status-read errors. All methods are safe for
// concurrent use.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/loadwise/cutover/pkg/driver"
	"github.com/loadwise/cutover/pkg/types"
)

// unit is one deployment unit plus its scripted convergence behavior.
type unit struct {
	spec types.UnitSpec

	// runningAfter and healthyAfter are poll countdowns: while positive,
	// status reads report the unit as still converging and decrement.
	runningAfter int
	healthyAfter int

	// neverHealthy pins every instance to unhealthy regardless of polls.
	neverHealthy bool

	// lifecycle and health, when non-nil, are returned verbatim by status
	// reads instead of the size-derived snapshots.
	lifecycle map[string]types.LifecycleState
	health    map[string]types.HealthState
}

// Platform is an in-memory compute platform.
//
// The exported Err fields inject failures: set one before exercising the
// code under test and the corresponding operation returns that error.
// StickyMembers lists deployment units whose DetachBackend calls are
// accepted but never take effect.
type Platform struct {
	mu sync.Mutex

	templates map[string]types.TemplateSpec
	units     map[string]*unit
	backends  map[string]map[string]bool

	autoscalers map[string]types.AutoscalingPolicy
	capacities  map[string]types.BalancingParams

	calls map[string]int

	// statusReadErrs makes the next N InstanceStatuses/HealthStatuses
	// calls fail with statusReadErr.
	statusReadErrs int
	statusReadErr  error

	// backendListErrs makes the next N ListBackendUnits calls fail with
	// backendListErr.
	backendListErrs int
	backendListErr  error

	CreateTemplateErr error
	CreateUnitErr     error
	DeleteUnitErr     error
	DeleteTemplateErr error
	AttachErr         error
	DetachErr         error
	CapacityErr       error
	AutoscalingErr    error

	StickyMembers map[string]bool

	// OnUnitCreated runs after a successful CreateUnit, outside the lock.
	// Tests use it to cancel a context at a precise point in a rollout.
	OnUnitCreated func(ref types.UnitRef)
}

var _ driver.Driver = (*Platform)(nil)

// New creates an empty platform.
func New() *Platform {
	return &Platform{
		templates:     make(map[string]types.TemplateSpec),
		units:         make(map[string]*unit),
		backends:      make(map[string]map[string]bool),
		autoscalers:   make(map[string]types.AutoscalingPolicy),
		capacities:    make(map[string]types.BalancingParams),
		calls:         make(map[string]int),
		StickyMembers: make(map[string]bool),
	}
}

// SeedServing sets up the steady state before a rollout: a template and a
// running, healthy deployment unit for gen, attached to the named backend.
func (p *Platform) SeedServing(service string, gen types.Generation, backend string, size int) types.UnitRef {
	p.mu.Lock()
	defer p.mu.Unlock()

	tplName := types.TemplateName(service, gen)
	unitName := types.UnitName(service, gen)

	p.templates[tplName] = types.TemplateSpec{Name: tplName}
	p.units[unitName] = &unit{
		spec: types.UnitSpec{
			Name:     unitName,
			Template: types.TemplateRef{Name: tplName},
			Size:     size,
		},
	}
	if p.backends[backend] == nil {
		p.backends[backend] = make(map[string]bool)
	}
	p.backends[backend][unitName] = true

	return types.UnitRef{Name: unitName}
}

// SetRunningAfter makes the unit's instances report a provisioning state for
// the next n status polls before settling on running.
func (p *Platform) SetRunningAfter(unitName string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitName]; ok {
		u.runningAfter = n
	}
}

// SetHealthyAfter makes the unit's instances report unhealthy for the next
// n health polls before settling on healthy.
func (p *Platform) SetHealthyAfter(unitName string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitName]; ok {
		u.healthyAfter = n
	}
}

// MarkNeverHealthy pins the unit's instances to unhealthy forever.
func (p *Platform) MarkNeverHealthy(unitName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitName]; ok {
		u.neverHealthy = true
	}
}

// SetSnapshot pins the unit's status reads to exactly these maps, letting
// tests hand pollers any mixed per-instance picture: a surge instance still
// provisioning next to running ones, or a running instance the balancer
// reports unhealthy. The pin stays until replaced.
func (p *Platform) SetSnapshot(unitName string, lifecycle map[string]types.LifecycleState, health map[string]types.HealthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitName]; ok {
		u.lifecycle = lifecycle
		u.health = health
	}
}

// FailStatusReads makes the next n instance and health status reads return
// err. Used to exercise transient read tolerance in pollers.
func (p *Platform) FailStatusReads(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusReadErrs = n
	p.statusReadErr = err
}

// FailBackendLists makes the next n ListBackendUnits calls return err.
func (p *Platform) FailBackendLists(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendListErrs = n
	p.backendListErr = err
}

func (p *Platform) CreateTemplate(_ context.Context, spec types.TemplateSpec) (types.TemplateRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["CreateTemplate"]++

	if p.CreateTemplateErr != nil {
		return types.TemplateRef{}, p.CreateTemplateErr
	}
	if _, exists := p.templates[spec.Name]; exists {
		return types.TemplateRef{}, fmt.Errorf("template %s already exists", spec.Name)
	}
	p.templates[spec.Name] = spec
	return types.TemplateRef{Name: spec.Name}, nil
}

func (p *Platform) CreateUnit(_ context.Context, spec types.UnitSpec) (types.UnitRef, error) {
	p.mu.Lock()
	p.calls["CreateUnit"]++

	if p.CreateUnitErr != nil {
		p.mu.Unlock()
		return types.UnitRef{}, p.CreateUnitErr
	}
	if _, exists := p.units[spec.Name]; exists {
		p.mu.Unlock()
		return types.UnitRef{}, fmt.Errorf("deployment unit %s already exists", spec.Name)
	}
	if _, ok := p.templates[spec.Template.Name]; !ok {
		p.mu.Unlock()
		return types.UnitRef{}, fmt.Errorf("template %s not found", spec.Template.Name)
	}
	p.units[spec.Name] = &unit{spec: spec}
	hook := p.OnUnitCreated
	p.mu.Unlock()

	ref := types.UnitRef{Name: spec.Name}
	if hook != nil {
		hook(ref)
	}
	return ref, nil
}

func (p *Platform) DeleteUnit(_ context.Context, ref types.UnitRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["DeleteUnit"]++

	if p.DeleteUnitErr != nil {
		return p.DeleteUnitErr
	}
	delete(p.units, ref.Name)
	for _, members := range p.backends {
		delete(members, ref.Name)
	}
	return nil
}

func (p *Platform) DeleteTemplate(_ context.Context, ref types.TemplateRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["DeleteTemplate"]++

	if p.DeleteTemplateErr != nil {
		return p.DeleteTemplateErr
	}
	for _, u := range p.units {
		if u.spec.Template.Name == ref.Name {
			return fmt.Errorf("template %s is in use by %s", ref.Name, u.spec.Name)
		}
	}
	delete(p.templates, ref.Name)
	return nil
}

func (p *Platform) InstanceStatuses(_ context.Context, ref types.UnitRef) (map[string]types.LifecycleState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["InstanceStatuses"]++

	if err := p.takeStatusReadErr(); err != nil {
		return nil, err
	}
	u, ok := p.units[ref.Name]
	if !ok {
		return nil, fmt.Errorf("deployment unit %s not found", ref.Name)
	}

	if u.lifecycle != nil {
		statuses := make(map[string]types.LifecycleState, len(u.lifecycle))
		for name, state := range u.lifecycle {
			statuses[name] = state
		}
		return statuses, nil
	}

	statuses := make(map[string]types.LifecycleState, u.spec.Size)
	converging := u.runningAfter > 0
	if converging {
		u.runningAfter--
	}
	for i := 0; i < u.spec.Size; i++ {
		name := instanceName(ref.Name, i)
		// While converging, the first instance is up and the rest are
		// still staging, so callers see a mixed snapshot.
		if converging && i > 0 {
			statuses[name] = types.LifecycleStaging
		} else {
			statuses[name] = types.LifecycleRunning
		}
	}
	return statuses, nil
}

func (p *Platform) HealthStatuses(_ context.Context, ref types.UnitRef) (map[string]types.HealthState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["HealthStatuses"]++

	if err := p.takeStatusReadErr(); err != nil {
		return nil, err
	}
	u, ok := p.units[ref.Name]
	if !ok {
		return nil, fmt.Errorf("deployment unit %s not found", ref.Name)
	}

	if u.health != nil {
		statuses := make(map[string]types.HealthState, len(u.health))
		for name, state := range u.health {
			statuses[name] = state
		}
		return statuses, nil
	}

	statuses := make(map[string]types.HealthState, u.spec.Size)
	converging := u.healthyAfter > 0
	if converging {
		u.healthyAfter--
	}
	for i := 0; i < u.spec.Size; i++ {
		name := instanceName(ref.Name, i)
		switch {
		case u.neverHealthy:
			statuses[name] = types.HealthUnhealthy
		case converging && i > 0:
			statuses[name] = types.HealthUnhealthy
		default:
			statuses[name] = types.HealthHealthy
		}
	}
	return statuses, nil
}

func (p *Platform) AttachBackend(_ context.Context, unitRef types.UnitRef, backend types.BackendRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["AttachBackend"]++

	if p.AttachErr != nil {
		return p.AttachErr
	}
	if _, ok := p.units[unitRef.Name]; !ok {
		return fmt.Errorf("deployment unit %s not found", unitRef.Name)
	}
	if p.backends[backend.Name] == nil {
		p.backends[backend.Name] = make(map[string]bool)
	}
	p.backends[backend.Name][unitRef.Name] = true
	return nil
}

func (p *Platform) DetachBackend(_ context.Context, unitRef types.UnitRef, backend types.BackendRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["DetachBackend"]++

	if p.DetachErr != nil {
		return p.DetachErr
	}
	// Sticky members accept the detach but stay attached, the way a
	// balancer holding a member in draining would look to a poller.
	if p.StickyMembers[unitRef.Name] {
		return nil
	}
	if members, ok := p.backends[backend.Name]; ok {
		delete(members, unitRef.Name)
	}
	return nil
}

func (p *Platform) ListBackendUnits(_ context.Context, backend types.BackendRef) ([]types.UnitRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["ListBackendUnits"]++

	if p.backendListErrs > 0 {
		p.backendListErrs--
		return nil, p.backendListErr
	}

	names := make([]string, 0, len(p.backends[backend.Name]))
	for name := range p.backends[backend.Name] {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]types.UnitRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, types.UnitRef{Name: name})
	}
	return refs, nil
}

func (p *Platform) UpdateBackendCapacity(_ context.Context, backend types.BackendRef, unitRef types.UnitRef, params types.BalancingParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["UpdateBackendCapacity"]++

	if p.CapacityErr != nil {
		return p.CapacityErr
	}
	if !p.backends[backend.Name][unitRef.Name] {
		return fmt.Errorf("%s is not a member of backend %s", unitRef.Name, backend.Name)
	}
	p.capacities[backend.Name+"/"+unitRef.Name] = params
	return nil
}

func (p *Platform) SetAutoscaling(_ context.Context, unitRef types.UnitRef, policy types.AutoscalingPolicy) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["SetAutoscaling"]++

	if p.AutoscalingErr != nil {
		return p.AutoscalingErr
	}
	if _, ok := p.units[unitRef.Name]; !ok {
		return fmt.Errorf("deployment unit %s not found", unitRef.Name)
	}
	p.autoscalers[unitRef.Name] = policy
	return nil
}

func (p *Platform) ListUnitsByPrefix(_ context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["ListUnitsByPrefix"]++

	var names []string
	for name := range p.units {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *Platform) ListTemplatesByPrefix(_ context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["ListTemplatesByPrefix"]++

	var names []string
	for name := range p.templates {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// HasTemplate reports whether the named template exists.
func (p *Platform) HasTemplate(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.templates[name]
	return ok
}

// HasUnit reports whether the named deployment unit exists.
func (p *Platform) HasUnit(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.units[name]
	return ok
}

// BackendMembers returns the backend's member names, sorted.
func (p *Platform) BackendMembers(backend string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.backends[backend]))
	for name := range p.backends[backend] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Autoscaling returns the policy applied to the unit, if any.
func (p *Platform) Autoscaling(unitName string) (types.AutoscalingPolicy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	policy, ok := p.autoscalers[unitName]
	return policy, ok
}

// Capacity returns the balancing params applied to the unit on the backend.
func (p *Platform) Capacity(backend, unitName string) (types.BalancingParams, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	params, ok := p.capacities[backend+"/"+unitName]
	return params, ok
}

// Calls returns how many times the named driver operation ran.
func (p *Platform) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Platform) takeStatusReadErr() error {
	if p.statusReadErrs > 0 {
		p.statusReadErrs--
		return p.statusReadErr
	}
	return nil
}

func instanceName(unitName string, i int) string {
	return fmt.Sprintf("%s-%d", unitName, i)
}

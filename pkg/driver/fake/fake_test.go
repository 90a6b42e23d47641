package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadwise/cutover/pkg/types"
)

func seedUnit(t *testing.T, p *Platform, name string, size int) types.UnitRef {
	t.Helper()
	ctx := context.Background()

	tpl, err := p.CreateTemplate(ctx, types.TemplateSpec{Name: name + "-tpl"})
	require.NoError(t, err)

	ref, err := p.CreateUnit(ctx, types.UnitSpec{Name: name, Template: tpl, Size: size})
	require.NoError(t, err)
	return ref
}

func TestCreateUnitRequiresTemplate(t *testing.T) {
	p := New()

	_, err := p.CreateUnit(context.Background(), types.UnitSpec{
		Name:     "web-abc123",
		Template: types.TemplateRef{Name: "missing"},
		Size:     2,
	})
	assert.Error(t, err)
}

func TestDeleteTemplateInUse(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := seedUnit(t, p, "web-abc123", 2)

	err := p.DeleteTemplate(ctx, types.TemplateRef{Name: "web-abc123-tpl"})
	assert.Error(t, err, "template is still referenced")

	require.NoError(t, p.DeleteUnit(ctx, ref))
	assert.NoError(t, p.DeleteTemplate(ctx, types.TemplateRef{Name: "web-abc123-tpl"}))
}

func TestDeletesAreIdempotent(t *testing.T) {
	p := New()
	ctx := context.Background()

	assert.NoError(t, p.DeleteUnit(ctx, types.UnitRef{Name: "never-existed"}))
	assert.NoError(t, p.DeleteTemplate(ctx, types.TemplateRef{Name: "never-existed"}))
	assert.NoError(t, p.DetachBackend(ctx, types.UnitRef{Name: "never-existed"}, types.BackendRef{Name: "web-backend"}))
}

func TestRunningCountdown(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := seedUnit(t, p, "web-abc123", 3)
	p.SetRunningAfter(ref.Name, 2)

	for poll := 0; poll < 2; poll++ {
		statuses, err := p.InstanceStatuses(ctx, ref)
		require.NoError(t, err)

		running := 0
		for _, state := range statuses {
			if state == types.LifecycleRunning {
				running++
			}
		}
		assert.Equal(t, 1, running, "poll %d still converging", poll)
	}

	statuses, err := p.InstanceStatuses(ctx, ref)
	require.NoError(t, err)
	for name, state := range statuses {
		assert.Equal(t, types.LifecycleRunning, state, name)
	}
}

func TestHealthyCountdownAndNeverHealthy(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := seedUnit(t, p, "web-abc123", 2)

	p.SetHealthyAfter(ref.Name, 1)
	statuses, err := p.HealthStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, types.HealthUnhealthy, statuses["web-abc123-1"])

	statuses, err = p.HealthStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, types.HealthHealthy, statuses["web-abc123-1"])

	p.MarkNeverHealthy(ref.Name)
	statuses, err = p.HealthStatuses(ctx, ref)
	require.NoError(t, err)
	for name, state := range statuses {
		assert.Equal(t, types.HealthUnhealthy, state, name)
	}
}

func TestSetSnapshotOverridesStatusReads(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := seedUnit(t, p, "web-abc123", 2)

	lifecycle := map[string]types.LifecycleState{
		"web-abc123-0": types.LifecycleRunning,
		"web-abc123-1": types.LifecycleProvisioning,
		"web-abc123-2": types.LifecycleStaging,
	}
	health := map[string]types.HealthState{
		"web-abc123-0": types.HealthUnhealthy,
	}
	p.SetSnapshot(ref.Name, lifecycle, health)

	statuses, err := p.InstanceStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, lifecycle, statuses)

	verdicts, err := p.HealthStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, health, verdicts)

	// The pin holds across reads and hands out copies.
	statuses["web-abc123-0"] = types.LifecycleTerminated
	again, err := p.InstanceStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, types.LifecycleRunning, again["web-abc123-0"])
}

func TestFailStatusReadsIsTransient(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := seedUnit(t, p, "web-abc123", 1)

	readErr := errors.New("api unavailable")
	p.FailStatusReads(2, readErr)

	_, err := p.InstanceStatuses(ctx, ref)
	assert.ErrorIs(t, err, readErr)
	_, err = p.HealthStatuses(ctx, ref)
	assert.ErrorIs(t, err, readErr)

	_, err = p.InstanceStatuses(ctx, ref)
	assert.NoError(t, err, "reads recover after the budget is spent")
}

func TestStickyMemberSurvivesDetach(t *testing.T) {
	p := New()
	ctx := context.Background()
	backend := types.BackendRef{Name: "web-backend"}

	ref := seedUnit(t, p, "web-abc123", 1)
	require.NoError(t, p.AttachBackend(ctx, ref, backend))
	p.StickyMembers[ref.Name] = true

	require.NoError(t, p.DetachBackend(ctx, ref, backend), "detach is accepted")
	assert.Equal(t, []string{"web-abc123"}, p.BackendMembers("web-backend"), "but membership persists")
}

func TestSeedServing(t *testing.T) {
	p := New()
	ctx := context.Background()

	ref := p.SeedServing("web", "xyz000", "web-backend", 2)
	assert.Equal(t, "web-xyz000", ref.Name)
	assert.True(t, p.HasUnit("web-xyz000"))
	assert.True(t, p.HasTemplate("web-tpl-xyz000"))

	members, err := p.ListBackendUnits(ctx, types.BackendRef{Name: "web-backend"})
	require.NoError(t, err)
	assert.Equal(t, []types.UnitRef{{Name: "web-xyz000"}}, members)

	statuses, err := p.HealthStatuses(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, types.HealthHealthy, statuses["web-xyz000-0"])
}

func TestListByPrefix(t *testing.T) {
	p := New()
	ctx := context.Background()

	seedUnit(t, p, "web-abc123", 1)
	seedUnit(t, p, "web-xyz000", 1)
	seedUnit(t, p, "api-abc123", 1)

	units, err := p.ListUnitsByPrefix(ctx, "web-")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-abc123", "web-xyz000"}, units)

	templates, err := p.ListTemplatesByPrefix(ctx, "api-")
	require.NoError(t, err)
	assert.Equal(t, []string{"api-abc123-tpl"}, templates)
}

func TestUnitCreatedHook(t *testing.T) {
	p := New()
	var created []string
	p.OnUnitCreated = func(ref types.UnitRef) {
		created = append(created, ref.Name)
	}

	seedUnit(t, p, "web-abc123", 1)
	assert.Equal(t, []string{"web-abc123"}, created)
	assert.Equal(t, 1, p.Calls("CreateUnit"))
}

func TestFailBackendListsIsTransient(t *testing.T) {
	p := New()
	ctx := context.Background()
	backend := types.BackendRef{Name: "web-backend"}
	p.SeedServing("web", "abc123", backend.Name, 1)

	listErr := errors.New("api unavailable")
	p.FailBackendLists(1, listErr)

	_, err := p.ListBackendUnits(ctx, backend)
	assert.ErrorIs(t, err, listErr)

	members, err := p.ListBackendUnits(ctx, backend)
	assert.NoError(t, err, "lists recover after the budget is spent")
	assert.Len(t, members, 1)
}

package rollback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadwise/cutover/pkg/driver/fake"
	"github.com/loadwise/cutover/pkg/types"
)

func seedFailedGeneration(t *testing.T, platform *fake.Platform) (types.UnitRef, types.TemplateRef) {
	t.Helper()
	ctx := context.Background()

	tpl, err := platform.CreateTemplate(ctx, types.TemplateSpec{Name: "web-tpl-abc123"})
	require.NoError(t, err)
	unit, err := platform.CreateUnit(ctx, types.UnitSpec{Name: "web-abc123", Template: tpl, Size: 2})
	require.NoError(t, err)
	return unit, tpl
}

func TestRollbackDeletesUnitThenTemplate(t *testing.T) {
	platform := fake.New()
	unit, tpl := seedFailedGeneration(t, platform)

	// The platform refuses to delete a referenced template, so both being
	// gone proves the unit went first.
	New(platform).Rollback(context.Background(), unit, tpl)

	assert.False(t, platform.HasUnit("web-abc123"))
	assert.False(t, platform.HasTemplate("web-tpl-abc123"))
}

func TestRollbackSkipsZeroRefs(t *testing.T) {
	platform := fake.New()

	ctx := context.Background()
	tpl, err := platform.CreateTemplate(ctx, types.TemplateSpec{Name: "web-tpl-abc123"})
	require.NoError(t, err)

	// Canceled after the template but before the unit existed.
	New(platform).Rollback(ctx, types.UnitRef{}, tpl)

	assert.False(t, platform.HasTemplate("web-tpl-abc123"))
	assert.Equal(t, 0, platform.Calls("DeleteUnit"), "zero unit ref is never sent to the platform")
}

func TestRollbackWithNothingCreated(t *testing.T) {
	platform := fake.New()

	New(platform).Rollback(context.Background(), types.UnitRef{}, types.TemplateRef{})

	assert.Equal(t, 0, platform.Calls("DeleteUnit"))
	assert.Equal(t, 0, platform.Calls("DeleteTemplate"))
}

func TestRollbackSwallowsDeleteFailures(t *testing.T) {
	platform := fake.New()
	unit, tpl := seedFailedGeneration(t, platform)
	platform.DeleteUnitErr = errors.New("platform unavailable")

	// Must not panic or abort; the template delete is still attempted
	// (and fails in-use because the unit survived).
	New(platform).Rollback(context.Background(), unit, tpl)

	assert.True(t, platform.HasUnit("web-abc123"))
	assert.Equal(t, 1, platform.Calls("DeleteTemplate"))
}

func TestRollbackIsIdempotent(t *testing.T) {
	platform := fake.New()
	unit, tpl := seedFailedGeneration(t, platform)

	mgr := New(platform)
	mgr.Rollback(context.Background(), unit, tpl)
	mgr.Rollback(context.Background(), unit, tpl)

	assert.False(t, platform.HasUnit("web-abc123"))
	assert.False(t, platform.HasTemplate("web-tpl-abc123"))
}

func TestRollbackLeavesOtherGenerationsAlone(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "xyz000", "web-backend", 2)
	unit, tpl := seedFailedGeneration(t, platform)

	New(platform).Rollback(context.Background(), unit, tpl)

	assert.True(t, platform.HasUnit("web-xyz000"), "serving generation untouched")
	assert.True(t, platform.HasTemplate("web-tpl-xyz000"))
	assert.Equal(t, []string{"web-xyz000"}, platform.BackendMembers("web-backend"))
}

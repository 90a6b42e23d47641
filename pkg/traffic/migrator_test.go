package traffic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadwise/cutover/pkg/driver/fake"
	"github.com/loadwise/cutover/pkg/types"
)

func newTestMigrator(t *testing.T, platform *fake.Platform, cfg Config) *Migrator {
	t.Helper()
	if cfg.Backend.Name == "" {
		cfg.Backend = types.BackendRef{Name: "web-backend"}
	}
	if cfg.DetachAttempts == 0 {
		cfg.DetachAttempts = 5
	}
	if cfg.DetachBackoff == 0 {
		cfg.DetachBackoff = time.Millisecond
	}
	migrator, err := New(platform, cfg)
	require.NoError(t, err)
	return migrator
}

// seedGenerations sets up the usual migration scene: an old generation
// serving on the backend and a new, not yet attached generation.
func seedGenerations(t *testing.T, platform *fake.Platform) (oldRef, newRef types.UnitRef) {
	t.Helper()
	oldRef = platform.SeedServing("web", "xyz000", "web-backend", 2)

	ctx := context.Background()
	tpl, err := platform.CreateTemplate(ctx, types.TemplateSpec{Name: "web-tpl-abc123"})
	require.NoError(t, err)
	newRef, err = platform.CreateUnit(ctx, types.UnitSpec{Name: "web-abc123", Template: tpl, Size: 2})
	require.NoError(t, err)
	return oldRef, newRef
}

func TestMigrateSwapsGenerations(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)

	migrator := newTestMigrator(t, platform, Config{
		Balancing: types.BalancingParams{MaxUtilization: 0.8},
	})

	result, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.NoError(t, err)

	assert.Equal(t, []types.UnitRef{oldRef}, result.Detached)
	assert.Empty(t, result.Unconfirmed)
	assert.Equal(t, []string{"web-abc123"}, platform.BackendMembers("web-backend"),
		"only the new generation serves after migration")

	params, ok := platform.Capacity("web-backend", "web-abc123")
	require.True(t, ok, "balancing parameters applied to the new member")
	assert.Equal(t, 0.8, params.MaxUtilization)
}

func TestMigrateAttachFailureIsFatal(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)
	platform.AttachErr = errors.New("backend capacity exhausted")

	migrator := newTestMigrator(t, platform, Config{})

	_, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttach)

	assert.Equal(t, 0, platform.Calls("DetachBackend"), "no stale unit is touched after a failed attach")
	assert.Equal(t, []string{"web-xyz000"}, platform.BackendMembers("web-backend"),
		"old generation keeps serving")
}

func TestMigrateNotifiesAttachBeforeWarmUpAndDrain(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)

	warmUp := 50 * time.Millisecond
	var notified []types.UnitRef
	var detachesAtNotify int
	var elapsedAtNotify time.Duration

	started := time.Now()
	migrator := newTestMigrator(t, platform, Config{
		WarmUp: warmUp,
		OnAttached: func(unit types.UnitRef) {
			notified = append(notified, unit)
			detachesAtNotify = platform.Calls("DetachBackend")
			elapsedAtNotify = time.Since(started)
		},
	})

	_, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.NoError(t, err)

	assert.Equal(t, []types.UnitRef{newRef}, notified, "notified once, with the new unit")
	assert.Equal(t, 0, detachesAtNotify, "notification comes before the drain")
	assert.Less(t, elapsedAtNotify, warmUp, "notification comes before the warm-up, not after it")
}

func TestMigrateNoNotifyWhenAttachFails(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)
	platform.AttachErr = errors.New("backend capacity exhausted")

	notified := false
	migrator := newTestMigrator(t, platform, Config{
		OnAttached: func(types.UnitRef) { notified = true },
	})

	_, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.ErrorIs(t, err, ErrAttach)
	assert.False(t, notified, "the attach never committed")
}

func TestMigrateCapacityFailureIsBestEffort(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)
	platform.CapacityErr = errors.New("balancer busy")

	migrator := newTestMigrator(t, platform, Config{
		Balancing: types.BalancingParams{CapacityScaler: 1.0},
	})

	result, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.NoError(t, err, "capacity tuning never fails a migration")
	assert.Equal(t, []types.UnitRef{oldRef}, result.Detached)
}

func TestMigrateUnconfirmedDetach(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)
	platform.StickyMembers[oldRef.Name] = true

	migrator := newTestMigrator(t, platform, Config{DetachAttempts: 3})

	result, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.NoError(t, err, "an unconfirmed detach does not fail the rollout")

	assert.Empty(t, result.Detached)
	assert.Equal(t, []types.UnitRef{oldRef}, result.Unconfirmed)
	assert.Equal(t, 3, platform.Calls("ListBackendUnits"), "confirmation stops at the attempt budget")
}

func TestMigrateNeverDetachesNewUnit(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)

	migrator := newTestMigrator(t, platform, Config{})

	// A stale set that wrongly includes the new unit itself.
	result, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{newRef, oldRef})
	require.NoError(t, err)

	assert.Equal(t, []types.UnitRef{oldRef}, result.Detached)
	assert.Contains(t, platform.BackendMembers("web-backend"), "web-abc123")
}

func TestMigrateMultipleStaleUnits(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)
	olderRef := platform.SeedServing("web", "aaa111", "web-backend", 1)

	migrator := newTestMigrator(t, platform, Config{})

	result, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef, olderRef})
	require.NoError(t, err)

	assert.Len(t, result.Detached, 2)
	assert.Equal(t, []string{"web-abc123"}, platform.BackendMembers("web-backend"))
}

func TestMigrateWarmUpDelaysDrain(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)

	warmUp := 50 * time.Millisecond
	migrator := newTestMigrator(t, platform, Config{WarmUp: warmUp})

	started := time.Now()
	_, err := migrator.Migrate(context.Background(), newRef, []types.UnitRef{oldRef})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(started), warmUp)
}

func TestMigrateCanceledDuringWarmUp(t *testing.T) {
	platform := fake.New()
	oldRef, newRef := seedGenerations(t, platform)

	migrator := newTestMigrator(t, platform, Config{WarmUp: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := migrator.Migrate(ctx, newRef, []types.UnitRef{oldRef})
	require.ErrorIs(t, err, context.Canceled)

	// Attach already happened; the stale unit was never drained.
	assert.ElementsMatch(t, []string{"web-abc123", "web-xyz000"}, platform.BackendMembers("web-backend"))
}

func TestNewValidation(t *testing.T) {
	platform := fake.New()

	_, err := New(platform, Config{DetachAttempts: 5, DetachBackoff: time.Second})
	assert.Error(t, err, "backend is required")

	_, err = New(platform, Config{Backend: types.BackendRef{Name: "b"}, DetachAttempts: 0, DetachBackoff: time.Second})
	assert.Error(t, err)

	_, err = New(platform, Config{Backend: types.BackendRef{Name: "b"}, DetachAttempts: 1, DetachBackoff: 0})
	assert.Error(t, err)
}

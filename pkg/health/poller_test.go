package health

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

func newTestPoller(t *testing.T, platform *fake.Platform, confirm bool) *Poller {
	t.Helper()
	poller, err := New(platform, Config{
		Timeout:        250 * time.Millisecond,
		Interval:       5 * time.Millisecond,
		ConfirmBackend: confirm,
	})
	require.NoError(t, err)
	return poller
}

func TestAwaitHealthyImmediate(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)

	poller := newTestPoller(t, platform, true)
	assert.NoError(t, poller.AwaitHealthy(context.Background(), ref, 2))
}

func TestAwaitHealthyConverges(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 3)
	platform.SetRunningAfter(ref.Name, 2)
	platform.SetHealthyAfter(ref.Name, 4)

	poller := newTestPoller(t, platform, true)
	assert.NoError(t, poller.AwaitHealthy(context.Background(), ref, 3))
}

func TestAwaitHealthyTimesOut(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)
	platform.MarkNeverHealthy(ref.Name)

	poller := newTestPoller(t, platform, true)
	err := poller.AwaitHealthy(context.Background(), ref, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "web-abc123")
}

func TestAwaitHealthyRejectsDisjointRunningAndHealthy(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)

	// One instance is running but failing its checks, the other passes its
	// checks but is still provisioning. Each gate counted alone would be
	// satisfied for size 1; no instance is actually ready to serve.
	platform.SetSnapshot(ref.Name,
		map[string]types.LifecycleState{
			"web-abc123-0": types.LifecycleRunning,
			"web-abc123-1": types.LifecycleProvisioning,
		},
		map[string]types.HealthState{
			"web-abc123-0": types.HealthUnhealthy,
			"web-abc123-1": types.HealthHealthy,
		})

	poller := newTestPoller(t, platform, true)
	err := poller.AwaitHealthy(context.Background(), ref, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAwaitHealthyWaitsForSurgeInstances(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)

	// The desired two instances are serving, but the autoscaler has added a
	// third that is still provisioning. Reaching size is not convergence:
	// every reported instance has to be serving-grade.
	platform.SetSnapshot(ref.Name,
		map[string]types.LifecycleState{
			"web-abc123-0": types.LifecycleRunning,
			"web-abc123-1": types.LifecycleRunning,
			"web-abc123-2": types.LifecycleProvisioning,
		},
		map[string]types.HealthState{
			"web-abc123-0": types.HealthHealthy,
			"web-abc123-1": types.HealthHealthy,
			"web-abc123-2": types.HealthHealthy,
		})

	poller := newTestPoller(t, platform, true)
	assert.ErrorIs(t, poller.AwaitHealthy(context.Background(), ref, 2), ErrTimeout)
}

func TestAwaitHealthyWaitsForBalancerVerdict(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)

	// Both instances run, but the balancer has not evaluated the second one
	// yet. A missing verdict is not a healthy verdict.
	platform.SetSnapshot(ref.Name,
		map[string]types.LifecycleState{
			"web-abc123-0": types.LifecycleRunning,
			"web-abc123-1": types.LifecycleRunning,
		},
		map[string]types.HealthState{
			"web-abc123-0": types.HealthHealthy,
		})

	poller := newTestPoller(t, platform, true)
	assert.ErrorIs(t, poller.AwaitHealthy(context.Background(), ref, 2), ErrTimeout)
}

func TestAwaitHealthyEmptyUnitNeverConverges(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 1)

	// A unit with no instances at all must not pass vacuously.
	platform.SetSnapshot(ref.Name,
		map[string]types.LifecycleState{},
		map[string]types.HealthState{})

	poller := newTestPoller(t, platform, true)
	assert.ErrorIs(t, poller.AwaitHealthy(context.Background(), ref, 1), ErrTimeout)
}

func TestAwaitHealthySkipsHealthGateWhenConfirmOff(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)
	platform.MarkNeverHealthy(ref.Name)

	// With backend confirmation off, running instances are enough even
	// though every health check reports unhealthy.
	poller := newTestPoller(t, platform, false)
	assert.NoError(t, poller.AwaitHealthy(context.Background(), ref, 2))
	assert.Equal(t, 0, platform.Calls("HealthStatuses"))
}

func TestAwaitHealthyToleratesReadErrors(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)
	platform.FailStatusReads(3, errors.New("api unavailable"))

	poller := newTestPoller(t, platform, true)
	assert.NoError(t, poller.AwaitHealthy(context.Background(), ref, 2),
		"transient read errors must not abort the wait")
}

func TestAwaitHealthyCancellation(t *testing.T) {
	platform := fake.New()
	ref := platform.SeedServing("web", "abc123", "web-backend", 2)
	platform.MarkNeverHealthy(ref.Name)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	poller, err := New(platform, Config{
		Timeout:        time.Minute,
		Interval:       5 * time.Millisecond,
		ConfirmBackend: true,
	})
	require.NoError(t, err)

	err = poller.AwaitHealthy(ctx, ref, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout, "cancellation is not a health timeout")
}

func TestNewValidation(t *testing.T) {
	platform := fake.New()

	_, err := New(platform, Config{Timeout: 0, Interval: time.Second})
	assert.Error(t, err)

	_, err = New(platform, Config{Timeout: time.Minute, Interval: 0})
	assert.Error(t, err)
}

package gc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadwise/cutover/pkg/driver/fake"
)

func TestCollectDeletesStaleGenerations(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 1)
	platform.SeedServing("web", "bbb222", "web-backend", 1)
	platform.SeedServing("web", "ccc333", "web-backend", 2)

	result, err := New(platform, "web").Collect(context.Background(), "ccc333")
	require.NoError(t, err)

	assert.Equal(t, []string{"web-aaa111", "web-bbb222"}, result.Units)
	assert.Equal(t, []string{"web-tpl-aaa111", "web-tpl-bbb222"}, result.Templates)

	assert.True(t, platform.HasUnit("web-ccc333"), "current generation survives")
	assert.True(t, platform.HasTemplate("web-tpl-ccc333"))
	assert.False(t, platform.HasUnit("web-aaa111"))
	assert.False(t, platform.HasTemplate("web-tpl-bbb222"))
}

func TestCollectIsIdempotent(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 1)
	platform.SeedServing("web", "bbb222", "web-backend", 1)

	collector := New(platform, "web")

	first, err := collector.Collect(context.Background(), "bbb222")
	require.NoError(t, err)
	assert.False(t, first.Empty())

	second, err := collector.Collect(context.Background(), "bbb222")
	require.NoError(t, err)
	assert.True(t, second.Empty(), "second pass finds nothing to delete")
}

func TestCollectSparesOtherServices(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 1)
	platform.SeedServing("api", "aaa111", "api-backend", 1)

	result, err := New(platform, "api").Collect(context.Background(), "zzz999")
	require.NoError(t, err)

	assert.Equal(t, []string{"api-aaa111"}, result.Units)
	assert.True(t, platform.HasUnit("web-aaa111"), "another service's unit is out of scope")
	assert.True(t, platform.HasTemplate("web-tpl-aaa111"))
}

func TestCollectSparesTemplateLikeNames(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "v2", "web-backend", 1)
	// Service web-tpl shares web's listing prefixes: its unit web-tpl-orphan
	// looks like one of web's templates, and its template web-tpl-tpl-orphan
	// shows up under web's template prefix. Neither belongs to web.
	platform.SeedServing("web-tpl", "orphan", "tpl-backend", 1)

	result, err := New(platform, "web").Collect(context.Background(), "v2")
	require.NoError(t, err)

	assert.True(t, result.Empty())
	assert.True(t, platform.HasUnit("web-tpl-orphan"))
	assert.True(t, platform.HasTemplate("web-tpl-tpl-orphan"))
	assert.Equal(t, 0, platform.Calls("DeleteUnit"))
	assert.Equal(t, 0, platform.Calls("DeleteTemplate"))
}

func TestCollectContinuesPastDeleteFailures(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 1)
	platform.SeedServing("web", "bbb222", "web-backend", 1)
	platform.DeleteUnitErr = errors.New("platform unavailable")

	collector := New(platform, "web")

	result, err := collector.Collect(context.Background(), "bbb222")
	require.NoError(t, err, "per-resource failures never abort the pass")
	assert.Empty(t, result.Units)
	assert.Empty(t, result.Templates, "in-use templates stay until their units go")
	assert.True(t, platform.HasUnit("web-aaa111"))

	// Once the platform recovers, the next pass finishes the job.
	platform.DeleteUnitErr = nil
	result, err = collector.Collect(context.Background(), "bbb222")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-aaa111"}, result.Units)
	assert.Equal(t, []string{"web-tpl-aaa111"}, result.Templates)
}

func TestCollectUnitsBeforeTemplates(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 1)
	platform.SeedServing("web", "bbb222", "web-backend", 1)

	// The fake refuses template deletes while a unit references the
	// template, so a clean sweep proves the ordering.
	result, err := New(platform, "web").Collect(context.Background(), "bbb222")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-tpl-aaa111"}, result.Templates)
}

func TestCollectWithNoStaleResources(t *testing.T) {
	platform := fake.New()
	platform.SeedServing("web", "aaa111", "web-backend", 2)

	result, err := New(platform, "web").Collect(context.Background(), "aaa111")
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, 0, platform.Calls("DeleteUnit"))
	assert.Equal(t, 0, platform.Calls("DeleteTemplate"))
}

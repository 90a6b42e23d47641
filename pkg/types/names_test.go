package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameDerivation(t *testing.T) {
	assert.Equal(t, "web-abc123", UnitName("web", "abc123"))
	assert.Equal(t, "web-tpl-abc123", TemplateName("web", "abc123"))
	assert.Equal(t, "web-", UnitPrefix("web"))
	assert.Equal(t, "web-tpl-", TemplatePrefix("web"))
}

func TestGenerationFromUnit(t *testing.T) {
	tests := []struct {
		name     string
		unitName string
		want     Generation
		ok       bool
	}{
		{"current unit", "web-abc123", "abc123", true},
		{"older unit", "web-xyz000", "xyz000", true},
		{"generation with dashes", "web-v1-2-3", "v1-2-3", true},
		{"template name is not a unit", "web-tpl-abc123", "", false},
		{"different service", "api-abc123", "", false},
		{"bare service name", "web-", "", false},
		{"unrelated name", "something", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GenerationFromUnit("web", tt.unitName)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerationFromTemplate(t *testing.T) {
	g, ok := GenerationFromTemplate("web", "web-tpl-abc123")
	assert.True(t, ok)
	assert.Equal(t, Generation("abc123"), g)

	_, ok = GenerationFromTemplate("web", "web-abc123")
	assert.False(t, ok)

	// Service web-tpl's template, not one of web's.
	_, ok = GenerationFromTemplate("web", "web-tpl-tpl-abc123")
	assert.False(t, ok)
}

func TestValidGeneration(t *testing.T) {
	tests := []struct {
		gen   Generation
		valid bool
	}{
		{"abc123", true},
		{"v1-2-3", true},
		{"7f3c2a9", true},
		{"a", true},
		{"tpl", true},
		{"", false},
		{"-abc", false},
		{"abc-", false},
		{"ABC123", false},
		{"ab_c", false},
		{"ab.c", false},
		// Reserved: web-tpl-abc would parse as a template of service web,
		// so neither rollback nor cleanup could ever find the unit again.
		{"tpl-abc", false},
		{"tpl-v1-2", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidGeneration(tt.gen), "generation %q", tt.gen)
	}
}

func TestBackendSetContains(t *testing.T) {
	set := BackendSet{
		Backend: BackendRef{Name: "web-backend"},
		Units:   []UnitRef{{Name: "web-abc123"}, {Name: "web-xyz000"}},
	}

	assert.True(t, set.Contains(UnitRef{Name: "web-abc123"}))
	assert.False(t, set.Contains(UnitRef{Name: "web-zzz999"}))
}

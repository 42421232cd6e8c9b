package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	nested := map[string]interface{}{
		"nav": map[string]interface{}{
			"dashboard": "Dashboard",
			"treasury": map[string]interface{}{
				"title": "Treasury",
			},
		},
		"count": 123,
	}

	flat := make(map[string]string)
	flatten("", nested, flat)

	assert.Equal(t, "Dashboard", flat["nav.dashboard"])
	assert.Equal(t, "Treasury", flat["nav.treasury.title"])
	assert.Equal(t, "123", flat["count"])
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		args     map[string]interface{}
		expected string
	}{
		{"No placeholders", "Hello World", nil, "Hello World"},
		{"Single placeholder", "Row {row}", map[string]interface{}{"row": 4}, "Row 4"},
		{"Multiple placeholders", "{count} of {total} imported", map[string]interface{}{"count": 3, "total": 5}, "3 of 5 imported"},
		{"Missing argument", "Hello {name}", map[string]interface{}{"other": "val"}, "Hello {name}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result string
			if tt.args == nil {
				result = format(tt.text)
			} else {
				result = format(tt.text, tt.args)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadAndTranslate(t *testing.T) {
	require.NoError(t, Load())

	assert.Contains(t, Supported(), "fr")
	assert.Contains(t, Supported(), "en")
	assert.True(t, IsSupported("en"))
	assert.False(t, IsSupported("de"))

	assert.Equal(t, "Tableau de bord", Translate("fr", "nav.dashboard"))
	assert.Equal(t, "Dashboard", Translate("en", "nav.dashboard"))

	// Unknown language falls back to French, unknown key to itself
	assert.Equal(t, "Tableau de bord", Translate("de", "nav.dashboard"))
	assert.Equal(t, "missing.key", Translate("en", "missing.key"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	require.NoError(t, Load())

	mutex.RLock()
	defer mutex.RUnlock()
	fr, en := translations["fr"], translations["en"]
	for k := range fr {
		_, ok := en[k]
		assert.True(t, ok, "en is missing %s", k)
	}
	for k := range en {
		_, ok := fr[k]
		assert.True(t, ok, "fr is missing %s", k)
	}
}

func TestGetLocale(t *testing.T) {
	assert.Equal(t, Default(), GetLocale(context.Background()))
	assert.Equal(t, "en", GetLocale(WithLocale(context.Background(), "en")))
	assert.Equal(t, Default(), GetLocale(WithLocale(context.Background(), "")))
}

func TestT(t *testing.T) {
	require.NoError(t, Load())
	ctx := WithLocale(context.Background(), "en")
	assert.Equal(t, "Row 7: name is required", T(ctx, "import.row_error", map[string]interface{}{"row": 7, "message": "name is required"}))
}

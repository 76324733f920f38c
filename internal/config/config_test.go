package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyAnalysisConfig()
	assert.Equal(t, 128, cfg.GetSamples())
	assert.Equal(t, 1.0, cfg.GetDia())
	assert.Equal(t, 0.5, cfg.GetWavelength())
	assert.Equal(t, "circle", cfg.GetMaskShape())
	assert.Equal(t, 1.0, cfg.GetMaskRadius())
	assert.Equal(t, 16, cfg.GetTerms())
	assert.Equal(t, "fringe", cfg.GetOrdering())
	assert.False(t, cfg.GetNormalize())
	assert.Equal(t, 10.0, cfg.GetEFL())
	assert.Equal(t, 2.0, cfg.GetQ())
}

func TestLoadAnalysisConfig(t *testing.T) {
	path := writeConfig(t, "analysis.json", `{
		"samples": 256,
		"wavelength_um": 0.6328,
		"terms": 36,
		"ordering": "noll",
		"normalize": true
	}`)

	cfg, err := LoadAnalysisConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.GetSamples())
	assert.InDelta(t, 0.6328, cfg.GetWavelength(), 1e-12)
	assert.Equal(t, 36, cfg.GetTerms())
	assert.Equal(t, "noll", cfg.GetOrdering())
	assert.True(t, cfg.GetNormalize())

	// Omitted fields fall back to defaults.
	assert.Equal(t, 1.0, cfg.GetDia())
	assert.Equal(t, 2.0, cfg.GetQ())
}

func TestLoadAnalysisConfigErrors(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		path := writeConfig(t, "analysis.yaml", "{}")
		_, err := LoadAnalysisConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := writeConfig(t, "bad.json", "{not json")
		_, err := LoadAnalysisConfig(path)
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "bad-values.json", `{"terms": 0}`)
		_, err := LoadAnalysisConfig(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  AnalysisConfig
		ok   bool
	}{
		{"empty is valid", AnalysisConfig{}, true},
		{"good samples", AnalysisConfig{Samples: ptrInt(64)}, true},
		{"one sample", AnalysisConfig{Samples: ptrInt(1)}, false},
		{"zero dia", AnalysisConfig{Dia: ptrFloat64(0)}, false},
		{"negative wavelength", AnalysisConfig{Wavelength: ptrFloat64(-0.5)}, false},
		{"zero terms", AnalysisConfig{Terms: ptrInt(0)}, false},
		{"bad ordering", AnalysisConfig{Ordering: ptrString("zemax")}, false},
		{"noll ordering", AnalysisConfig{Ordering: ptrString("noll")}, true},
		{"zero efl", AnalysisConfig{EFL: ptrFloat64(0)}, false},
		{"negative q", AnalysisConfig{Q: ptrFloat64(-2)}, false},
		{"zero mask radius", AnalysisConfig{MaskRadius: ptrFloat64(0)}, false},
		{"normalize flag", AnalysisConfig{Normalize: ptrBool(true)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// Package config loads analysis defaults from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AnalysisConfig holds the default optical prescription and fit
// settings applied when an API request omits a field. The schema
// matches the /api/zernike/fit request body so the same JSON works for
// both startup defaults and per-request overrides.
type AnalysisConfig struct {
	// Pupil params
	Samples    *int     `json:"samples,omitempty"`
	Dia        *float64 `json:"dia_mm,omitempty"`
	Wavelength *float64 `json:"wavelength_um,omitempty"`
	MaskShape  *string  `json:"mask_shape,omitempty"`
	MaskRadius *float64 `json:"mask_radius,omitempty"`

	// Fit params
	Terms     *int    `json:"terms,omitempty"`
	Ordering  *string `json:"ordering,omitempty"` // "fringe" or "noll"
	Normalize *bool   `json:"normalize,omitempty"`

	// Propagation params
	EFL *float64 `json:"efl_mm,omitempty"`
	Q   *float64 `json:"q,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to
// nil. Use LoadAnalysisConfig to load actual values from a file.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file fall back to the
// built-in defaults, so partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.Samples != nil && *c.Samples < 2 {
		return fmt.Errorf("samples must be at least 2, got %d", *c.Samples)
	}
	if c.Dia != nil && *c.Dia <= 0 {
		return fmt.Errorf("dia_mm must be positive, got %f", *c.Dia)
	}
	if c.Wavelength != nil && *c.Wavelength <= 0 {
		return fmt.Errorf("wavelength_um must be positive, got %f", *c.Wavelength)
	}
	if c.Terms != nil && *c.Terms < 1 {
		return fmt.Errorf("terms must be at least 1, got %d", *c.Terms)
	}
	if c.Ordering != nil {
		if *c.Ordering != "fringe" && *c.Ordering != "noll" {
			return fmt.Errorf("ordering must be \"fringe\" or \"noll\", got %q", *c.Ordering)
		}
	}
	if c.EFL != nil && *c.EFL <= 0 {
		return fmt.Errorf("efl_mm must be positive, got %f", *c.EFL)
	}
	if c.Q != nil && *c.Q <= 0 {
		return fmt.Errorf("q must be positive, got %f", *c.Q)
	}
	if c.MaskRadius != nil && *c.MaskRadius <= 0 {
		return fmt.Errorf("mask_radius must be positive, got %f", *c.MaskRadius)
	}
	return nil
}

// GetSamples returns the pupil grid size or the default.
func (c *AnalysisConfig) GetSamples() int {
	if c.Samples == nil {
		return 128
	}
	return *c.Samples
}

// GetDia returns the pupil diameter in mm or the default.
func (c *AnalysisConfig) GetDia() float64 {
	if c.Dia == nil {
		return 1.0
	}
	return *c.Dia
}

// GetWavelength returns the wavelength in µm or the default.
func (c *AnalysisConfig) GetWavelength() float64 {
	if c.Wavelength == nil {
		return 0.5
	}
	return *c.Wavelength
}

// GetMaskShape returns the aperture mask shape name or the default.
func (c *AnalysisConfig) GetMaskShape() string {
	if c.MaskShape == nil {
		return "circle"
	}
	return *c.MaskShape
}

// GetMaskRadius returns the mask radius in normalized units or the default.
func (c *AnalysisConfig) GetMaskRadius() float64 {
	if c.MaskRadius == nil {
		return 1.0
	}
	return *c.MaskRadius
}

// GetTerms returns the fit term count or the default.
func (c *AnalysisConfig) GetTerms() int {
	if c.Terms == nil {
		return 16
	}
	return *c.Terms
}

// GetOrdering returns the term ordering name or the default.
func (c *AnalysisConfig) GetOrdering() string {
	if c.Ordering == nil {
		return "fringe"
	}
	return *c.Ordering
}

// GetNormalize returns the RMS normalization flag or the default.
func (c *AnalysisConfig) GetNormalize() bool {
	if c.Normalize == nil {
		return false
	}
	return *c.Normalize
}

// GetEFL returns the effective focal length in mm or the default.
func (c *AnalysisConfig) GetEFL() float64 {
	if c.EFL == nil {
		return 10.0
	}
	return *c.EFL
}

// GetQ returns the PSF oversampling factor or the default.
func (c *AnalysisConfig) GetQ() float64 {
	if c.Q == nil {
		return 2.0
	}
	return *c.Q
}

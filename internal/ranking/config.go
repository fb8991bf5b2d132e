package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Limits bounds the size of ranking outcomes.
type Limits struct {
	TopN        int `json:"top_n"`       // Maximum ranked entries (default: 10)
	Suggestions int `json:"suggestions"` // Maximum suggestions (default: 5)
}

// LimitsConfig represents the JSON structure of the limits file.
type LimitsConfig struct {
	Version string `json:"version"` // Config version for future compatibility
	Limits  Limits `json:"limits"`
}

// DefaultLimits returns the default outcome limits.
func DefaultLimits() *Limits {
	return &Limits{
		TopN:        10,
		Suggestions: 5,
	}
}

// LoadLimits loads outcome limits from a JSON file.
// If the file doesn't exist or can't be parsed, returns default limits with an error.
// Partial configurations are merged with defaults.
func LoadLimits(filePath string) (*Limits, error) {
	if filePath == "" {
		return DefaultLimits(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read ranking limits file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultLimits(), fmt.Errorf("failed to read ranking limits file: %w", err)
	}

	var config LimitsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse ranking limits file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultLimits(), fmt.Errorf("failed to parse ranking limits file: %w", err)
	}

	defaults := DefaultLimits()
	merged := MergeLimits(defaults, &config.Limits)
	logLimitOverrides(defaults, merged)

	return merged, nil
}

// MergeLimits applies positive values from override onto base.
func MergeLimits(base *Limits, override *Limits) *Limits {
	if base == nil {
		return DefaultLimits()
	}

	result := *base
	if override == nil {
		return &result
	}

	if override.TopN > 0 {
		result.TopN = override.TopN
	}
	if override.Suggestions > 0 {
		result.Suggestions = override.Suggestions
	}
	return &result
}

func logLimitOverrides(defaults *Limits, loaded *Limits) {
	var overrides []string

	if loaded.TopN != defaults.TopN {
		overrides = append(overrides, fmt.Sprintf("top_n: %d -> %d", defaults.TopN, loaded.TopN))
	}
	if loaded.Suggestions != defaults.Suggestions {
		overrides = append(overrides, fmt.Sprintf("suggestions: %d -> %d", defaults.Suggestions, loaded.Suggestions))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking limits with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking limits (using all defaults)")
	}
}

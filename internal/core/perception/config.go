package perception

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/zeusync/perception/internal/core/systems/physics"
	"gopkg.in/yaml.v3"
)

// Config is the immutable per-sensor configuration.
type Config struct {
	// Radius of the broad-phase detection sphere.
	Radius float64 `json:"radius" yaml:"radius"`
	// FieldOfView is the half-angle in degrees measured from the forward axis.
	FieldOfView float64 `json:"fov" yaml:"fov"`
	// VerticalBand is how far above the sensor origin a target may sit.
	VerticalBand float64 `json:"height" yaml:"height"`
	// ScanFrequency in scans per second.
	ScanFrequency float64 `json:"scan_frequency" yaml:"scan_frequency"`

	DetectionMask physics.LayerMask `json:"detection_mask" yaml:"detection_mask"`
	OcclusionMask physics.LayerMask `json:"occlusion_mask" yaml:"occlusion_mask"`

	// MaxCandidates bounds the broad-phase buffer. Excess bodies are dropped.
	MaxCandidates   int  `json:"max_candidates" yaml:"max_candidates"`
	IncludeTriggers bool `json:"include_triggers" yaml:"include_triggers"`

	// EyeHeight lifts both ends of the occlusion segment off the ground.
	EyeHeight float64 `json:"eye_height" yaml:"eye_height"`
}

// DefaultConfig returns the stock guard sensor settings.
func DefaultConfig() Config {
	return Config{
		Radius:          10,
		FieldOfView:     30,
		VerticalBand:    1,
		ScanFrequency:   30,
		DetectionMask:   physics.AllLayers,
		OcclusionMask:   physics.NoLayers,
		MaxCandidates:   50,
		IncludeTriggers: true,
		EyeHeight:       2,
	}
}

// Interval is the time between scans in seconds.
func (c Config) Interval() float64 { return 1 / c.ScanFrequency }

// Validate reports every invalid field at once, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if !finite(c.Radius) || c.Radius <= 0 {
		errs = append(errs, fmt.Errorf("radius must be > 0, got %v", c.Radius))
	}
	if !finite(c.FieldOfView) || c.FieldOfView < 0 || c.FieldOfView > 180 {
		errs = append(errs, fmt.Errorf("fov must be within [0, 180], got %v", c.FieldOfView))
	}
	if !finite(c.VerticalBand) || c.VerticalBand < 0 {
		errs = append(errs, fmt.Errorf("height must be >= 0, got %v", c.VerticalBand))
	}
	if !finite(c.ScanFrequency) || c.ScanFrequency <= 0 {
		errs = append(errs, fmt.Errorf("scan_frequency must be > 0, got %v", c.ScanFrequency))
	}
	if c.MaxCandidates <= 0 {
		errs = append(errs, fmt.Errorf("max_candidates must be > 0, got %d", c.MaxCandidates))
	}
	if !finite(c.EyeHeight) || c.EyeHeight < 0 {
		errs = append(errs, fmt.Errorf("eye_height must be >= 0, got %v", c.EyeHeight))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// UnmarshalYAML fills fields missing from the document with DefaultConfig values.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	p := plain(DefaultConfig())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// LoadConfig decodes a YAML sensor config on top of DefaultConfig and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode sensor config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

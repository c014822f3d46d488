package perception

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0/30, cfg.Interval(), 1e-12)
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Config{
		Radius:        0,
		FieldOfView:   181,
		VerticalBand:  -1,
		ScanFrequency: 0,
		MaxCandidates: 0,
		EyeHeight:     -2,
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"radius", "fov", "height", "scan_frequency", "max_candidates", "eye_height"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	src := `
radius: 12.5
fov: 45
detection_mask: [2, 3]
occlusion_mask: 0x2
include_triggers: false
`
	cfg, err := LoadConfig(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.Radius)
	assert.Equal(t, 45.0, cfg.FieldOfView)
	assert.Equal(t, physics.MaskOf(layerEnemy, layerPickup), cfg.DetectionMask)
	assert.Equal(t, physics.MaskOf(layerWall), cfg.OcclusionMask)
	assert.False(t, cfg.IncludeTriggers)
	assert.Equal(t, 30.0, cfg.ScanFrequency)
	assert.Equal(t, 50, cfg.MaxCandidates)
	assert.Equal(t, 2.0, cfg.EyeHeight)
}

func TestLoadConfigEmptyInput(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("scan_frequency: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(strings.NewReader("detection_mask: [40]\n"))
	assert.ErrorIs(t, err, physics.ErrLayerOutOfRange)
}

package npc

import (
	"fmt"
	"time"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Params decoded from YAML arrive as int, from JSON as float64. These helpers
// accept both.

func paramString(params map[string]any, key, def string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return def
}

func paramBool(params map[string]any, key string, def bool) bool {
	if b, ok := params[key].(bool); ok {
		return b
	}
	return def
}

func paramFloat(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func paramInt(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func paramDuration(params map[string]any, key string) time.Duration {
	return time.Duration(paramFloat(params, key, 0) * float64(time.Millisecond))
}

func paramLayer(params map[string]any, key string) (physics.Layer, error) {
	if _, ok := params[key]; !ok {
		return 0, fmt.Errorf("%w: %q is required", ErrInvalidParams, key)
	}
	l := paramInt(params, key, -1)
	if l < 0 || l >= physics.MaxLayers {
		return 0, fmt.Errorf("%w: %q: %v: %w", ErrInvalidParams, key, params[key], physics.ErrLayerOutOfRange)
	}
	return physics.Layer(l), nil
}

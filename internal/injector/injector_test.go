package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/observability/log"
)

func TestInitializeRuntime(t *testing.T) {
	rt, err := InitializeRuntime("../core/scenario/testdata/courtyard.yaml", log.LevelSilent)
	require.NoError(t, err)
	assert.Len(t, rt.Sim.Agents, 2)
	assert.NotNil(t, rt.Events)
	assert.Zero(t, rt.Feed.Viewers())
}

func TestInitializeRuntimeMissingFile(t *testing.T) {
	_, err := InitializeRuntime("does-not-exist.yaml", log.LevelSilent)
	assert.Error(t, err)
}

//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/scenario"
)

// InitializeRuntime wires a runnable scenario from a scenario file.
func InitializeRuntime(path string, level log.Level) (*Runtime, error) {
	wire.Build(
		ProvideLogger,
		wire.Bind(new(log.Log), new(*log.Logger)),
		bus.New,
		scenario.LoadFile,
		ProvideSim,
		ProvideFeed,
		wire.Struct(new(Runtime), "*"),
	)
	return nil, nil
}

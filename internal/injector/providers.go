package injector

import (
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/scenario"
	"github.com/zeusync/perception/internal/debugviz"
)

// Runtime is everything cmd/perceptiond needs to run a scenario.
type Runtime struct {
	Logger *log.Logger
	Events bus.EventBus
	Sim    *scenario.Sim
	Feed   *debugviz.Feed
}

func ProvideLogger(level log.Level) *log.Logger {
	return log.New(level)
}

func ProvideSim(sc *scenario.Scenario, logger log.Log, eb bus.EventBus) (*scenario.Sim, error) {
	return sc.Build(logger, eb)
}

// ProvideFeed builds the debug feed. Viewers receive the wedge mesh of every
// agent on connect.
func ProvideFeed(logger log.Log, sim *scenario.Sim) *debugviz.Feed {
	wedges := make(map[string]debugviz.Mesh, len(sim.Agents))
	for _, a := range sim.Agents {
		wedges[a.ID] = debugviz.Wedge(a.Sensor.Config(), debugviz.DefaultSegments)
	}
	return debugviz.NewFeed(
		debugviz.WithFeedLogger(logger.With(log.String("component", "debugviz"))),
		debugviz.WithInit(wedges),
	)
}

package scenario

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/npc"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

// Host is the transform of an agent: the position of its body and a forward
// axis that may turn over time.
type Host struct {
	body     *physics.WorldBody
	turnRate float64

	mu      sync.RWMutex
	forward physics.Vec3
}

func (h *Host) Position() physics.Vec3 { return h.body.Position() }

func (h *Host) Forward() physics.Vec3 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.forward
}

func (h *Host) Body() *physics.WorldBody { return h.body }

func (h *Host) turn(dt float64) {
	if h.turnRate == 0 {
		return
	}
	h.mu.Lock()
	h.forward = h.forward.RotateY(h.turnRate * dt)
	h.mu.Unlock()
}

// AgentRuntime is one built agent. Agent is nil when the scenario gives no
// behavior; its sensor is then ticked by the perception System.
type AgentRuntime struct {
	ID     string
	Host   *Host
	Sensor *perception.Sensor
	Agent  npc.Agent
}

type mover struct {
	id       physics.BodyID
	velocity physics.Vec3
}

// Sim is a running scenario.
type Sim struct {
	Name   string
	World  *physics.World
	System *perception.System
	Events bus.EventBus
	Agents []*AgentRuntime

	movers []mover
	logger log.Log
	steps  uint64
	time   float64
}

// Build spawns the world and one sensor per agent. Sensor events go to eb.
func (s *Scenario) Build(logger log.Log, eb bus.EventBus) (*Sim, error) {
	if logger == nil {
		logger = log.Provide()
	}
	if eb == nil {
		eb = bus.New()
	}

	var worldOpts []physics.WorldOption
	if s.World.CellSize > 0 {
		worldOpts = append(worldOpts, physics.WithCellSize(s.World.CellSize))
	}
	sim := &Sim{
		Name:   s.Name,
		World:  physics.NewWorld(worldOpts...),
		System: perception.NewSystem(perception.WithSystemLogger(logger)),
		Events: eb,
		logger: logger.With(log.String("scenario", s.Name)),
	}

	for _, o := range s.World.Obstacles {
		if err := sim.World.AddObstacle(o); err != nil {
			return nil, err
		}
	}
	for _, def := range s.World.Bodies {
		b, err := sim.World.Spawn(def.BodySpec)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", def.Name, err)
		}
		if def.Velocity.LenSq() > 0 {
			sim.movers = append(sim.movers, mover{id: b.ID(), velocity: def.Velocity})
		}
	}

	for _, def := range s.Agents {
		rt, err := sim.buildAgent(def, logger)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.ID, err)
		}
		sim.Agents = append(sim.Agents, rt)
	}

	sim.logger.Info("scenario built",
		log.Int("bodies", sim.World.Len()),
		log.Int("obstacles", len(s.World.Obstacles)),
		log.Int("agents", len(sim.Agents)),
	)
	return sim, nil
}

func (sim *Sim) buildAgent(def AgentDef, logger log.Log) (*AgentRuntime, error) {
	body, err := sim.World.Spawn(physics.BodySpec{
		Name:     def.ID,
		Layer:    def.Layer,
		Position: def.Position,
		Radius:   def.radius(),
	})
	if err != nil {
		return nil, err
	}
	host := &Host{body: body, turnRate: def.TurnRate, forward: def.forward()}

	sensor, err := perception.New(def.sensorConfig(), sim.World, host,
		perception.WithID(def.ID),
		perception.WithSelf(body.ID()),
		perception.WithLogger(logger),
		perception.WithEventBus(sim.Events),
	)
	if err != nil {
		return nil, err
	}
	rt := &AgentRuntime{ID: def.ID, Host: host, Sensor: sensor}

	if def.Behavior == nil {
		return rt, sim.System.Add(sensor)
	}

	reg := npc.NewRegistry()
	npc.RegisterBuiltins(reg)
	npc.RegisterVision(reg, sensor)

	// the agent always owns exactly one vision sensor, placed first
	cfg := *def.Behavior
	cfg.Sensors = slices.DeleteFunc(slices.Clone(cfg.Sensors), func(cs npc.ConfigSensor) bool {
		return cs.Type == "VisionSensor"
	})
	tree, extra, err := cfg.Build(reg)
	if err != nil {
		return nil, err
	}
	sensors := append([]npc.Sensor{npc.NewVisionSensor(sensor)}, extra...)
	rt.Agent = npc.NewAgent(def.ID, tree, sensors,
		npc.WithEventBus(sim.Events),
		npc.WithAgentLogger(logger),
	)
	return rt, nil
}

// Agent returns the runtime with the given id.
func (sim *Sim) Agent(id string) (*AgentRuntime, bool) {
	for _, a := range sim.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Step advances the simulation by dt seconds: movers and hosts move first,
// then sensors scan and behavior trees run.
func (sim *Sim) Step(ctx context.Context, dt float64) error {
	for _, m := range sim.movers {
		b, ok := sim.World.Get(m.id)
		if !ok {
			continue
		}
		if err := sim.World.Move(m.id, b.Position().Add(m.velocity.Scale(dt))); err != nil {
			return err
		}
	}
	for _, a := range sim.Agents {
		a.Host.turn(dt)
	}

	if _, err := sim.System.Tick(ctx, dt); err != nil {
		return err
	}
	for _, a := range sim.Agents {
		if a.Agent == nil {
			continue
		}
		if _, err := a.Agent.Step(ctx, dt); err != nil {
			sim.logger.Warn("agent step failed", log.String("agent", a.ID), log.Error(err))
		}
	}

	sim.steps++
	sim.time += dt
	return nil
}

func (sim *Sim) Steps() uint64 { return sim.steps }

// Elapsed is the simulated time in seconds.
func (sim *Sim) Elapsed() float64 { return sim.time }

package npc

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
)

// EventStep is published after every agent step when anyone listens. Data is
// the DecisionRecord.
const EventStep = "npc.step"

type agent struct {
	id      string
	bb      Blackboard
	mem     Memory
	events  bus.EventBus
	tree    DecisionTree
	sensors []Sensor
	clock   func() time.Time
	logger  log.Log
}

type AgentOption func(*agent)

func WithBlackboard(bb Blackboard) AgentOption { return func(a *agent) { a.bb = bb } }

func WithMemory(mem Memory) AgentOption { return func(a *agent) { a.mem = mem } }

func WithEventBus(eb bus.EventBus) AgentOption { return func(a *agent) { a.events = eb } }

func WithClock(clock func() time.Time) AgentOption { return func(a *agent) { a.clock = clock } }

func WithAgentLogger(l log.Log) AgentOption { return func(a *agent) { a.logger = l } }

// NewAgent assembles an agent. Missing components get in-memory defaults.
func NewAgent(id string, tree DecisionTree, sensors []Sensor, opts ...AgentOption) Agent {
	a := &agent{id: id, tree: tree, sensors: sensors}
	for _, opt := range opts {
		opt(a)
	}
	if a.tree == nil {
		a.tree = Tree{}
	}
	if a.bb == nil {
		a.bb = NewBlackboard()
	}
	if a.mem == nil {
		a.mem = NewMemory(DefaultMemoryLimit)
	}
	if a.events == nil {
		a.events = bus.New()
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	if a.logger == nil {
		a.logger = log.Provide()
	}
	a.logger = a.logger.With(log.String("agent", id))
	return a
}

func (a *agent) ID() string             { return a.id }
func (a *agent) Blackboard() Blackboard { return a.bb }
func (a *agent) Memory() Memory         { return a.mem }
func (a *agent) Events() bus.EventBus   { return a.events }

func (a *agent) Step(ctx context.Context, dt float64) (Status, error) {
	for _, s := range a.sensors {
		if err := s.Update(ctx, dt, a.bb); err != nil {
			return StatusFailure, fmt.Errorf("sensor %s: %w", s.Name(), err)
		}
	}

	tc := TickContext{Ctx: ctx, BB: a.bb, Memory: a.mem, Clock: a.clock, DT: dt}
	start := a.clock()
	st, err := a.tree.Tick(tc)
	end := a.clock()

	rec := DecisionRecord{Status: st, Duration: end.Sub(start), Timestamp: end}
	if root := a.tree.Root(); root != nil {
		rec.Node = root.Name()
	}
	a.mem.AppendDecision(rec)

	if err != nil {
		a.logger.Warn("behavior tree failed", log.String("node", rec.Node), log.Error(err))
	}
	if a.events.HasSubscribers(EventStep) {
		if perr := a.events.Publish(bus.NewEvent(EventStep, a.id, rec, nil)); perr != nil {
			a.logger.Warn("step handler failed", log.Error(perr))
		}
	}
	return st, err
}

type agentState struct{ BB, Mem []byte }

func (a *agent) SaveState() ([]byte, error) {
	bbBytes, err := a.bb.MarshalBinary()
	if err != nil {
		return nil, err
	}
	memBytes, err := a.mem.Save()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(agentState{BB: bbBytes, Mem: memBytes}); err != nil {
		return nil, fmt.Errorf("encode agent state: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *agent) LoadState(b []byte) error {
	var state agentState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&state); err != nil {
		return fmt.Errorf("decode agent state: %w", err)
	}
	if len(state.BB) > 0 {
		if err := a.bb.UnmarshalBinary(state.BB); err != nil {
			return err
		}
	}
	if len(state.Mem) > 0 {
		if err := a.mem.Load(state.Mem); err != nil {
			return err
		}
	}
	return nil
}

// BuildAgent builds the tree and sensors described by cfg and assembles an agent.
func BuildAgent(id string, cfg *Config, reg Registry, opts ...AgentOption) (Agent, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	tree, sensors, err := cfg.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	return NewAgent(id, tree, sensors, opts...), nil
}

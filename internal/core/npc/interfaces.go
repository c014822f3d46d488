package npc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zeusync/perception/internal/core/events/bus"
)

// Status represents the execution result of a behavior node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Blackboard is a centralized, thread-safe storage for agent state and shared data.
// It supports namespaced keys and binary persistence.
type Blackboard interface {
	// Get retrieves a value by key. Returns (nil, false) if absent.
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	// Namespace returns a view whose keys are stored as "ns:key".
	Namespace(ns string) Blackboard
	// Keys returns the sorted keys visible through this view.
	Keys() []string
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(b []byte) error
}

// Memory keeps a bounded history of decisions.
type Memory interface {
	AppendDecision(rec DecisionRecord)
	// History returns a copy, oldest first.
	History() []DecisionRecord
	Reset()
	Save() ([]byte, error)
	Load(b []byte) error
}

// TickContext is passed into nodes during Tick.
type TickContext struct {
	Ctx    context.Context
	BB     Blackboard
	Memory Memory
	Clock  func() time.Time
	// DT is the simulation step in seconds.
	DT float64
}

// BehaviorNode is the fundamental interface for behavior tree nodes.
// Per-agent state belongs in the Blackboard, never in the node.
type BehaviorNode interface {
	Tick(t TickContext) (Status, error)
	Name() string
}

type Action interface {
	BehaviorNode
}

type Condition interface {
	BehaviorNode
}

// Decorator wraps a single child node.
type Decorator interface {
	BehaviorNode
	SetChild(child BehaviorNode)
}

// Composite manages multiple children.
type Composite interface {
	BehaviorNode
	SetChildren(children ...BehaviorNode)
}

// Sensor pulls data from the world into the Blackboard once per agent step.
type Sensor interface {
	Name() string
	Update(ctx context.Context, dt float64, bb Blackboard) error
}

type DecisionTree interface {
	Root() BehaviorNode
	Tick(t TickContext) (Status, error)
}

type (
	ActionFactory    func(params map[string]any) (Action, error)
	ConditionFactory func(params map[string]any) (Condition, error)
	DecoratorFactory func(params map[string]any) (Decorator, error)
	CompositeFactory func(params map[string]any) (Composite, error)
	SensorFactory    func(params map[string]any) (Sensor, error)
)

// Registry maps configuration names to node and sensor factories.
type Registry interface {
	RegisterAction(name string, factory ActionFactory)
	RegisterCondition(name string, factory ConditionFactory)
	RegisterDecorator(name string, factory DecoratorFactory)
	RegisterComposite(name string, factory CompositeFactory)
	RegisterSensor(name string, factory SensorFactory)

	NewAction(name string, params map[string]any) (Action, error)
	NewCondition(name string, params map[string]any) (Condition, error)
	NewDecorator(name string, params map[string]any) (Decorator, error)
	NewComposite(name string, params map[string]any) (Composite, error)
	NewSensor(name string, params map[string]any) (Sensor, error)
}

// Agent coordinates sensors, decision tree, memory, blackboard and events.
type Agent interface {
	ID() string
	// Step performs one cycle: sensors -> tree -> history.
	Step(ctx context.Context, dt float64) (Status, error)
	Blackboard() Blackboard
	Memory() Memory
	Events() bus.EventBus
	// SaveState returns a binary snapshot of blackboard and memory.
	SaveState() ([]byte, error)
	LoadState(b []byte) error
}

// DecisionRecord is one entry of the decision history.
type DecisionRecord struct {
	Node      string          `json:"node"`
	Status    Status          `json:"status"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"ts"`
	Metadata  json.RawMessage `json:"meta,omitempty"`
}

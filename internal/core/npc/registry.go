package npc

import (
	"fmt"
	"sync"
)

type factories[F any] struct {
	kind string
	m    map[string]F
}

func newFactories[F any](kind string) factories[F] {
	return factories[F]{kind: kind, m: make(map[string]F)}
}

func (f factories[F]) lookup(name string) (F, error) {
	fn, ok := f.m[name]
	if !ok {
		return fn, fmt.Errorf("%w: %s %q", ErrUnknownFactory, f.kind, name)
	}
	return fn, nil
}

// reg is an in-memory registry for plug-and-play modules.
type reg struct {
	mu    sync.RWMutex
	acts  factories[ActionFactory]
	conds factories[ConditionFactory]
	decos factories[DecoratorFactory]
	comps factories[CompositeFactory]
	sens  factories[SensorFactory]
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &reg{
		acts:  newFactories[ActionFactory]("action"),
		conds: newFactories[ConditionFactory]("condition"),
		decos: newFactories[DecoratorFactory]("decorator"),
		comps: newFactories[CompositeFactory]("composite"),
		sens:  newFactories[SensorFactory]("sensor"),
	}
}

func (r *reg) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	r.acts.m[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterCondition(name string, factory ConditionFactory) {
	r.mu.Lock()
	r.conds.m[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterDecorator(name string, factory DecoratorFactory) {
	r.mu.Lock()
	r.decos.m[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterComposite(name string, factory CompositeFactory) {
	r.mu.Lock()
	r.comps.m[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterSensor(name string, factory SensorFactory) {
	r.mu.Lock()
	r.sens.m[name] = factory
	r.mu.Unlock()
}

func (r *reg) NewAction(name string, params map[string]any) (Action, error) {
	r.mu.RLock()
	f, err := r.acts.lookup(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f(params)
}

func (r *reg) NewCondition(name string, params map[string]any) (Condition, error) {
	r.mu.RLock()
	f, err := r.conds.lookup(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f(params)
}

func (r *reg) NewDecorator(name string, params map[string]any) (Decorator, error) {
	r.mu.RLock()
	f, err := r.decos.lookup(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f(params)
}

func (r *reg) NewComposite(name string, params map[string]any) (Composite, error) {
	r.mu.RLock()
	f, err := r.comps.lookup(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f(params)
}

func (r *reg) NewSensor(name string, params map[string]any) (Sensor, error) {
	r.mu.RLock()
	f, err := r.sens.lookup(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f(params)
}

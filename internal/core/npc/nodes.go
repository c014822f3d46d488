package npc

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type baseNode struct{ name string }

func (b baseNode) Name() string { return b.name }

// ActionFunc wraps a function as an Action node.
type ActionFunc struct {
	baseNode
	Fn func(t TickContext) (Status, error)
}

func NewActionFunc(name string, fn func(t TickContext) (Status, error)) ActionFunc {
	return ActionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (a ActionFunc) Tick(t TickContext) (Status, error) { return a.Fn(t) }

// ConditionFunc wraps a predicate as a Condition node.
type ConditionFunc struct {
	baseNode
	Fn func(t TickContext) (bool, error)
}

func NewConditionFunc(name string, fn func(t TickContext) (bool, error)) ConditionFunc {
	return ConditionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (c ConditionFunc) Tick(t TickContext) (Status, error) {
	ok, err := c.Fn(t)
	if err != nil {
		return StatusFailure, err
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Sequence runs children until one fails or is running.
type Sequence struct {
	baseNode
	children []BehaviorNode
}

func NewSequence(name string, children ...BehaviorNode) *Sequence {
	return &Sequence{baseNode: baseNode{name: name}, children: children}
}

func (s *Sequence) SetChildren(children ...BehaviorNode) { s.children = children }

func (s *Sequence) Tick(t TickContext) (Status, error) {
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			return StatusFailure, fmt.Errorf("%s: %w", ch.Name(), err)
		}
		if st != StatusSuccess {
			return st, nil
		}
	}
	return StatusSuccess, nil
}

// Selector runs children until one succeeds or is running.
type Selector struct {
	baseNode
	children []BehaviorNode
}

func NewSelector(name string, children ...BehaviorNode) *Selector {
	return &Selector{baseNode: baseNode{name: name}, children: children}
}

func (s *Selector) SetChildren(children ...BehaviorNode) { s.children = children }

func (s *Selector) Tick(t TickContext) (Status, error) {
	var errs error
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
		if st == StatusSuccess || st == StatusRunning {
			return st, errs
		}
	}
	return StatusFailure, errs
}

type ParallelPolicy int

const (
	ParallelRequireAllSuccess ParallelPolicy = iota
	ParallelRequireOneSuccess
)

// Parallel ticks every child and aggregates by policy.
type Parallel struct {
	baseNode
	children []BehaviorNode
	policy   ParallelPolicy
}

func NewParallel(name string, policy ParallelPolicy, children ...BehaviorNode) *Parallel {
	return &Parallel{baseNode: baseNode{name: name}, policy: policy, children: children}
}

func (p *Parallel) SetChildren(children ...BehaviorNode) { p.children = children }

func (p *Parallel) Tick(t TickContext) (Status, error) {
	if len(p.children) == 0 {
		return StatusSuccess, nil
	}
	successes := 0
	running := false
	var errs error
	for _, ch := range p.children {
		st, err := ch.Tick(t)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
		switch st {
		case StatusSuccess:
			successes++
		case StatusRunning:
			running = true
		}
	}

	need := len(p.children)
	if p.policy == ParallelRequireOneSuccess {
		need = 1
	}
	switch {
	case successes >= need:
		return StatusSuccess, errs
	case running:
		return StatusRunning, errs
	default:
		return StatusFailure, errs
	}
}

// Repeat ticks its child up to Times times within one tick.
type Repeat struct {
	baseNode
	child         BehaviorNode
	Times         int
	StopOnFailure bool
}

func NewRepeat(name string, times int, stopOnFailure bool) *Repeat {
	return &Repeat{baseNode: baseNode{name: name}, Times: times, StopOnFailure: stopOnFailure}
}

func (r *Repeat) SetChild(child BehaviorNode) { r.child = child }

func (r *Repeat) Tick(t TickContext) (Status, error) {
	if r.child == nil {
		return StatusFailure, fmt.Errorf("repeat %s: %w", r.name, ErrNilChild)
	}
	for i := 0; i < r.Times; i++ {
		st, err := r.child.Tick(t)
		if err != nil {
			return StatusFailure, err
		}
		if st == StatusRunning {
			return StatusRunning, nil
		}
		if st == StatusFailure && r.StopOnFailure {
			return StatusFailure, nil
		}
	}
	return StatusSuccess, nil
}

// Inverter swaps success and failure.
type Inverter struct {
	baseNode
	child BehaviorNode
}

func NewInverter(name string) *Inverter { return &Inverter{baseNode: baseNode{name: name}} }

func (i *Inverter) SetChild(child BehaviorNode) { i.child = child }

func (i *Inverter) Tick(t TickContext) (Status, error) {
	if i.child == nil {
		return StatusFailure, fmt.Errorf("inverter %s: %w", i.name, ErrNilChild)
	}
	st, err := i.child.Tick(t)
	switch st {
	case StatusSuccess:
		return StatusFailure, err
	case StatusFailure:
		return StatusSuccess, err
	default:
		return st, err
	}
}

// Timer returns Running until Duration of simulated time has passed, then
// ticks its child once and re-arms. Elapsed time lives in the blackboard
// under "<name>.elapsed".
type Timer struct {
	baseNode
	child    BehaviorNode
	Duration time.Duration
}

func NewTimer(name string, d time.Duration) *Timer {
	return &Timer{baseNode: baseNode{name: name}, Duration: d}
}

func (d *Timer) SetChild(child BehaviorNode) { d.child = child }

func (d *Timer) Tick(t TickContext) (Status, error) {
	if d.child == nil {
		return StatusFailure, fmt.Errorf("timer %s: %w", d.name, ErrNilChild)
	}
	key := d.name + ".elapsed"
	elapsed := 0.0
	if v, ok := t.BB.Get(key); ok {
		elapsed, _ = v.(float64)
	}
	elapsed += t.DT
	if elapsed < d.Duration.Seconds() {
		t.BB.Set(key, elapsed)
		return StatusRunning, nil
	}
	t.BB.Delete(key)
	return d.child.Tick(t)
}

// Probability ticks its child with chance P and fails otherwise.
type Probability struct {
	baseNode
	child BehaviorNode
	P     float64
	rand  *rand.Rand
}

func NewProbability(name string, p float64, src rand.Source) *Probability {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Probability{baseNode: baseNode{name: name}, P: p, rand: rand.New(src)}
}

func (p *Probability) SetChild(child BehaviorNode) { p.child = child }

func (p *Probability) Tick(t TickContext) (Status, error) {
	if p.child == nil {
		return StatusFailure, fmt.Errorf("probability %s: %w", p.name, ErrNilChild)
	}
	switch {
	case p.P <= 0:
		return StatusFailure, nil
	case p.P >= 1, p.rand.Float64() < p.P:
		return p.child.Tick(t)
	default:
		return StatusFailure, nil
	}
}

// Tree is a DecisionTree with a single root. A nil root always succeeds.
type Tree struct{ root BehaviorNode }

func NewTree(root BehaviorNode) Tree { return Tree{root: root} }

func (t Tree) Root() BehaviorNode { return t.root }

func (t Tree) Tick(tc TickContext) (Status, error) {
	if t.root == nil {
		return StatusSuccess, nil
	}
	return t.root.Tick(tc)
}

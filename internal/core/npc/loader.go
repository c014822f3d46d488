package npc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes a behavior tree and its sensors in JSON or YAML. Nodes are
// referenced by name and instantiated through a Registry.
type Config struct {
	Root    string                `json:"root" yaml:"root"`
	Nodes   map[string]ConfigNode `json:"nodes" yaml:"nodes"`
	Sensors []ConfigSensor        `json:"sensors" yaml:"sensors"`
}

type ConfigSensor struct {
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params" yaml:"params"`
}

type ConfigNode struct {
	Type      string         `json:"type" yaml:"type"`
	Children  []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Child     string         `json:"child,omitempty" yaml:"child,omitempty"`
	Action    string         `json:"action,omitempty" yaml:"action,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Decorator string         `json:"decorator,omitempty" yaml:"decorator,omitempty"`
	Composite string         `json:"composite,omitempty" yaml:"composite,omitempty"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode behavior json: %w", err)
	}
	return &c, nil
}

func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode behavior yaml: %w", err)
	}
	return &c, nil
}

// Build constructs the decision tree and sensors using reg. Nodes referenced
// more than once are shared; cycles are rejected.
func (c *Config) Build(reg Registry) (DecisionTree, []Sensor, error) {
	b := treeBuilder{cfg: c, reg: reg, created: make(map[string]BehaviorNode), visiting: make(map[string]bool)}

	var tree Tree
	if c.Root != "" {
		root, err := b.node(c.Root)
		if err != nil {
			return nil, nil, err
		}
		tree = NewTree(root)
	}

	sensors := make([]Sensor, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		sen, err := reg.NewSensor(s.Type, s.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		sensors = append(sensors, sen)
	}
	return tree, sensors, nil
}

type treeBuilder struct {
	cfg      *Config
	reg      Registry
	created  map[string]BehaviorNode
	visiting map[string]bool
}

func (b *treeBuilder) node(name string) (BehaviorNode, error) {
	if n, ok := b.created[name]; ok {
		return n, nil
	}
	nc, ok := b.cfg.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("%w: cycle through %s", ErrUnknownNode, name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	var (
		n   BehaviorNode
		err error
	)
	switch strings.ToLower(nc.Type) {
	case "sequence":
		n, err = b.composite(NewSequence(name), nc)
	case "selector":
		n, err = b.composite(NewSelector(name), nc)
	case "parallel":
		policy := ParallelRequireAllSuccess
		if p := paramString(nc.Params, "policy", "all"); p == "one" || p == "any" {
			policy = ParallelRequireOneSuccess
		}
		n, err = b.composite(NewParallel(name, policy), nc)
	case "composite":
		var comp Composite
		if comp, err = b.reg.NewComposite(nc.Composite, nc.Params); err == nil {
			n, err = b.composite(comp, nc)
		}
	case "decorator":
		n, err = b.decorator(nc)
	case "action":
		n, err = b.reg.NewAction(nc.Action, nc.Params)
	case "condition":
		n, err = b.reg.NewCondition(nc.Condition, nc.Params)
	default:
		err = fmt.Errorf("unsupported node type %q", nc.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	b.created[name] = n
	return n, nil
}

func (b *treeBuilder) composite(comp Composite, nc ConfigNode) (BehaviorNode, error) {
	children := make([]BehaviorNode, 0, len(nc.Children))
	for _, chname := range nc.Children {
		ch, err := b.node(chname)
		if err != nil {
			return nil, err
		}
		children = append(children, ch)
	}
	comp.SetChildren(children...)
	return comp, nil
}

func (b *treeBuilder) decorator(nc ConfigNode) (BehaviorNode, error) {
	kind := nc.Decorator
	if kind == "" {
		kind = paramString(nc.Params, "name", "")
	}
	dec, err := b.reg.NewDecorator(kind, nc.Params)
	if err != nil {
		return nil, err
	}
	if nc.Child == "" {
		return nil, fmt.Errorf("decorator %s: %w", kind, ErrNilChild)
	}
	ch, err := b.node(nc.Child)
	if err != nil {
		return nil, err
	}
	dec.SetChild(ch)
	return dec, nil
}

// RegisterBuiltins registers the generic blackboard nodes and decorators.
func RegisterBuiltins(r Registry) {
	r.RegisterCondition("IsTrue", func(params map[string]any) (Condition, error) {
		key := paramString(params, "key", "")
		if key == "" {
			return nil, fmt.Errorf("%w: IsTrue requires 'key'", ErrInvalidParams)
		}
		return NewConditionFunc("IsTrue("+key+")", func(t TickContext) (bool, error) {
			v, ok := t.BB.Get(key)
			b, isBool := v.(bool)
			return ok && isBool && b, nil
		}), nil
	})
	r.RegisterCondition("HasKey", func(params map[string]any) (Condition, error) {
		key := paramString(params, "key", "")
		if key == "" {
			return nil, fmt.Errorf("%w: HasKey requires 'key'", ErrInvalidParams)
		}
		return NewConditionFunc("HasKey("+key+")", func(t TickContext) (bool, error) {
			_, ok := t.BB.Get(key)
			return ok, nil
		}), nil
	})
	r.RegisterAction("SetBool", func(params map[string]any) (Action, error) {
		key := paramString(params, "key", "")
		if key == "" {
			return nil, fmt.Errorf("%w: SetBool requires 'key'", ErrInvalidParams)
		}
		val := paramBool(params, "value", false)
		return NewActionFunc("SetBool("+key+")", func(t TickContext) (Status, error) {
			t.BB.Set(key, val)
			return StatusSuccess, nil
		}), nil
	})
	r.RegisterAction("Noop", func(map[string]any) (Action, error) {
		return NewActionFunc("Noop", func(TickContext) (Status, error) { return StatusSuccess, nil }), nil
	})

	r.RegisterDecorator("Repeat", func(params map[string]any) (Decorator, error) {
		return NewRepeat("Repeat", paramInt(params, "times", 1), paramBool(params, "stop_on_failure", false)), nil
	})
	r.RegisterDecorator("Timer", func(params map[string]any) (Decorator, error) {
		return NewTimer(paramString(params, "id", "Timer"), paramDuration(params, "ms")), nil
	})
	r.RegisterDecorator("Inverter", func(map[string]any) (Decorator, error) {
		return NewInverter("Inverter"), nil
	})
	r.RegisterDecorator("Probability", func(params map[string]any) (Decorator, error) {
		return NewProbability("Probability", paramFloat(params, "p", 0.5), nil), nil
	})
}

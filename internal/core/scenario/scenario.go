// Package scenario loads YAML descriptions of a world with perceiving agents
// and runs them in a fixed-step loop.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeusync/perception/internal/core/npc"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("invalid scenario")

const defaultAgentRadius = 0.5

type Scenario struct {
	Name   string     `yaml:"name"`
	World  WorldDef   `yaml:"world"`
	Agents []AgentDef `yaml:"agents"`
}

type WorldDef struct {
	CellSize  float64            `yaml:"cell_size"`
	Bodies    []BodyDef          `yaml:"bodies"`
	Obstacles []physics.Obstacle `yaml:"obstacles"`
}

// BodyDef is a body spawned at load time. Bodies with a velocity move in a
// straight line every step.
type BodyDef struct {
	physics.BodySpec `yaml:",inline"`
	Velocity         physics.Vec3 `yaml:"velocity"`
}

type AgentDef struct {
	ID       string        `yaml:"id"`
	Layer    physics.Layer `yaml:"layer"`
	Position physics.Vec3  `yaml:"position"`
	Forward  physics.Vec3  `yaml:"forward"`
	Radius   *float64      `yaml:"radius"`
	// TurnRate spins the agent around the up axis, in degrees per second.
	TurnRate float64 `yaml:"turn_rate"`

	Sensor   *perception.Config `yaml:"sensor"`
	Behavior *npc.Config        `yaml:"behavior"`
}

// Load decodes and validates a scenario document.
func Load(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile is Load over a file path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (s *Scenario) Validate() error {
	var errs []error
	if len(s.Agents) == 0 {
		errs = append(errs, errors.New("no agents"))
	}
	seen := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("agent %d: missing id", i))
		} else if seen[a.ID] {
			errs = append(errs, fmt.Errorf("agent %s: duplicate id", a.ID))
		}
		seen[a.ID] = true
		if a.Sensor != nil {
			if err := a.Sensor.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("agent %s: %w", a.ID, err))
			}
		}
		if !a.Position.IsFinite() || !a.Forward.IsFinite() {
			errs = append(errs, fmt.Errorf("agent %s: non-finite pose", a.ID))
		}
	}
	for i, b := range s.World.Bodies {
		if !b.Velocity.IsFinite() {
			errs = append(errs, fmt.Errorf("body %d: non-finite velocity", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
	}
	return nil
}

func (a AgentDef) sensorConfig() perception.Config {
	if a.Sensor == nil {
		return perception.DefaultConfig()
	}
	return *a.Sensor
}

func (a AgentDef) forward() physics.Vec3 {
	if a.Forward.LenSq() == 0 {
		return physics.Forward
	}
	return a.Forward
}

func (a AgentDef) radius() float64 {
	if a.Radius == nil {
		return defaultAgentRadius
	}
	return *a.Radius
}

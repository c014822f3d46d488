package physics

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxLayers is the number of distinct collision layers a mask can address.
const MaxLayers = 32

// Layer is a collision/classification layer index in [0, MaxLayers).
type Layer uint8

// LayerMask is a bit set of layers.
type LayerMask uint32

const (
	NoLayers  LayerMask = 0
	AllLayers LayerMask = ^LayerMask(0)
)

var ErrLayerOutOfRange = errors.New("layer out of range")

// MaskOf builds a mask from layer indices.
func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		m |= l.Mask()
	}
	return m
}

func (l Layer) Mask() LayerMask {
	if l >= MaxLayers {
		return NoLayers
	}
	return 1 << l
}

func (l Layer) Valid() bool { return l < MaxLayers }

func (m LayerMask) Contains(l Layer) bool { return m&l.Mask() != 0 }

func (m LayerMask) Empty() bool { return m == 0 }

func (m LayerMask) Count() int { return bits.OnesCount32(uint32(m)) }

// Layers lists the layers set in the mask in ascending order.
func (m LayerMask) Layers() []Layer {
	out := make([]Layer, 0, m.Count())
	for l := Layer(0); l < MaxLayers; l++ {
		if m.Contains(l) {
			out = append(out, l)
		}
	}
	return out
}

func (m LayerMask) String() string { return fmt.Sprintf("%#08x", uint32(m)) }

// UnmarshalYAML accepts either an integer bitmask or a sequence of layer indices.
func (m *LayerMask) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := strconv.ParseUint(node.Value, 0, 32)
		if err != nil {
			return fmt.Errorf("layer mask %q: %w", node.Value, err)
		}
		*m = LayerMask(v)
		return nil
	case yaml.SequenceNode:
		var layers []int
		if err := node.Decode(&layers); err != nil {
			return fmt.Errorf("layer mask: %w", err)
		}
		var out LayerMask
		for _, l := range layers {
			if l < 0 || l >= MaxLayers {
				return fmt.Errorf("layer mask: %d: %w", l, ErrLayerOutOfRange)
			}
			out |= Layer(l).Mask()
		}
		*m = out
		return nil
	default:
		return fmt.Errorf("layer mask: unsupported yaml node kind %d", node.Kind)
	}
}

// MarshalYAML writes the mask as a sequence of layer indices.
func (m LayerMask) MarshalYAML() (any, error) {
	layers := m.Layers()
	out := make([]int, len(layers))
	for i, l := range layers {
		out[i] = int(l)
	}
	return out, nil
}

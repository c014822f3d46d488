package npc

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

func init() {
	// interface values stored by the built-in nodes and vision bindings
	gob.Register(time.Time{})
	gob.Register(physics.BodyID(0))
	gob.Register([]physics.BodyID(nil))
}

// bbMap is a thread-safe map-based blackboard. Namespaced views share the
// root map and lock.
type bbMap struct {
	mu     sync.RWMutex
	data   map[string]any
	prefix string
	root   *bbMap
}

func NewBlackboard() Blackboard {
	m := &bbMap{data: make(map[string]any)}
	m.root = m
	return m
}

func (b *bbMap) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

func (b *bbMap) Get(key string) (any, bool) {
	root := b.root
	root.mu.RLock()
	defer root.mu.RUnlock()
	v, ok := root.data[b.fullKey(key)]
	return v, ok
}

func (b *bbMap) Set(key string, value any) {
	root := b.root
	root.mu.Lock()
	root.data[b.fullKey(key)] = value
	root.mu.Unlock()
}

func (b *bbMap) Delete(key string) {
	root := b.root
	root.mu.Lock()
	delete(root.data, b.fullKey(key))
	root.mu.Unlock()
}

func (b *bbMap) Namespace(ns string) Blackboard {
	ns = strings.ReplaceAll(ns, ":", "_")
	return &bbMap{root: b.root, prefix: b.fullKey(ns)}
}

func (b *bbMap) Keys() []string {
	root := b.root
	pref := ""
	if b.prefix != "" {
		pref = b.prefix + ":"
	}
	root.mu.RLock()
	keys := make([]string, 0, len(root.data))
	for k := range root.data {
		if strings.HasPrefix(k, pref) {
			keys = append(keys, strings.TrimPrefix(k, pref))
		}
	}
	root.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func (b *bbMap) MarshalBinary() ([]byte, error) {
	root := b.root
	root.mu.RLock()
	defer root.mu.RUnlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(root.data); err != nil {
		return nil, fmt.Errorf("encode blackboard: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary merges the decoded entries into the blackboard.
func (b *bbMap) UnmarshalBinary(data []byte) error {
	decoded := make(map[string]any)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("decode blackboard: %w", err)
	}
	root := b.root
	root.mu.Lock()
	for k, v := range decoded {
		root.data[k] = v
	}
	root.mu.Unlock()
	return nil
}

// BlackboardInt reads an integer-like value. Values restored from JSON or
// YAML may arrive as float64 or int64.
func BlackboardInt(bb Blackboard, key string) (int64, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return 0, false
	}
	switch tv := v.(type) {
	case int:
		return int64(tv), true
	case int64:
		return tv, true
	case uint64:
		return int64(tv), true
	case physics.BodyID:
		return int64(tv), true
	case float64:
		return int64(tv), true
	default:
		return 0, false
	}
}

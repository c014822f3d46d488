package npc

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
)

// DefaultMemoryLimit bounds the decision history kept per agent.
const DefaultMemoryLimit = 256

// ringMemory keeps the most recent decisions with gob persistence.
type ringMemory struct {
	mu    sync.RWMutex
	limit int
	list  []DecisionRecord
}

// NewMemory creates a memory holding at most limit records. A non-positive
// limit selects DefaultMemoryLimit.
func NewMemory(limit int) Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &ringMemory{limit: limit, list: make([]DecisionRecord, 0, min(limit, 64))}
}

func (m *ringMemory) AppendDecision(rec DecisionRecord) {
	m.mu.Lock()
	if len(m.list) == m.limit {
		copy(m.list, m.list[1:])
		m.list = m.list[:len(m.list)-1]
	}
	m.list = append(m.list, rec)
	m.mu.Unlock()
}

func (m *ringMemory) History() []DecisionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make([]DecisionRecord, len(m.list))
	copy(cp, m.list)
	return cp
}

func (m *ringMemory) Reset() {
	m.mu.Lock()
	m.list = m.list[:0]
	m.mu.Unlock()
}

func (m *ringMemory) Save() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m.list); err != nil {
		return nil, fmt.Errorf("encode memory: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *ringMemory) Load(b []byte) error {
	var list []DecisionRecord
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&list); err != nil {
		return fmt.Errorf("decode memory: %w", err)
	}
	if len(list) > m.limit {
		list = list[len(list)-m.limit:]
	}
	m.mu.Lock()
	m.list = list
	m.mu.Unlock()
	return nil
}

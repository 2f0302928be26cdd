// Package memory is a process-local slot backend for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
)

type cell struct {
	data    []byte
	version int64
	live    bool
}

// Slot keeps versioned records in a map.
type Slot struct {
	mu    sync.Mutex
	cells map[string]*cell
}

func NewSlot() *Slot {
	return &Slot{cells: make(map[string]*cell)}
}

func (s *Slot) Read(_ context.Context, key string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cells[key]
	if !ok || !c.live {
		return nil, 0, common.ErrorNotFound
	}
	return append([]byte(nil), c.data...), c.version, nil
}

func (s *Slot) Write(_ context.Context, key string, data []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cells[key]
	if !ok {
		c = &cell{}
		s.cells[key] = c
	}

	if expected >= 0 {
		current := int64(0)
		if c.live {
			current = c.version
		}
		if current != expected {
			return 0, fmt.Errorf("slot %s at version %d, expected %d: %w", key, current, expected, common.ErrVersionConflict)
		}
	}

	c.data = append([]byte(nil), data...)
	c.version++
	c.live = true
	return c.version, nil
}

func (s *Slot) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cells[key]; ok && c.live {
		c.data = nil
		c.live = false
		c.version++
	}
	return nil
}

// Put overwrites the raw record of key, bypassing version checks. Tests use
// it to plant corrupt or hand-written records.
func (s *Slot) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cells[key]
	if !ok {
		c = &cell{}
		s.cells[key] = c
	}
	c.data = append([]byte(nil), data...)
	c.version++
	c.live = true
}

// Raw returns the stored bytes of key, or nil.
func (s *Slot) Raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cells[key]; ok && c.live {
		return append([]byte(nil), c.data...)
	}
	return nil
}

// Package chain supplies the monotonic block-height oracle that gates every
// time-based transition in the engine.
package chain

import (
	"fmt"
	"sync"
)

// ManualSource is an operator-advanced block counter for standalone
// deployments and tests. It only ever moves forward.
type ManualSource struct {
	mu     sync.RWMutex
	height uint64
}

// NewManualSource creates a ManualSource at the given starting height.
func NewManualSource(start uint64) *ManualSource {
	return &ManualSource{height: start}
}

// Height returns the current height.
func (s *ManualSource) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// Advance moves the counter forward by n blocks and returns the new height.
func (s *ManualSource) Advance(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height += n
	return s.height
}

// SetHeight jumps to an absolute height. It returns an error if the target is
// below the current height; the counter is monotonic.
func (s *ManualSource) SetHeight(h uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < s.height {
		return fmt.Errorf("chain: height %d below current %d", h, s.height)
	}
	s.height = h
	return nil
}

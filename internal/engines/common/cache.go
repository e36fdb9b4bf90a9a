/*
Copyright 2025 The f1-nexus Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package common holds state shared by the strategy engine across requests.
package common

import (
	"sync"

	"github.com/f1-nexus/race-strategy/internal/config"
	"github.com/f1-nexus/race-strategy/pkg/core"
)

// StrategyCache keeps optimized strategies by request fingerprint and by strategy ID.
// Capacity is bounded; the oldest entry is evicted first. A capacity of zero disables it.
type StrategyCache struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*core.RaceStrategy
	byID     map[string]*core.RaceStrategy
	order    []string
}

// NewStrategyCache creates a cache holding at most capacity strategies.
func NewStrategyCache(capacity int) *StrategyCache {
	return &StrategyCache{
		capacity: capacity,
		items:    make(map[string]*core.RaceStrategy),
		byID:     make(map[string]*core.RaceStrategy),
	}
}

// Get returns the strategy stored for a request fingerprint.
func (c *StrategyCache) Get(fingerprint string) (*core.RaceStrategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.items[fingerprint]
	return s, ok
}

// ByID returns a cached strategy by its ID.
func (c *StrategyCache) ByID(id string) (*core.RaceStrategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Set stores a strategy. Strategies are immutable, so callers share the pointer.
func (c *StrategyCache) Set(fingerprint string, s *core.RaceStrategy) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, exists := c.items[fingerprint]; exists {
		delete(c.byID, old.ID)
	} else {
		c.order = append(c.order, fingerprint)
	}
	c.items[fingerprint] = s
	c.byID[s.ID] = s

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		if evicted, ok := c.items[oldest]; ok {
			if c.byID[evicted.ID] == evicted {
				delete(c.byID, evicted.ID)
			}
			delete(c.items, oldest)
		}
	}
}

// Len returns the number of cached strategies.
func (c *StrategyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TuningStore guards the per-circuit tuning so it can be swapped while requests run.
type TuningStore struct {
	mu   sync.RWMutex
	data config.CircuitTuningData
}

// Update replaces the tuning.
func (s *TuningStore) Update(data config.CircuitTuningData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

// ForCircuit returns the effective tuning for a circuit.
func (s *TuningStore) ForCircuit(circuitID string) config.CircuitTuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ForCircuit(circuitID)
}

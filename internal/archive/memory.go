package archive

import (
	"context"
	"errors"
	"sync"
)

// Memory is an in-process archive
type Memory struct {
	mu       sync.Mutex
	scenes   map[string][]Scene
	failures map[string]int
	queries  map[string]int
}

// NewMemory creates an empty in-process archive
func NewMemory() *Memory {
	return &Memory{
		scenes:   make(map[string][]Scene),
		failures: make(map[string]int),
		queries:  make(map[string]int),
	}
}

// Add stores scenes under a collection
func (m *Memory) Add(collection string, scenes ...Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[collection] = append(m.scenes[collection], scenes...)
}

// FailNext makes the next n queries of a collection fail with a QueryError
func (m *Memory) FailNext(collection string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[collection] = n
}

// Queries returns how many queries reached a collection
func (m *Memory) Queries(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[collection]
}

// Query returns the stored scenes matching q
func (m *Memory) Query(ctx context.Context, q Query) ([]Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries[q.Collection]++
	if m.failures[q.Collection] > 0 {
		m.failures[q.Collection]--
		return nil, &QueryError{Collection: q.Collection, Err: errors.New("injected failure")}
	}

	var out []Scene
	for _, s := range m.scenes[q.Collection] {
		if !q.Matches(s.Acquired, s.Footprint) {
			continue
		}
		if len(q.Bands) > 0 {
			var present []string
			for _, name := range q.Bands {
				if s.Image.HasBand(name) {
					present = append(present, name)
				}
			}
			img, err := s.Image.Select(present...)
			if err != nil {
				return nil, err
			}
			s.Image = img
		}
		out = append(out, s)
	}
	SortScenes(out)
	return out, nil
}

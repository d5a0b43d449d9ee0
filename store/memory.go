package store

import (
	"context"
	"sync"
)

// Memory keeps everything in process. Used for tests and no-save runs.
type Memory struct {
	mu      sync.Mutex
	results []Result
	samples []Sample
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveResult(_ context.Context, res Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res.Decisions = append([]string(nil), res.Decisions...)
	m.results = append(m.results, res)
	return nil
}

func (m *Memory) InsertSample(_ context.Context, s Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{Played: len(m.results)}
	for _, r := range m.results {
		if r.Win {
			st.Won++
		}
	}
	return st, nil
}

func (m *Memory) Results() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Result(nil), m.results...)
}

func (m *Memory) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.samples...)
}

func (m *Memory) Close() error { return nil }

package session

import (
	"context"
	"sync"
)

type fakeSurface struct {
	mu      sync.Mutex
	route   string
	prompts []string
	visited []string
}

func (f *fakeSurface) PromptReauth(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, reason)
}

func (f *fakeSurface) CurrentRoute() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.route
}

func (f *fakeSurface) Navigate(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.route = route
	f.visited = append(f.visited, route)
}

func (f *fakeSurface) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type memCredentials struct {
	mu    sync.Mutex
	pairs map[string]map[Kind]Pair
}

func newMemCredentials() *memCredentials {
	return &memCredentials{pairs: make(map[string]map[Kind]Pair)}
}

func (m *memCredentials) LoadPairs(_ context.Context, deviceID string) (map[Kind]Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Kind]Pair)
	for k, p := range m.pairs[deviceID] {
		out[k] = p
	}
	return out, nil
}

func (m *memCredentials) SavePair(_ context.Context, deviceID string, kind Kind, pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pairs[deviceID] == nil {
		m.pairs[deviceID] = make(map[Kind]Pair)
	}
	m.pairs[deviceID][kind] = pair
	return nil
}

func (m *memCredentials) DeletePair(_ context.Context, deviceID string, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pairs[deviceID], kind)
	return nil
}

package cachestore

import (
	"context"
	"sort"
	"sync"
)

// Memory is the default in-process Store backend.
type Memory struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*Entry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{partitions: make(map[string]map[string]*Entry)}
}

func (m *Memory) Match(_ context.Context, partition, key string) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket, ok := m.partitions[partition]
	if !ok {
		return nil, false, nil
	}
	entry, ok := bucket[key]
	if !ok {
		return nil, false, nil
	}
	return entry.Clone(), true, nil
}

func (m *Memory) Put(_ context.Context, partition, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.partitions[partition]
	if !ok {
		bucket = make(map[string]*Entry)
		m.partitions[partition] = bucket
	}
	bucket[key] = entry.Clone()
	return nil
}

func (m *Memory) Partitions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.partitions))
	for name := range m.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) DeletePartition(_ context.Context, partition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.partitions, partition)
	return nil
}

package natskv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// memoryKV is an in-process KeyValue. Keys listed in failGet answer with a
// transport error.
type memoryKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet map[string]bool
	failPut bool
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte), failGet: make(map[string]bool)}
}

var errUnavailable = errors.New("kv unavailable")

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet[key] {
		return nil, errUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("kv key %s: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (m *memoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errUnavailable
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

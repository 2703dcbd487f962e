package storage

import (
	"context"
	"sync"
)

// MemoryBackend is a process-local Backend. Failures can be injected per
// operation, which makes it the backend of choice for exercising partial
// write and read failures.
type MemoryBackend struct {
	name string

	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
	sets   int
}

// NewMemoryBackend creates an empty, unshared memory backend
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name, values: map[string]string{}}
}

var sharedMemory = struct {
	mu       sync.Mutex
	backends map[string]*MemoryBackend
}{backends: map[string]*MemoryBackend{}}

// SharedMemoryBackend returns the process-wide memory backend registered
// under name, creating it on first use
func SharedMemoryBackend(name string) *MemoryBackend {
	sharedMemory.mu.Lock()
	defer sharedMemory.mu.Unlock()
	b, ok := sharedMemory.backends[name]
	if !ok {
		b = NewMemoryBackend(name)
		sharedMemory.backends[name] = b
	}
	return b
}

// Name implements Backend
func (m *MemoryBackend) Name() string {
	return "memory://" + m.name
}

// Get implements Backend
func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	value, ok := m.values[key]
	return value, ok, nil
}

// Set implements Backend
func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.sets++
	return nil
}

// FailGet makes every Get return err until cleared with nil
func (m *MemoryBackend) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailSet makes every Set return err until cleared with nil
func (m *MemoryBackend) FailSet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// SetCount returns the number of successful Set calls
func (m *MemoryBackend) SetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// Delete removes key
func (m *MemoryBackend) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

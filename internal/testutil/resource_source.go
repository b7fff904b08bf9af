package testutil

import (
	"context"
	"sync"
	"time"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
)

// MockResourceSource is an in-memory domain.ResourceSource.  Delay makes
// ListResources and Ping block until the delay elapses or the context ends.
type MockResourceSource struct {
	SourceName string
	Records    []domain.ResourceRecord
	Err        error
	PingErr    error
	Delay      time.Duration

	mu        sync.Mutex
	listCalls int
	pingCalls int
}

// NewMockResourceSource returns a source that answers with records.
func NewMockResourceSource(records ...domain.ResourceRecord) *MockResourceSource {
	return &MockResourceSource{SourceName: "mock", Records: records}
}

func (m *MockResourceSource) Name() string {
	if m.SourceName == "" {
		return "mock"
	}
	return m.SourceName
}

func (m *MockResourceSource) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockResourceSource) ListResources(ctx context.Context) ([]domain.ResourceRecord, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.ResourceRecord(nil), m.Records...), nil
}

func (m *MockResourceSource) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.pingCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return err
	}
	return m.PingErr
}

// ListCalls returns how many times ListResources was called.
func (m *MockResourceSource) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// PingCalls returns how many times Ping was called.
func (m *MockResourceSource) PingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingCalls
}

// Record builds a ResourceRecord with a category and priority.
func Record(title, category string, priority float64) domain.ResourceRecord {
	return domain.ResourceRecord{Title: title, Category: &category, Priority: &priority}
}

// FixedInts is an IntSource that always returns Value, clamped to n-1.
type FixedInts struct{ Value int }

func (f FixedInts) Intn(n int) int {
	if f.Value >= n {
		return n - 1
	}
	return f.Value
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

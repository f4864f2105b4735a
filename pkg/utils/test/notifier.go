package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/allie-chat/allieproxy/pkg/notify"
)

// MockNotifier is a test notification sink that records every report it is
// handed and can be told to fail.
type MockNotifier struct {
	name string

	mu      sync.Mutex
	reports []*notify.Report

	// Fail causes Notify to return an error after recording the attempt.
	Fail bool

	// Panic causes Notify to panic after recording the attempt.
	Panic bool
}

func NewMockNotifier(name string) *MockNotifier {
	return &MockNotifier{name: name}
}

func (m *MockNotifier) Name() string {
	return m.name
}

func (m *MockNotifier) Notify(_ context.Context, report *notify.Report) error {
	m.mu.Lock()
	m.reports = append(m.reports, report)
	fail, panics := m.Fail, m.Panic
	m.mu.Unlock()

	if panics {
		panic(fmt.Sprintf("mock notifier %s panicked", m.name))
	}
	if fail {
		return fmt.Errorf("mock notifier %s failure", m.name)
	}
	return nil
}

// Reports returns a copy of the reports received so far.
func (m *MockNotifier) Reports() []*notify.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notify.Report, len(m.reports))
	copy(out, m.reports)
	return out
}

// Attempts returns the number of Notify calls so far.
func (m *MockNotifier) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

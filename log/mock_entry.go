package log

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

// NewMockEntry returns a null logger entry with an attached hook that
// records every emitted message for assertions in tests.
func NewMockEntry() (*logrus.Entry, *MockLoggerHook) {
	logger, _ := test.NewNullLogger()
	logger.Level = logrus.TraceLevel

	entry := logrus.Entry{Logger: logger}
	hook := MockLoggerHook{}

	entry.Logger.AddHook(&hook)

	hook.On("Fire", mock.Anything).Return(nil)

	return &entry, &hook
}

type MockLoggerHook struct {
	mock.Mock

	Messages []string
	mu       sync.Mutex
}

// Levels implements `logrus.Hook`.
func (h *MockLoggerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements `logrus.Hook`.
func (h *MockLoggerHook) Fire(entry *logrus.Entry) error {
	_ = h.Called()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.Messages = append(h.Messages, entry.Message)

	return nil
}

// HasMessageContaining reports whether any recorded message contains s.
func (h *MockLoggerHook) HasMessageContaining(s string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.Messages {
		if strings.Contains(m, s) {
			return true
		}
	}

	return false
}

// Reset clears all recorded messages.
func (h *MockLoggerHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Messages = nil
}

package periodictable

import (
	"log/slog"
	"sync"
)

// ActionLog is a side effect that logs each reduced action and counts
// them by name.
type ActionLog struct {
	logger *slog.Logger

	mu     sync.Mutex
	counts map[Action]int
}

// NewActionLog creates an ActionLog. A nil logger uses slog.Default().
func NewActionLog(logger *slog.Logger) *ActionLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionLog{logger: logger, counts: make(map[Action]int)}
}

func (l *ActionLog) ExecuteWith(action Action) {
	l.mu.Lock()
	l.counts[action]++
	n := l.counts[action]
	l.mu.Unlock()

	l.logger.Debug("action reduced", "action", action.ActionName(), "count", n)
}

// Count returns how many times action was reduced.
func (l *ActionLog) Count(action Action) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[action]
}

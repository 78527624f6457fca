package dashboard

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mattjoyce/accrete/internal/log"
)

// consoleDashboard reports task progress through the structured logger.
type consoleDashboard struct {
	logger *slog.Logger
}

// NewConsole returns a Dashboard that logs state changes and, on failure, the
// task's captured output.
func NewConsole() Dashboard {
	return &consoleDashboard{logger: log.WithComponent("dashboard")}
}

func (d *consoleDashboard) BeginTask(verb, displayName string) Task {
	t := &consoleTask{
		id:     uuid.NewString(),
		verb:   verb,
		name:   displayName,
		logger: d.logger,
	}
	t.logger.Debug("task begun", "task_id", t.id, "verb", verb, "name", displayName)
	return t
}

type consoleTask struct {
	id     string
	verb   string
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	output strings.Builder
}

func (t *consoleTask) ID() string { return t.id }

func (t *consoleTask) SetState(state TaskState) {
	attrs := []any{"task_id", t.id, "verb", t.verb, "name", t.name, "state", string(state)}

	switch state {
	case StateFailed:
		t.mu.Lock()
		out := t.output.String()
		t.mu.Unlock()
		if out != "" {
			attrs = append(attrs, "output", out)
		}
		t.logger.Error("task failed", attrs...)
	case StateDone, StatePassed:
		t.logger.Info("task finished", attrs...)
	case StateBlocked:
		t.logger.Debug("task blocked", attrs...)
	default:
		t.logger.Debug("task state changed", attrs...)
	}
}

func (t *consoleTask) AddOutput(text string) {
	t.mu.Lock()
	t.output.WriteString(text)
	t.mu.Unlock()
}

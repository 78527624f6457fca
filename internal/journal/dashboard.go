package journal

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/accrete/internal/dashboard"
)

// journalDashboard records each task's terminal outcome in the journal.
type journalDashboard struct {
	journal *Journal
}

// Dashboard returns a dashboard.Dashboard writing to this journal. Only
// terminal states produce rows; intermediate blocked/running churn is not
// recorded.
func (j *Journal) Dashboard() dashboard.Dashboard {
	return &journalDashboard{journal: j}
}

func (d *journalDashboard) BeginTask(verb, displayName string) dashboard.Task {
	return &journalTask{
		id:      uuid.NewString(),
		verb:    verb,
		name:    displayName,
		beganAt: time.Now().UTC(),
		journal: d.journal,
	}
}

type journalTask struct {
	id      string
	verb    string
	name    string
	beganAt time.Time
	journal *Journal

	mu       sync.Mutex
	output   strings.Builder
	recorded bool
}

func (t *journalTask) ID() string { return t.id }

func (t *journalTask) SetState(state dashboard.TaskState) {
	if !state.Terminal() {
		return
	}

	t.mu.Lock()
	if t.recorded {
		t.mu.Unlock()
		return
	}
	t.recorded = true
	output := t.output.String()
	t.mu.Unlock()

	if err := t.journal.recordTask(t.verb, t.name, string(state), output, t.beganAt); err != nil {
		t.journal.logger.Error("failed to record task", "task_id", t.id, "error", err)
	}
}

func (t *journalTask) AddOutput(text string) {
	t.mu.Lock()
	t.output.WriteString(text)
	t.mu.Unlock()
}

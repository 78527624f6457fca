package dashboard

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskInfo is a point-in-time snapshot of one task.
type TaskInfo struct {
	ID        string    `json:"id"`
	Verb      string    `json:"verb"`
	Name      string    `json:"name"`
	State     TaskState `json:"state"`
	Output    string    `json:"output,omitempty"`
	BeganAt   time.Time `json:"began_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker is a Dashboard that keeps the current state of every task in
// memory for snapshot queries.
type Tracker struct {
	mu    sync.Mutex
	tasks map[string]*trackedTask
	order []string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]*trackedTask)}
}

func (d *Tracker) BeginTask(verb, displayName string) Task {
	t := &trackedTask{
		info: TaskInfo{
			ID:        uuid.NewString(),
			Verb:      verb,
			Name:      displayName,
			State:     StatePending,
			BeganAt:   time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
		tracker: d,
	}

	d.mu.Lock()
	d.tasks[t.info.ID] = t
	d.order = append(d.order, t.info.ID)
	d.mu.Unlock()

	return t
}

// Snapshot returns all tasks in creation order.
func (d *Tracker) Snapshot() []TaskInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]TaskInfo, 0, len(d.order))
	for _, id := range d.order {
		t := d.tasks[id]
		info := t.info
		info.Output = t.output.String()
		out = append(out, info)
	}
	return out
}

// CountByState returns how many tasks are in each state.
func (d *Tracker) CountByState() map[TaskState]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	counts := make(map[TaskState]int)
	for _, t := range d.tasks {
		counts[t.info.State]++
	}
	return counts
}

// Unfinished returns tasks not yet in a terminal state, sorted by name.
func (d *Tracker) Unfinished() []TaskInfo {
	var out []TaskInfo
	for _, info := range d.Snapshot() {
		if !info.State.Terminal() {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type trackedTask struct {
	info    TaskInfo
	output  strings.Builder
	tracker *Tracker
}

func (t *trackedTask) ID() string { return t.info.ID }

func (t *trackedTask) SetState(state TaskState) {
	t.tracker.mu.Lock()
	t.info.State = state
	t.info.UpdatedAt = time.Now().UTC()
	t.tracker.mu.Unlock()
}

func (t *trackedTask) AddOutput(text string) {
	t.tracker.mu.Lock()
	t.output.WriteString(text)
	t.info.UpdatedAt = time.Now().UTC()
	t.tracker.mu.Unlock()
}

package dashboard

import (
	"github.com/google/uuid"

	"github.com/mattjoyce/accrete/internal/events"
)

// hubDashboard bridges task lifecycle changes onto the events hub so the
// status API and the watch TUI can observe them.
type hubDashboard struct {
	hub *events.Hub
}

// NewHubBridge returns a Dashboard that publishes every task change to hub.
func NewHubBridge(hub *events.Hub) Dashboard {
	return &hubDashboard{hub: hub}
}

func (d *hubDashboard) BeginTask(verb, displayName string) Task {
	t := &hubTask{
		id:   uuid.NewString(),
		verb: verb,
		name: displayName,
		hub:  d.hub,
	}
	d.hub.Publish(events.TypeTaskBegan, events.TaskEvent{
		TaskID: t.id,
		Verb:   verb,
		Name:   displayName,
		State:  string(StatePending),
	})
	return t
}

type hubTask struct {
	id   string
	verb string
	name string
	hub  *events.Hub
}

func (t *hubTask) ID() string { return t.id }

func (t *hubTask) SetState(state TaskState) {
	t.hub.Publish(events.TypeTaskState, events.TaskEvent{
		TaskID: t.id,
		Verb:   t.verb,
		Name:   t.name,
		State:  string(state),
	})
}

func (t *hubTask) AddOutput(text string) {
	t.hub.Publish(events.TypeTaskOutput, events.TaskEvent{
		TaskID: t.id,
		Verb:   t.verb,
		Name:   t.name,
		Output: text,
	})
}

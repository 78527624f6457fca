package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAssignsMonotonicIDs(t *testing.T) {
	h := NewHub(8)
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "a"})
	h.Publish(TypeTaskState, TaskEvent{TaskID: "a", State: "running"})

	snap := h.SnapshotSince(0)
	require.Len(t, snap, 2)
	assert.Less(t, snap[0].ID, snap[1].ID)
	assert.Equal(t, TypeTaskBegan, snap[0].Type)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeTaskOutput, TaskEvent{TaskID: "b", Output: "compiling\n"})

	ev := <-ch
	assert.Equal(t, "b", ev.Task.TaskID)
	assert.Equal(t, "compiling\n", ev.Task.Output)
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	h := NewHub(2)
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "1"})
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "2"})
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "3"})

	snap := h.SnapshotSince(0)
	require.Len(t, snap, 2)
	assert.Equal(t, "2", snap[0].Task.TaskID)
	assert.Equal(t, "3", snap[1].Task.TaskID)
}

func TestSnapshotSinceFilters(t *testing.T) {
	h := NewHub(8)
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "1"})
	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "2"})

	snap := h.SnapshotSince(1)
	require.Len(t, snap, 1)
	assert.Equal(t, "2", snap[0].Task.TaskID)
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	cancel()

	h.Publish(TypeTaskBegan, TaskEvent{TaskID: "x"})

	_, open := <-ch
	assert.False(t, open)
}

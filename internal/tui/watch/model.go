// Package watch is the live build monitor: a terminal UI showing every task,
// its state, and the most recent build events, fed by the in-process events
// hub.
package watch

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/accrete/internal/events"
)

// taskRow is the tracked state of one task.
type taskRow struct {
	id      string
	verb    string
	name    string
	state   string
	updated time.Time
}

// Model is the BubbleTea model for the watch TUI.
type Model struct {
	hub    *events.Hub
	cancel func()

	width  int
	height int

	tasks     map[string]*taskRow
	eventLog  []events.Event
	hubEvents <-chan events.Event

	taskTable table.Model
	lastTick  time.Time
}

type eventMsg events.Event
type tickMsg time.Time

// New creates a watch model over the hub.
func New(hub *events.Hub) *Model {
	columns := []table.Column{
		{Title: "State", Width: 8},
		{Title: "Verb", Width: 10},
		{Title: "Task", Width: 48},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return &Model{
		hub:       hub,
		tasks:     make(map[string]*taskRow),
		taskTable: t,
	}
}

func (m *Model) Init() tea.Cmd {
	ch, cancel := m.hub.Subscribe()
	m.hubEvents = ch
	m.cancel = cancel

	// Replay the buffer so tasks begun before the TUI attached show up.
	for _, ev := range m.hub.SnapshotSince(0) {
		m.applyEvent(ev)
	}

	return tea.Batch(
		m.receiveNext(),
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m *Model) receiveNext() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.hubEvents
		if !ok {
			return tea.Quit()
		}
		return eventMsg(ev)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskTable.SetWidth(msg.Width - 4)

	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		m.applyEvent(events.Event(msg))
		return m, m.receiveNext()
	}

	var cmd tea.Cmd
	m.taskTable, cmd = m.taskTable.Update(msg)
	return m, cmd
}

func (m *Model) applyEvent(ev events.Event) {
	row, ok := m.tasks[ev.Task.TaskID]
	if !ok {
		row = &taskRow{id: ev.Task.TaskID}
		m.tasks[ev.Task.TaskID] = row
	}
	if ev.Task.Verb != "" {
		row.verb = ev.Task.Verb
	}
	if ev.Task.Name != "" {
		row.name = ev.Task.Name
	}
	if ev.Task.State != "" {
		row.state = ev.Task.State
	}
	row.updated = ev.At

	// Newest first, bounded.
	m.eventLog = append([]events.Event{ev}, m.eventLog...)
	if len(m.eventLog) > 50 {
		m.eventLog = m.eventLog[:50]
	}

	m.refreshTable()
}

// refreshTable rebuilds the table rows: unfinished tasks first, then
// terminals, newest activity on top within each group.
func (m *Model) refreshTable() {
	rows := make([]*taskRow, 0, len(m.tasks))
	for _, row := range m.tasks {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := terminalState(rows[i].state), terminalState(rows[j].state)
		if ti != tj {
			return !ti
		}
		return rows[i].updated.After(rows[j].updated)
	})

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, table.Row{
			styleForState(row.state).Render(row.state),
			row.verb,
			row.name,
		})
	}
	m.taskTable.SetRows(tableRows)
}

func terminalState(state string) bool {
	switch state {
	case "done", "passed", "failed":
		return true
	default:
		return false
	}
}

func (m *Model) View() string {
	header := titleStyle.Render("accrete watch") + "  " + m.summaryLine()

	eventLines := ""
	limit := min(len(m.eventLog), 8)
	for _, ev := range m.eventLog[:limit] {
		eventLines += fmt.Sprintf("%s  %-12s %s\n",
			dimStyle.Render(ev.At.Format("15:04:05")), ev.Type, ev.Task.Name)
	}

	return docStyle.Render(
		header + "\n\n" +
			borderStyle.Render(m.taskTable.View()) + "\n\n" +
			dimStyle.Render("recent events") + "\n" + eventLines +
			dimStyle.Render("\nq to quit"),
	)
}

func (m *Model) summaryLine() string {
	counts := make(map[string]int)
	for _, row := range m.tasks {
		counts[row.state]++
	}
	return fmt.Sprintf("%s %d  %s %d  %s %d  %s %d",
		statusRunning.Render("running"), counts["running"],
		statusQueued.Render("blocked"), counts["blocked"],
		statusOK.Render("done"), counts["done"]+counts["passed"],
		statusFailed.Render("failed"), counts["failed"],
	)
}

// Run starts the TUI and blocks until the user quits.
func Run(hub *events.Hub) error {
	_, err := tea.NewProgram(New(hub)).Run()
	return err
}

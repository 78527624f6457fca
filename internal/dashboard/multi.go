package dashboard

// multiDashboard fans task reporting out to several dashboards, e.g. console
// plus hub bridge plus journal.
type multiDashboard struct {
	targets []Dashboard
}

// NewMulti returns a Dashboard that forwards to every target in order.
func NewMulti(targets ...Dashboard) Dashboard {
	return &multiDashboard{targets: targets}
}

func (d *multiDashboard) BeginTask(verb, displayName string) Task {
	tasks := make([]Task, 0, len(d.targets))
	for _, target := range d.targets {
		tasks = append(tasks, target.BeginTask(verb, displayName))
	}
	return &multiTask{tasks: tasks}
}

type multiTask struct {
	tasks []Task
}

// ID returns the first target's id; the others keep their own.
func (t *multiTask) ID() string {
	if len(t.tasks) == 0 {
		return ""
	}
	return t.tasks[0].ID()
}

func (t *multiTask) SetState(state TaskState) {
	for _, task := range t.tasks {
		task.SetState(state)
	}
}

func (t *multiTask) AddOutput(text string) {
	for _, task := range t.tasks {
		task.AddOutput(text)
	}
}

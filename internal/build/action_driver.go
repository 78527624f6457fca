package build

import (
	"fmt"
	"log/slog"

	"github.com/mattjoyce/accrete/internal/dashboard"
	"github.com/mattjoyce/accrete/internal/entity"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/log"
	"github.com/mattjoyce/accrete/internal/vfs"
)

type actionState int

const (
	statePending actionState = iota
	stateRunning
	stateSucceeded
	statePassed
	stateFailed
)

func (s actionState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateRunning:
		return "running"
	case stateSucceeded:
		return "succeeded"
	case statePassed:
		return "passed"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("actionState(%d)", int(s))
	}
}

// provision is a staged commitment: on commit, file becomes the provider of
// every listed entity.
type provision struct {
	file     vfs.File
	entities []entity.ID
}

// actionDriver runs one action through its lifecycle and is the BuildContext
// the action sees. It lives in exactly one of the driver's three slots
// (pending, active, blocked) at any moment.
type actionDriver struct {
	driver *Driver
	id     int

	action Action
	tmpdir vfs.File
	task   dashboard.Task
	group  *eventloop.Group
	logger *slog.Logger

	state      actionState
	missing    map[entity.ID]string
	provisions []provision
	outputs    []vfs.File
}

var _ BuildContext = (*actionDriver)(nil)
var _ eventloop.PanicHandler = (*actionDriver)(nil)

func newActionDriver(driver *Driver, id int, action Action, tmpLocation vfs.File, task dashboard.Task) *actionDriver {
	d := &actionDriver{
		driver:  driver,
		id:      id,
		action:  action,
		tmpdir:  tmpLocation.Parent(),
		task:    task,
		logger:  log.WithTask(task.ID(), action.Verb()),
		state:   statePending,
		missing: make(map[entity.ID]string),
	}
	d.group = driver.loop.NewGroup(d)
	return d
}

// start moves the driver to running and schedules the action's entry point in
// its event group, so a panic during Start lands in HandlePanic.
func (d *actionDriver) start() {
	if d.state != statePending {
		d.logger.Error("state must be pending at start", "state", d.state.String())
	}
	d.state = stateRunning
	d.task.SetState(dashboard.StateRunning)

	d.group.RunAsynchronously(func() {
		if err := d.action.Start(d.group, d); err != nil {
			d.actionError(err)
		}
	})
}

func (d *actionDriver) ensureRunning() error {
	if d.state != stateRunning {
		return ErrNotRunning
	}
	return nil
}

// FindProvider implements BuildContext.
func (d *actionDriver) FindProvider(id entity.ID, title string) (vfs.File, error) {
	if err := d.ensureRunning(); err != nil {
		return nil, err
	}
	if f, ok := d.driver.entities.lookup(id); ok {
		return f, nil
	}
	d.missing[id] = title
	return nil, nil
}

// FindOptionalProvider implements BuildContext.
func (d *actionDriver) FindOptionalProvider(id entity.ID) (vfs.File, error) {
	if err := d.ensureRunning(); err != nil {
		return nil, err
	}
	f, _ := d.driver.entities.lookup(id)
	return f, nil
}

// Provide implements BuildContext.
func (d *actionDriver) Provide(file vfs.File, ids ...entity.ID) error {
	if err := d.ensureRunning(); err != nil {
		return err
	}
	d.provisions = append(d.provisions, provision{
		file:     file.Clone(),
		entities: append([]entity.ID(nil), ids...),
	})
	return nil
}

// Log implements BuildContext.
func (d *actionDriver) Log(text string) error {
	if err := d.ensureRunning(); err != nil {
		return err
	}
	d.task.AddOutput(text)
	return nil
}

// NewOutput implements BuildContext.
func (d *actionDriver) NewOutput(basename string) (vfs.File, error) {
	if err := d.ensureRunning(); err != nil {
		return nil, err
	}
	file, err := d.tmpdir.Relative(basename)
	if err != nil {
		return nil, fmt.Errorf("new output: %w", err)
	}
	d.outputs = append(d.outputs, file)
	return file.Clone(), nil
}

// Success implements BuildContext.
func (d *actionDriver) Success() error {
	return d.finish(stateSucceeded)
}

// Passed implements BuildContext.
func (d *actionDriver) Passed() error {
	return d.finish(statePassed)
}

func (d *actionDriver) finish(outcome actionState) error {
	if err := d.ensureRunning(); err != nil {
		return err
	}
	if len(d.missing) > 0 {
		// The action lied about readiness. The call fails, and the driver
		// treats the action as failed; finalize will still see the missing
		// set and roll back to blocked.
		d.state = stateFailed
		d.queueCompletion()
		return ErrMissingDependencies
	}
	d.state = outcome
	d.queueCompletion()
	return nil
}

// Failed implements BuildContext.
func (d *actionDriver) Failed() error {
	if err := d.ensureRunning(); err != nil {
		return err
	}
	d.state = stateFailed
	d.queueCompletion()
	return nil
}

// queueCompletion posts the finalize callback on the manager itself, not the
// group: a rollback's CancelAll must not cancel its own completion.
func (d *actionDriver) queueCompletion() {
	d.driver.loop.RunAsynchronously(func() {
		d.finalize()
		d.driver.startSomeActions()
	})
}

// HandlePanic implements eventloop.PanicHandler. Panics raised by the action's
// callbacks are reported on the task and, if the action is still running,
// converted into a failure.
func (d *actionDriver) HandlePanic(v any) {
	d.task.AddOutput(fmt.Sprintf("uncaught panic: %v\n", v))
	if d.state == stateRunning {
		_ = d.Failed()
	}
}

func (d *actionDriver) actionError(err error) {
	d.task.AddOutput(fmt.Sprintf("action error: %v\n", err))
	if d.state == stateRunning {
		_ = d.Failed()
	}
}

// finalize commits or rolls back a completed action. Policy: a non-empty
// missing set always wins, even over Failed — the action failed because it
// lacked inputs, so it is rolled back and re-run when they appear.
//
// Commit ordering: all provisions are published and all waiters promoted
// before any trigger fires, and all triggers fire before outputs are
// rescanned. The waiter set is therefore fixed before any new action is
// synthesized.
func (d *actionDriver) finalize() {
	if d.state == statePending {
		d.logger.Error("state should not be pending in finalize")
	}

	if _, ok := d.driver.active[d.id]; !ok {
		d.logger.Error("finalizing driver missing from active set")
	}
	delete(d.driver.active, d.id)

	if len(d.missing) > 0 {
		// Rollback. Discard partial results and park until the missing
		// entities are provided.
		d.state = statePending
		d.group.CancelAll()
		d.provisions = nil
		d.outputs = nil
		d.task.SetState(dashboard.StateBlocked)
		d.driver.blocking.block(d)
		return
	}

	if d.state == stateSucceeded || d.state == statePassed {
		if d.state == statePassed {
			d.task.SetState(dashboard.StatePassed)
		} else {
			d.task.SetState(dashboard.StateDone)
		}
		d.commit()
		return
	}

	d.task.SetState(dashboard.StateFailed)
}

type published struct {
	id   entity.ID
	file vfs.File
}

func (d *actionDriver) commit() {
	// Phase 1: publish every provision and promote every waiter.
	var posted []published
	for _, p := range d.provisions {
		d.driver.ownedFiles = append(d.driver.ownedFiles, p.file)
		for _, id := range p.entities {
			d.driver.entities.publish(id, p.file)
			posted = append(posted, published{id: id, file: p.file})

			for _, promotedDriver := range d.driver.blocking.onEntityAvailable(id) {
				d.driver.pending = append(d.driver.pending, promotedDriver)
			}
		}
	}

	// Phase 2: fire triggers.
	for _, pub := range posted {
		for _, factory := range d.driver.triggers.factoriesFor(pub.id) {
			if a := factory.TryMakeTriggerAction(pub.id, pub.file); a != nil {
				d.driver.queueNewAction(a, pub.file, pub.file)
			}
		}
	}

	// Phase 3: new output files may themselves be sources for factories.
	for _, out := range d.outputs {
		if err := d.driver.scanForActions(out, out); err != nil {
			d.logger.Error("failed to scan action output", "output", out.DisplayName(), "error", err)
		}
	}
}

package build

import (
	"log/slog"
	"sort"

	"github.com/mattjoyce/accrete/internal/dashboard"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/log"
	"github.com/mattjoyce/accrete/internal/vfs"
)

// namedFactory pairs a factory with its registration name. The name is
// advisory, for diagnostics.
type namedFactory struct {
	name    string
	factory ActionFactory
}

// Driver coordinates the whole build: it owns the pending queue, the active
// and blocked sets, the entity and trigger indices, and the file pool.
// Everything is mutated only from event-loop callbacks.
type Driver struct {
	loop          *eventloop.Manager
	dash          dashboard.Dashboard
	src           vfs.File
	tmp           vfs.File
	maxConcurrent int
	logger        *slog.Logger

	factories []namedFactory
	triggers  *triggerRegistry
	entities  *entityIndex
	blocking  *blockingIndex

	// Files surrendered by committed actions. Never pruned during a run;
	// entityIndex entries point into this pool.
	ownedFiles []vfs.File

	nextDriverID int
	pending      []*actionDriver // LIFO: newest actions start first
	active       map[int]*actionDriver
}

// New creates a driver for the given trees. maxConcurrent must be positive.
func New(loop *eventloop.Manager, dash dashboard.Dashboard, src, tmp vfs.File, maxConcurrent int) *Driver {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Driver{
		loop:          loop,
		dash:          dash,
		src:           src,
		tmp:           tmp,
		maxConcurrent: maxConcurrent,
		logger:        log.WithComponent("driver"),
		triggers:      newTriggerRegistry(),
		entities:      newEntityIndex(),
		blocking:      newBlockingIndex(),
		active:        make(map[int]*actionDriver),
	}
}

// AddActionFactory registers a factory under an advisory name and records its
// trigger subscriptions. Registration is static; factories are consulted in
// registration order.
func (drv *Driver) AddActionFactory(name string, factory ActionFactory) {
	drv.factories = append(drv.factories, namedFactory{name: name, factory: factory})
	drv.triggers.register(factory)
	drv.logger.Debug("registered action factory", "factory", name, "trigger_entities", len(factory.TriggerEntities()))
}

// Start scans the source tree and begins executing discovered actions. It
// returns after the initial dispatch; drive the event loop to make progress.
func (drv *Driver) Start() error {
	if err := drv.scanForActions(drv.src, drv.tmp); err != nil {
		return err
	}
	drv.startSomeActions()
	return nil
}

// startSomeActions fills vacant run slots from the tail of the pending queue.
// Depth-first on purpose: fresh actions tend to feed the ones that are
// already waiting.
func (drv *Driver) startSomeActions() {
	for len(drv.active) < drv.maxConcurrent && len(drv.pending) > 0 {
		d := drv.pending[len(drv.pending)-1]
		drv.pending = drv.pending[:len(drv.pending)-1]
		drv.active[d.id] = d
		d.start()
	}
}

// queueNewAction wraps the action in a driver and appends it to the pending
// queue. tmpLocation mirrors file's place under the tmp tree; the action's
// temporary directory is its parent.
func (drv *Driver) queueNewAction(action Action, file, tmpLocation vfs.File) {
	task := drv.dash.BeginTask(action.Verb(), file.DisplayName())

	drv.nextDriverID++
	d := newActionDriver(drv, drv.nextDriverID, action, tmpLocation, task)
	drv.pending = append(drv.pending, d)
}

// Busy reports whether any action can still make progress on its own:
// pending actions waiting for a slot or active actions running. Blocked
// actions do not count; with nothing pending or active they can never be
// unblocked.
func (drv *Driver) Busy() bool {
	return len(drv.pending) > 0 || len(drv.active) > 0
}

// Shutdown reports every still-blocked action as failed, with a diagnostic
// listing the entities it waited for, and cancels still-active actions.
func (drv *Driver) Shutdown() {
	blocked := drv.blocking.all()
	sort.Slice(blocked, func(i, j int) bool { return blocked[i].id < blocked[j].id })

	for _, d := range blocked {
		var titles []string
		for _, title := range d.missing {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		for _, title := range titles {
			d.task.AddOutput("never provided: " + title + "\n")
		}
		d.task.SetState(dashboard.StateFailed)
		drv.logger.Warn("action blocked at shutdown", "task_id", d.task.ID(), "missing", titles)
	}

	for _, d := range drv.active {
		d.group.CancelAll()
	}
}

// Counts returns the sizes of the pending, active, and blocked sets.
func (drv *Driver) Counts() (pending, active, blocked int) {
	return len(drv.pending), len(drv.active), drv.blocking.size()
}

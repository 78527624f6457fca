// Package build is the action-driver core: it discovers actions by scanning a
// source tree, runs them under a concurrency cap, and coordinates the
// entity-provision fabric that blocks and unblocks actions at runtime.
package build

import (
	"errors"

	"github.com/mattjoyce/accrete/internal/entity"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/vfs"
)

//go:generate mockgen -destination=mocks/mock_dashboard.go -package=mocks github.com/mattjoyce/accrete/internal/dashboard Dashboard,Task

var (
	// ErrNotRunning is returned by BuildContext calls made outside the
	// action's run.
	ErrNotRunning = errors.New("action is not running")

	// ErrMissingDependencies is returned when an action reports success while
	// providers it asked for were missing.
	ErrMissingDependencies = errors.New("action reported success despite missing dependencies")
)

// BuildContext is the capability surface a running action interacts with the
// driver through. Every call fails with ErrNotRunning once the action has
// reported completion or before it starts.
type BuildContext interface {
	// FindProvider looks up the file providing id. If no provider exists yet,
	// it returns (nil, nil) and records the dependency as missing; title
	// names the dependency in diagnostics. An action that ends its run with
	// missing dependencies is rolled back and blocked until they appear.
	FindProvider(id entity.ID, title string) (vfs.File, error)

	// FindOptionalProvider is the same lookup without recording a missing
	// dependency.
	FindOptionalProvider(id entity.ID) (vfs.File, error)

	// Provide stages (file, ids): on commit, file becomes the provider of
	// every id. The file handle is cloned; the caller keeps its own.
	Provide(file vfs.File, ids ...entity.ID) error

	// Log appends to the task's output stream.
	Log(text string) error

	// NewOutput creates a file handle at tmpdir/basename, registers it as an
	// action output, and returns an independent handle for the action's use.
	NewOutput(basename string) (vfs.File, error)

	// Success reports that the action finished building. Fails with
	// ErrMissingDependencies if providers were missing; the driver then
	// treats the action as failed.
	Success() error

	// Passed reports that the action's checks passed. Same contract as
	// Success; the distinction is dashboard-only.
	Passed() error

	// Failed reports that the action failed. Always accepted while running.
	Failed() error
}

// Action is an opaque unit of work. Start is called once, on the event-loop
// goroutine; the action may do its work inline or subscribe to events through
// group and report completion later. A non-nil error from Start is treated
// like an uncaught panic: logged to the task and converted to a failure.
type Action interface {
	Verb() string
	Start(group *eventloop.Group, bc BuildContext) error
}

// ActionFactory synthesizes actions from files and from entity arrivals.
type ActionFactory interface {
	// TryMakeAction returns an action for the file, or nil if the factory
	// does not apply. Called for every file found by the discovery scan.
	TryMakeAction(file vfs.File) Action

	// TriggerEntities returns the entity ids whose arrival should re-invoke
	// this factory via TryMakeTriggerAction.
	TriggerEntities() []entity.ID

	// TryMakeTriggerAction returns an action reacting to id being provided by
	// file, or nil.
	TryMakeTriggerAction(id entity.ID, file vfs.File) Action
}

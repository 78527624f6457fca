package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/accrete/internal/build"
	"github.com/mattjoyce/accrete/internal/dashboard"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/log"
	"github.com/mattjoyce/accrete/internal/vfs"
)

func TestMain(m *testing.M) {
	log.Init("error", "json")
	os.Exit(m.Run())
}

type buildFixture struct {
	loop    *eventloop.Manager
	tracker *dashboard.Tracker
	drv     *build.Driver
	tmpDir  string
}

func newBuildFixture(t *testing.T, srcFiles map[string]string) *buildFixture {
	t.Helper()

	srcDir := filepath.Join(t.TempDir(), "src")
	tmpDir := filepath.Join(t.TempDir(), "tmp")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	for rel, content := range srcFiles {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, rel), []byte(content), 0o644))
	}

	src, err := vfs.NewRoot(srcDir)
	require.NoError(t, err)
	tmp, err := vfs.NewRoot(tmpDir)
	require.NoError(t, err)

	loop := eventloop.New()
	tracker := dashboard.NewTracker()
	return &buildFixture{
		loop:    loop,
		tracker: tracker,
		drv:     build.New(loop, tracker, src, tmp, 2),
		tmpDir:  tmpDir,
	}
}

func (f *buildFixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, f.drv.Start())
	require.NoError(t, f.loop.DrainWhile(ctx, f.drv.Busy))
}

func taskState(t *testing.T, tracker *dashboard.Tracker, suffix string) dashboard.TaskState {
	t.Helper()
	for _, info := range tracker.Snapshot() {
		if filepath.Base(info.Name) == suffix {
			return info.State
		}
	}
	t.Fatalf("no task named %q", suffix)
	return ""
}

func TestCopyRuleMirrorsFile(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"readme.txt": "hello"})

	// Output must not re-match the rule: committed outputs are rescanned.
	rule := &Rule{Name: "mirror", Verb: "copy", Match: "*.txt", Output: "{base}.copy",
		Provides: []string{"file:{name}"}}
	require.NoError(t, rule.validate())
	f.drv.AddActionFactory(rule.Name, NewFactory(rule))

	f.run(t)

	assert.Equal(t, dashboard.StateDone, taskState(t, f.tracker, "readme.txt"))
	data, err := os.ReadFile(filepath.Join(f.tmpDir, "readme.copy"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestExecRuleRunsCommand(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"word.in": "upper"})

	rule := &Rule{
		Name:    "shout",
		Verb:    "generate",
		Match:   "*.in",
		Command: []string{"/bin/sh", "-c", "tr a-z A-Z < {src} > {out}"},
		Output:  "{base}.txt",
	}
	require.NoError(t, rule.validate())
	f.drv.AddActionFactory(rule.Name, NewFactory(rule))

	f.run(t)

	assert.Equal(t, dashboard.StateDone, taskState(t, f.tracker, "word.in"))
	data, err := os.ReadFile(filepath.Join(f.tmpDir, "word.txt"))
	require.NoError(t, err)
	assert.Equal(t, "UPPER", string(data))
}

func TestExecRuleFailureMarksTaskFailed(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"bad.in": ""})

	rule := &Rule{
		Name:    "fail",
		Verb:    "check",
		Match:   "*.in",
		Command: []string{"/bin/sh", "-c", "echo broken >&2; exit 3"},
	}
	require.NoError(t, rule.validate())
	f.drv.AddActionFactory(rule.Name, NewFactory(rule))

	f.run(t)

	assert.Equal(t, dashboard.StateFailed, taskState(t, f.tracker, "bad.in"))
}

func TestTestRulePasses(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"t.in": ""})

	rule := &Rule{
		Name:    "unit",
		Verb:    "test",
		Kind:    KindTest,
		Match:   "*.in",
		Command: []string{"/bin/sh", "-c", "exit 0"},
	}
	require.NoError(t, rule.validate())
	f.drv.AddActionFactory(rule.Name, NewFactory(rule))

	f.run(t)

	assert.Equal(t, dashboard.StatePassed, taskState(t, f.tracker, "t.in"))
}

func TestWantsBlockUntilProvided(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"app.use": "", "lib.def": "library"})

	consumer := &Rule{
		Name:    "link",
		Verb:    "link",
		Match:   "*.use",
		Command: []string{"/bin/sh", "-c", "exit 0"},
		Wants:   []Want{{Entity: "lib:shared", Title: "shared library"}},
	}
	producer := &Rule{
		Name:     "define",
		Verb:     "define",
		Match:    "*.def",
		Output:   "{base}.a",
		Provides: []string{"lib:shared"},
	}
	require.NoError(t, consumer.validate())
	require.NoError(t, producer.validate())
	f.drv.AddActionFactory(consumer.Name, NewFactory(consumer))
	f.drv.AddActionFactory(producer.Name, NewFactory(producer))

	f.run(t)

	assert.Equal(t, dashboard.StateDone, taskState(t, f.tracker, "app.use"))
	assert.Equal(t, dashboard.StateDone, taskState(t, f.tracker, "lib.def"))
}

func TestTriggerRuleReactsToEntity(t *testing.T) {
	f := newBuildFixture(t, map[string]string{"lib.def": "library"})

	producer := &Rule{
		Name:     "define",
		Verb:     "define",
		Match:    "*.def",
		Output:   "{base}.a",
		Provides: []string{"lib:shared"},
	}
	reactor := &Rule{
		Name:     "index",
		Verb:     "index",
		Command:  []string{"/bin/sh", "-c", "wc -c < {src} > {out}"},
		Output:   "{base}.idx",
		Triggers: []string{"lib:shared"},
	}
	require.NoError(t, producer.validate())
	require.NoError(t, reactor.validate())
	f.drv.AddActionFactory(producer.Name, NewFactory(producer))
	f.drv.AddActionFactory(reactor.Name, NewFactory(reactor))

	f.run(t)

	// The triggered action runs against the providing file lib.a.
	assert.Equal(t, dashboard.StateDone, taskState(t, f.tracker, "lib.a"))
	assert.FileExists(t, filepath.Join(f.tmpDir, "lib.idx"))
}

func TestFactoryIgnoresNonMatchingFiles(t *testing.T) {
	rule := &Rule{Name: "c-only", Verb: "compile", Match: "*.c", Output: "{base}.o"}
	require.NoError(t, rule.validate())
	factory := NewFactory(rule)

	root, err := vfs.NewRoot(t.TempDir())
	require.NoError(t, err)
	other, err := root.Relative("a.txt")
	require.NoError(t, err)
	matching, err := root.Relative("a.c")
	require.NoError(t, err)

	assert.Nil(t, factory.TryMakeAction(other))
	assert.NotNil(t, factory.TryMakeAction(matching))
}

package rules

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/accrete/internal/build"
	"github.com/mattjoyce/accrete/internal/entity"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/log"
	"github.com/mattjoyce/accrete/internal/vfs"
)

const (
	// maxLogBytes caps captured subprocess output streamed to the task.
	maxLogBytes = 64 * 1024

	// terminationGracePeriod is the time we wait after SIGTERM before sending
	// SIGKILL.
	terminationGracePeriod = 5 * time.Second
)

// Factory adapts one rule into a build.ActionFactory.
type Factory struct {
	rule   *Rule
	logger *slog.Logger
}

var _ build.ActionFactory = (*Factory)(nil)

// NewFactory wraps a rule.
func NewFactory(rule *Rule) *Factory {
	return &Factory{
		rule:   rule,
		logger: log.WithComponent("rules").With("rule", rule.Name),
	}
}

// Name returns the rule name for registration.
func (f *Factory) Name() string {
	return f.rule.Name
}

// TryMakeAction implements build.ActionFactory.
func (f *Factory) TryMakeAction(file vfs.File) build.Action {
	if f.rule.Match == "" {
		return nil
	}
	ok, err := filepath.Match(f.rule.Match, file.Basename())
	if err != nil || !ok {
		return nil
	}
	return &ruleAction{rule: f.rule, file: file.Clone(), logger: f.logger}
}

// TriggerEntities implements build.ActionFactory.
func (f *Factory) TriggerEntities() []entity.ID {
	ids := make([]entity.ID, 0, len(f.rule.Triggers))
	for _, name := range f.rule.Triggers {
		ids = append(ids, entity.NewID(name))
	}
	return ids
}

// TryMakeTriggerAction implements build.ActionFactory. Triggered actions run
// the rule against the providing file.
func (f *Factory) TryMakeTriggerAction(_ entity.ID, file vfs.File) build.Action {
	return &ruleAction{rule: f.rule, file: file.Clone(), logger: f.logger}
}

// ruleAction executes one rule against one source file.
type ruleAction struct {
	rule   *Rule
	file   vfs.File
	logger *slog.Logger
}

var _ build.Action = (*ruleAction)(nil)

func (a *ruleAction) Verb() string {
	return a.rule.Verb
}

func (a *ruleAction) Start(group *eventloop.Group, bc build.BuildContext) error {
	// Resolve wanted entities first. Missing providers block the action, so
	// bail out without side effects.
	missing := false
	for _, w := range a.rule.Wants {
		title := w.Title
		if title == "" {
			title = w.Entity
		}
		f, err := bc.FindProvider(entity.NewID(w.Entity), title)
		if err != nil {
			return err
		}
		if f == nil {
			missing = true
		}
	}
	if missing {
		return bc.Failed()
	}

	var out vfs.File
	if a.rule.Output != "" {
		var err error
		out, err = bc.NewOutput(expand(a.rule.Output, a.file.Basename()))
		if err != nil {
			return err
		}
	}

	if len(a.rule.Command) == 0 {
		return a.finishCopy(bc, out)
	}

	argv := a.expandCommand(out)

	// The subprocess is the parallel unit: wait for it off the loop, then
	// report through the group so cancellation after rollback drops the
	// stale completion.
	go func() {
		output, err := runCommand(argv, a.rule.timeout(), a.logger)
		group.RunAsynchronously(func() {
			a.finishCommand(bc, out, output, err)
		})
	}()
	return nil
}

// finishCopy mirrors the source file to the output and commits.
func (a *ruleAction) finishCopy(bc build.BuildContext, out vfs.File) error {
	data, err := a.file.ReadAll()
	if err != nil {
		_ = bc.Log(fmt.Sprintf("copy failed: %v\n", err))
		return bc.Failed()
	}
	if err := out.WriteAll(data); err != nil {
		_ = bc.Log(fmt.Sprintf("copy failed: %v\n", err))
		return bc.Failed()
	}
	return a.commit(bc, out)
}

func (a *ruleAction) finishCommand(bc build.BuildContext, out vfs.File, output string, err error) {
	if output != "" {
		_ = bc.Log(output)
	}
	if err != nil {
		_ = bc.Log(fmt.Sprintf("command failed: %v\n", err))
		_ = bc.Failed()
		return
	}
	if err := a.commit(bc, out); err != nil {
		a.logger.Error("failed to commit rule action", "file", a.file.DisplayName(), "error", err)
	}
}

func (a *ruleAction) commit(bc build.BuildContext, out vfs.File) error {
	if out != nil && len(a.rule.Provides) > 0 {
		ids := make([]entity.ID, 0, len(a.rule.Provides))
		for _, name := range a.rule.Provides {
			ids = append(ids, entity.NewID(expand(name, a.file.Basename())))
		}
		if err := bc.Provide(out, ids...); err != nil {
			return err
		}
	}
	if a.rule.kind() == KindTest {
		return bc.Passed()
	}
	return bc.Success()
}

func (a *ruleAction) expandCommand(out vfs.File) []string {
	argv := make([]string, 0, len(a.rule.Command))
	for _, arg := range a.rule.Command {
		expanded := expand(arg, a.file.Basename())
		expanded = strings.ReplaceAll(expanded, "{src}", a.file.Path())
		if out != nil {
			expanded = strings.ReplaceAll(expanded, "{out}", out.Path())
		}
		argv = append(argv, expanded)
	}
	return argv
}

// runCommand runs argv with a deadline, returning captured combined output.
// On timeout the process gets SIGTERM, then SIGKILL after a grace period.
func runCommand(argv []string, timeout time.Duration, logger *slog.Logger) (string, error) {
	cmd := exec.Command(argv[0], argv[1:]...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", argv[0], err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		return truncateOutput(buf.String()), err
	case <-timer.C:
		logger.Warn("command timed out, sending SIGTERM", "command", argv[0], "timeout", timeout)
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
		}

		grace := time.NewTimer(terminationGracePeriod)
		defer grace.Stop()
		select {
		case <-waitErr:
		case <-grace.C:
			logger.Warn("command ignored SIGTERM, sending SIGKILL", "command", argv[0])
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			<-waitErr
		}
		return truncateOutput(buf.String()), fmt.Errorf("command timed out after %v", timeout)
	}
}

func truncateOutput(s string) string {
	if len(s) > maxLogBytes {
		return s[:maxLogBytes]
	}
	return s
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/mattjoyce/accrete/internal/api"
	"github.com/mattjoyce/accrete/internal/build"
	"github.com/mattjoyce/accrete/internal/config"
	"github.com/mattjoyce/accrete/internal/dashboard"
	"github.com/mattjoyce/accrete/internal/eventloop"
	"github.com/mattjoyce/accrete/internal/events"
	"github.com/mattjoyce/accrete/internal/journal"
	"github.com/mattjoyce/accrete/internal/log"
	"github.com/mattjoyce/accrete/internal/rules"
	"github.com/mattjoyce/accrete/internal/tui/watch"
	"github.com/mattjoyce/accrete/internal/vfs"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "build":
		return runBuild(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `accrete - discovery-based build driver

Usage:
  accrete build [flags]    Scan the source tree and run discovered actions
  accrete watch [flags]    Attach the live monitor to a running build's API
  accrete version [--json] Show version metadata

Build flags:
  --config PATH   Config file (default ./accrete.yaml if present)
  --src DIR       Source tree (overrides config)
  --tmp DIR       Temporary/output tree (overrides config)
  --rules DIR     Rule manifests directory (overrides config)
  -j N            Max concurrent actions (overrides config)
  --watch         Show the live build monitor in-process

Watch flags:
  --config PATH   Config file (default ./accrete.yaml if present)
  --api URL       Status API base URL (default from config api.listen)
`)
}

func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	srcDir := fs.String("src", "", "Source tree")
	tmpDir := fs.String("tmp", "", "Temporary tree")
	rulesDir := fs.String("rules", "", "Rules directory")
	maxActions := fs.Int("j", 0, "Max concurrent actions")
	watchFlag := fs.Bool("watch", false, "Show the live build monitor")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	if *srcDir != "" {
		cfg.Build.SrcDir = *srcDir
	}
	if *tmpDir != "" {
		cfg.Build.TmpDir = *tmpDir
	}
	if *rulesDir != "" {
		cfg.RulesDir = *rulesDir
	}
	if *maxActions > 0 {
		cfg.Build.MaxActions = *maxActions
	}

	log.Init(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")

	src, err := vfs.NewRoot(cfg.Build.SrcDir)
	if err != nil {
		logger.Error("bad source tree", "error", err)
		return 1
	}
	tmp, err := vfs.NewRoot(cfg.Build.TmpDir)
	if err != nil {
		logger.Error("bad tmp tree", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(256)
	tracker := dashboard.NewTracker()
	dashboards := []dashboard.Dashboard{tracker, dashboard.NewHubBridge(hub)}
	if !*watchFlag {
		dashboards = append(dashboards, dashboard.NewConsole())
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			logger.Error("failed to open journal", "error", err)
			return 1
		}
		defer func() { _ = j.Close() }()
		dashboards = append(dashboards, j.Dashboard())
		logger.Info("journal enabled", "path", cfg.Journal.Path, "run_id", j.RunID())
	}

	loop := eventloop.New()
	drv := build.New(loop, dashboard.NewMulti(dashboards...), src, tmp, cfg.Build.MaxActions)

	ruleSet, err := rules.Discover(cfg.RulesDir)
	if err != nil {
		logger.Error("failed to load rules", "error", err)
		return 1
	}
	if len(ruleSet) == 0 {
		logger.Warn("no rules discovered; nothing will build", "rules_dir", cfg.RulesDir)
	}
	for _, rule := range ruleSet {
		factory := rules.NewFactory(rule)
		drv.AddActionFactory(factory.Name(), factory)
	}

	if cfg.API.Enabled {
		server := api.New(api.Config{Listen: cfg.API.Listen}, tracker, hub, log.WithComponent("api"))
		go func() {
			if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("status API stopped", "error", err)
			}
		}()
	}

	buildDone := make(chan int, 1)
	go func() {
		buildDone <- driveBuild(ctx, loop, drv, tracker, logger)
	}()

	if *watchFlag {
		if err := watch.Run(hub); err != nil {
			logger.Error("watch TUI failed", "error", err)
		}
		stop() // user quit the monitor; wind the build down
	}

	return <-buildDone
}

// driveBuild runs the build to quiescence on this goroutine, reports blocked
// actions, and derives the exit code from the dashboard.
func driveBuild(ctx context.Context, loop *eventloop.Manager, drv *build.Driver, tracker *dashboard.Tracker, logger *slog.Logger) int {
	if err := drv.Start(); err != nil {
		logger.Error("build failed to start", "error", err)
		return 1
	}
	if err := loop.DrainWhile(ctx, drv.Busy); err != nil {
		logger.Error("build interrupted", "error", err)
	}
	for _, info := range tracker.Unfinished() {
		logger.Error("action never completed", "verb", info.Verb, "name", info.Name, "state", string(info.State))
	}
	drv.Shutdown()
	loop.RunUntilIdle()

	counts := tracker.CountByState()
	logger.Info("build finished",
		"done", counts[dashboard.StateDone],
		"passed", counts[dashboard.StatePassed],
		"failed", counts[dashboard.StateFailed],
	)
	if counts[dashboard.StateFailed] > 0 {
		return 1
	}
	return 0
}

// runWatch attaches the monitor to an already-running build through its
// status API event stream.
func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	apiURL := fs.String("api", "", "Status API base URL")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	log.Init(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("watch")

	url := *apiURL
	if url == "" {
		url = "http://" + cfg.API.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(256)
	go func() {
		if err := watch.Connect(ctx, url, hub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("build event stream ended", "api", url, "error", err)
		}
	}()

	if err := watch.Run(hub); err != nil {
		logger.Error("watch TUI failed", "error", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("accrete.yaml"); err == nil {
		return config.Load("accrete.yaml")
	}
	return config.Defaults(), nil
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("accrete %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    strings.TrimSpace(gitCommit),
		BuildTime: strings.TrimSpace(buildDate),
	}
	if info.Commit == "" || info.Commit == "unknown" {
		if rev := readBuildSetting("vcs.revision"); rev != "" {
			info.Commit = rev
		}
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

func readBuildSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range bi.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

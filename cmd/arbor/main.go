package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/arbordev/arbor/internal/config"
	"github.com/arbordev/arbor/internal/gitcli"
	"github.com/arbordev/arbor/internal/logx"
	"github.com/arbordev/arbor/internal/session"
	"github.com/arbordev/arbor/internal/source"
	"github.com/arbordev/arbor/internal/source/buffers"
	"github.com/arbordev/arbor/internal/source/filesystem"
	"github.com/arbordev/arbor/internal/source/gitstatus"
	"github.com/arbordev/arbor/internal/state"
	"github.com/arbordev/arbor/internal/ui"
	"github.com/arbordev/arbor/internal/version"
)

var (
	rootPath    = pflag.StringP("path", "p", ".", "root directory to browse")
	configPath  = pflag.StringP("config", "c", "", "path to the config file")
	sourceName  = pflag.StringP("source", "s", "", "source to open first (filesystem, buffers, git_status)")
	debugFlag   = pflag.BoolP("debug", "d", false, "enable debug logging")
	traceFlag   = pflag.Bool("trace", false, "enable per-keystroke trace logging")
	logFile     = pflag.String("log-file", "", "write logs to this file instead of stderr")
	versionFlag = pflag.BoolP("version", "V", false, "print version and exit")
)

func init() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: arbor [options]\n\n")
		fmt.Fprintf(os.Stderr, "A file explorer panel for the terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
	}
}

func main() {
	pflag.Parse()

	if *versionFlag {
		fmt.Printf("arbor %s\n", effectiveVersion())
		return
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	root, err := filepath.Abs(*rootPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve root: %v\n", err)
		os.Exit(1)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "not a directory: %s\n", root)
		os.Exit(1)
	}

	user, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	source.Register(filesystem.Spec(), filesystem.New)
	source.Register(buffers.Spec(), buffers.New)
	source.Register(gitstatus.Spec(), gitstatus.New)

	specs := []config.SourceSpec{filesystem.Spec(), buffers.Spec(), gitstatus.Spec()}
	cfg := config.Merge(user, specs, logger)

	var store *state.Store
	persisted := &state.State{}
	if dir, err := state.DefaultDir(); err == nil {
		store = state.NewStore(dir)
		st, err := store.Load()
		if err != nil {
			logger.Warn("session state unreadable, starting fresh", "err", err)
		}
		persisted = st
	} else {
		logger.Warn("no config directory, session state disabled", "err", err)
	}

	if *sourceName != "" {
		if _, ok := cfg.Resolved[*sourceName]; ok {
			persisted.Source = *sourceName
		} else {
			logger.Warn("unknown source requested", "source", *sourceName)
		}
	}

	bufs := session.NewBuffers()
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	model, bridge, err := ui.New(ui.Options{
		Root:    root,
		Config:  cfg,
		Log:     logger,
		Editor:  editor,
		Store:   store,
		Session: persisted,
		Buffers: bufs,
		Git:     gitcli.New(),
		Opened:  bufs.Touch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running arbor: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Without --log-file, logs go to
// stderr; the alternate screen hides them until exit.
func newLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	if *traceFlag {
		level = logx.LevelTrace
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeLog = func() { f.Close() }
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logx.ReplaceLevelNames,
	})
	return slog.New(handler), closeLog, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// effectiveVersion prefers the release stamp and falls back to module
// build info for go install and source builds.
func effectiveVersion() string {
	if version.Version != "devel" {
		return version.Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version.Version
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision != "" {
		v := "devel+" + revision
		if len(v) > 20 {
			v = v[:20]
		}
		if dirty {
			v += "+dirty"
		}
		return v
	}
	return version.Version
}

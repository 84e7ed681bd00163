// TinyTalkers is a language game for children: walk around the house and
// answer each family member's questions.
// Usage: tinytalkers [--version] [--plain | --gui] [--script <file>] [--trace] [--realtime] [game_directory]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/cli"
	"github.com/nathoo/tinytalkers/config"
	"github.com/nathoo/tinytalkers/engine"
	"github.com/nathoo/tinytalkers/gui"
	"github.com/nathoo/tinytalkers/loader"
	"github.com/nathoo/tinytalkers/logger"
	"github.com/nathoo/tinytalkers/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: tinytalkers [--version] [--plain | --gui] [--script <file>] [--trace] [--realtime] [game_directory]\n"

func main() {
	plain := false
	window := false
	trace := false
	live := false
	var gameDir string
	var scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("tinytalkers %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--gui":
			window = true
		case "--trace":
			trace = true
		case "--realtime":
			live = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		case "-h", "--help":
			fmt.Print(usage)
			return
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if gameDir == "" {
		gameDir = cfg.GameDir
	}

	// The TUI and the scripted CLI own stdout, so logs go to LOG_FILE or
	// nowhere.
	log := logger.Quiet(cfg.Logger())
	if window {
		if log, err = logger.New(cfg.Logger()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", append(cfg.Fields(), zap.String("version", version))...)

	defs, err := loader.Load(gameDir, loader.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}
	eng := engine.New(defs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scripts replay deterministically, so they never reach the network.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.RunContext(ctx)
		return
	}
	eng.Reseed(time.Now().UnixNano())

	w := wire(ctx, cfg, log)
	defer w.Close()

	if live {
		w.startRealtime(ctx, cfg)
	}

	switch {
	case window:
		opts := gui.Options{
			Services: w.services,
			Display:  w.display,
			Recorder: w.recorder,
			Assets:   gui.LoadAssets(filepath.Clean(gameDir), defs, log),
			Log:      log,
		}
		if w.speaker != nil {
			opts.Speech = w.speaker
		}
		err = gui.Run(ctx, eng, defs, opts)
	case plain || !isTerminal():
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs)
		c.Trace = trace
		c.Services = w.services
		c.Prefs = w.prefs
		c.RunContext(ctx)
	default:
		err = tui.Run(ctx, eng, defs, tui.Options{
			Services: w.services,
			Display:  w.display,
			Prefs:    w.prefs,
			Identity: "local",
			Log:      log,
		})
	}
	if err != nil {
		log.Error("front end failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

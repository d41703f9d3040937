package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kwv/blueways/network"
)

// App encapsulates the application state and dependencies
type App struct {
	Config    *network.Config
	Source    network.WaterwaySource
	Publisher network.SummaryPublisher
	Out       io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile    string
	DocumentFile  string
	BackupFile    string
	Align         bool
	Trace         bool
	DryRun        bool
	DumpWaterways string
	MaxSnapKm     float64
	Simplify      float64
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Out: os.Stdout}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.DocumentFile = opts.DocumentFile
	a.BackupFile = opts.BackupFile
	a.Align = opts.Align
	a.Trace = opts.Trace
	a.DryRun = opts.DryRun
	a.DumpWaterways = opts.DumpWaterways
	a.MaxSnapKm = opts.MaxSnapKm
	a.Simplify = opts.Simplify
}

// RunInitConfig writes the default configuration to the config path unless
// a file already exists there.
func (a *App) RunInitConfig() error {
	if _, err := os.Stat(a.ConfigFile); err == nil {
		return fmt.Errorf("refusing to overwrite existing config %s", a.ConfigFile)
	}
	if err := network.SaveConfig(a.ConfigFile, network.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Wrote default configuration to %s\n", a.ConfigFile)
	return nil
}

// RunPasses runs the selected passes against the route network and prints
// the summary.
func (a *App) RunPasses() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.Source == nil && a.Trace {
		a.Source = network.NewOverpassClientFromConfig(a.Config.Overpass)
	}

	if a.Publisher == nil {
		pub, err := network.ConnectPublisher(a.Config.MQTT)
		if err != nil {
			// Publishing is a side channel; the run goes ahead without it.
			log.Printf("Warning: %v", err)
		} else if pub != nil {
			defer pub.Close()
			a.Publisher = pub
		}
	}

	pipeline := network.NewPipeline(a.Config, a.Source)
	pipeline.Publisher = a.Publisher
	pipeline.DryRun = a.DryRun
	pipeline.WaterwayDump = a.DumpWaterways

	summary, err := pipeline.Run(ctx, network.Passes{Align: a.Align, Trace: a.Trace})
	a.printSummary(summary)
	return err
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, then applies command line overrides.
func (a *App) loadConfig() error {
	if a.Config == nil {
		config, err := network.LoadConfig(a.ConfigFile)
		if err != nil {
			if _, statErr := os.Stat(a.ConfigFile); !os.IsNotExist(statErr) {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log.Printf("No config at %s, using defaults", a.ConfigFile)
			config = network.DefaultConfig()
		} else {
			log.Printf("Loaded config from %s", a.ConfigFile)
		}
		a.Config = config
	}

	if a.DocumentFile != "" {
		a.Config.Document = a.DocumentFile
	}
	if a.BackupFile != "" {
		a.Config.Backup = a.BackupFile
	}
	if a.MaxSnapKm > 0 {
		a.Config.Trace.MaxSnapKm = a.MaxSnapKm
	}
	if a.Simplify > 0 {
		a.Config.Trace.SimplifyTolerance = a.Simplify
	}
	return a.Config.Validate()
}

func (a *App) printSummary(summary network.RunSummary) {
	out := a.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "\n=== Summary (run %s) ===\n", summary.RunID)
	if s := summary.Align; s != nil {
		fmt.Fprintf(out, "Alignment: %d fixed, %d reversed, %d errors\n", s.Fixed, s.Reversed, s.Errored)
		for _, o := range s.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(out, "  ✗ %s: %v\n", o.Route, o.Err)
			}
		}
	}
	if s := summary.Trace; s != nil {
		fmt.Fprintf(out, "Tracing: %d updated, %d skipped, %d failed\n", s.Updated, s.Skipped, s.Failed)
		for _, o := range s.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(out, "  ✗ %s: %v\n", o.Route, o.Err)
			}
		}
	}
	switch {
	case summary.Written:
		fmt.Fprintln(out, "Route network updated.")
	case a.DryRun:
		fmt.Fprintln(out, "Dry run: no files written.")
	default:
		fmt.Fprintln(out, "Route network unchanged.")
	}
}

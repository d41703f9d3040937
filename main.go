package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line.
type AppOptions struct {
	ConfigFile    string
	DocumentFile  string
	BackupFile    string
	Align         bool
	Trace         bool
	DryRun        bool
	DumpWaterways string
	MaxSnapKm     float64
	Simplify      float64
	InitConfig    bool
}

// Runner is implemented by App; tests substitute a recorder.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunInitConfig() error
	RunPasses() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("blueways", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "blueways.yaml", "Path to configuration file")
	fs.StringVar(&opts.DocumentFile, "document", "", "Route-network GeoJSON file (overrides config)")
	fs.StringVar(&opts.BackupFile, "backup", "", "Backup file written before changes (default <document>.backup)")
	fs.BoolVar(&opts.Align, "align", false, "Run the alignment pass: reverse and snap route endpoints to access points")
	fs.BoolVar(&opts.Trace, "trace", false, "Run the tracing pass: replace two-point routes with waterway paths")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Run the selected passes without writing any file")
	fs.StringVar(&opts.DumpWaterways, "dump-waterways", "", "Write fetched waterways as GeoJSON to this file")
	fs.Float64Var(&opts.MaxSnapKm, "max-snap-km", 0, "Maximum distance from a route endpoint to its waterway (overrides config)")
	fs.Float64Var(&opts.Simplify, "simplify", 0, "Douglas-Peucker tolerance in degrees for traced paths (overrides config)")
	fs.BoolVar(&opts.InitConfig, "init-config", false, "Write a default configuration file and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "blueways version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.InitConfig {
		return app.RunInitConfig()
	}

	if opts.Align || opts.Trace {
		return app.RunPasses()
	}

	fmt.Fprintln(out, "Nothing to do.")
	fmt.Fprintln(out, "Use --align to fix route direction and snap endpoints to access points")
	fmt.Fprintln(out, "Use --trace to trace two-point routes along OpenStreetMap waterways")
	fmt.Fprintln(out, "Use --align --trace to run both passes in one go")
	fmt.Fprintln(out, "Use --dry-run to report without writing")
	fmt.Fprintln(out, "Use --init-config to write a default blueways.yaml")
	return nil
}

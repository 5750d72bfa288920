package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Ranks     int
	AMRRanks  int
	NaluRanks int
	Exclusive bool
	OutputDir string
	LogLevel  string
	LogFormat string
	Verbose   bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "status":
			return runStatus(args[1:], stdout)
		case "export":
			return runExport(args[1:], stdout)
		}
	}

	var flags cliFlags

	fs := flag.NewFlagSet("exawind", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&flags.Ranks, "ranks", 1, "number of ranks in the pool")
	fs.IntVar(&flags.AMRRanks, "awind", 0, "ranks for the AMR solver (0 = whole pool)")
	fs.IntVar(&flags.NaluRanks, "nwind", 0, "ranks shared by the unstructured solvers (0 = whole pool)")
	fs.BoolVar(&flags.Exclusive, "exclusive", false, "forbid solver groups from sharing ranks")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "directory for timings.dat and memusage.dat")
	fs.StringVar(&flags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&flags.LogFormat, "log-format", "text", "log format: text or json")
	fs.BoolVar(&flags.Verbose, "verbose", false, "print phase progress")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	if fs.NArg() != 1 {
		return errors.New("usage: exawind [flags] <input.yaml>")
	}

	logger, err := newLogger(stderr, flags.LogLevel, flags.LogFormat)
	if err != nil {
		return err
	}

	return runCoupled(fs.Arg(0), flags, logger, stdout)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dusk-indust/oversetsim/internal/status"
)

func runStatus(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("exawind status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	watch := fs.Bool("watch", false, "reprint the summary whenever the run logs change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: exawind status [--watch] <dir>")
	}
	dir := fs.Arg(0)

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return status.Watch(ctx, dir, 0, func(st *status.RunStatus) {
			printStatus(w, st)
			fmt.Fprintln(w)
		})
	}

	st, err := status.Summarize(dir)
	if err != nil {
		return err
	}
	printStatus(w, st)
	return nil
}

func printStatus(w io.Writer, st *status.RunStatus) {
	fmt.Fprintf(w, "Run: %s\n", st.Dir)
	if st.RunID != "" {
		fmt.Fprintf(w, "  ID:        %s\n", st.RunID)
	}
	fmt.Fprintf(w, "  Last step: %d\n", st.LastStep)
	if st.Ranks > 0 {
		fmt.Fprintf(w, "  Ranks:     %d\n", st.Ranks)
		fmt.Fprintf(w, "  Peak mem:  %d MB\n", st.PeakMemoryMB)
	}

	if len(st.Phases) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, p := range st.Phases {
		name := p.Label + "::" + p.Phase
		fmt.Fprintf(w, "  %-32s %4d steps  total %10.4fs  peak %10.4fs\n", name, p.Steps, p.TotalAvg, p.PeakMax)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/config"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/orchestrator"
	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/surrogate"
)

// solverSpec pairs a solver kind with its construction parameters. The
// index into the plan matches the index into the partitioned groups.
type solverSpec struct {
	kind   solver.Kind
	params solver.Params
}

func planSolvers(cfg *config.Exawind) []solverSpec {
	var plan []solverSpec
	if cfg.UseAMR() {
		plan = append(plan, solverSpec{
			kind: solver.KindAMR,
			params: solver.Params{
				InputFile: cfg.AMRWindInput,
				CellVars:  cfg.AMRCellVars,
				NodeVars:  cfg.AMRNodeVars,
			},
		})
	}
	for i, inp := range cfg.NaluWindInputs {
		plan = append(plan, solverSpec{
			kind: solver.KindUnstructured,
			params: solver.Params{
				Index:     i,
				InputFile: inp,
				Overrides: cfg.Overrides(i),
				Fields:    cfg.NaluVars,
			},
		})
	}
	return plan
}

func runCoupled(inputPath string, flags cliFlags, logger *slog.Logger, stdout io.Writer) error {
	cfg, err := config.Load(inputPath)
	if err != nil {
		return err
	}

	layout, err := config.PlanLayout(flags.Ranks, flags.AMRRanks, flags.NaluRanks,
		len(cfg.NaluWindInputs), cfg.UseAMR(), flags.Exclusive)
	if err != nil {
		return err
	}

	if flags.OutputDir != "" {
		if err := os.MkdirAll(flags.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Info("starting coupled run", "input", inputPath, "ranks", flags.Ranks,
		"amr", cfg.UseAMR(), "unstructured", len(cfg.NaluWindInputs), "steps", cfg.Steps())

	registry := solver.NewRegistry()
	surrogate.Register(registry)
	plan := planSolvers(cfg)

	progress := func(orchestrator.PhaseEvent) {}
	var wg sync.WaitGroup
	if flags.Verbose {
		reporter := orchestrator.NewProgressReporter()
		progress = reporter.Emit
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(stdout, orchestrator.FormatProgress(ev))
			}
		}()
		defer func() {
			reporter.Close()
			wg.Wait()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = comm.Run(ctx, flags.Ranks, func(ctx context.Context, world comm.Comm) error {
		groups, err := comm.Partition(ctx, world, layout.Specs(), flags.Exclusive)
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			OutputDir: flags.OutputDir,
			RunID:     runID,
			Logger:    logger,
			Stdout:    stdout,
		}
		if world.Rank() == opts.IORank {
			opts.Progress = progress
		}
		backend := connectivity.NewLocal()
		sim := orchestrator.NewSimulation(world, backend, opts)

		for i, spec := range plan {
			if groups[i] == nil {
				continue
			}
			p := spec.params
			p.Comm = groups[i]
			p.Backend = backend
			p.Logger = logger.With("rank", world.Rank())
			s, err := registry.Spawn(spec.kind, p)
			if err != nil {
				return err
			}
			if err := sim.RegisterSolver(s); err != nil {
				return err
			}
		}

		if err := sim.Initialize(ctx); err != nil {
			return err
		}
		if err := sim.RunTimesteps(ctx, cfg.AdditionalPicardIterations, cfg.NonlinearIterations, cfg.Steps()); err != nil {
			return err
		}
		return sim.Finalize(ctx)
	})
	if err != nil {
		logger.Error("coupled run failed", "error", err)
		return err
	}
	logger.Info("coupled run complete")
	return nil
}

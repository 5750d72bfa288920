package orchestrator

import (
	"context"
	"fmt"
)

// PerformOversetConnectivity runs one connectivity round: pre-work on every
// solver, AMR preprocessing when an AMR solver takes part, profiling and
// connectivity in the backend, then post-work on every solver. Every rank of
// the pool must call it.
func (s *Simulation) PerformOversetConnectivity(ctx context.Context) error {
	s.emit(PhaseConnectivity, 0, PhaseWorking, "")
	for _, in := range s.roster {
		if err := in.CallPreOversetConnWork(ctx); err != nil {
			return s.fail(PhaseConnectivity, 0, err)
		}
	}

	err := s.oversetTimers.Time(timerConnectivity, false, func() error {
		if s.hasAMR {
			if err := s.backend.PreprocessAMRData(ctx); err != nil {
				return fmt.Errorf("orchestrator: preprocess AMR data: %w", err)
			}
		}
		if err := s.backend.Profile(ctx); err != nil {
			return fmt.Errorf("orchestrator: profile: %w", err)
		}
		if err := s.backend.PerformConnectivity(ctx); err != nil {
			return fmt.Errorf("orchestrator: connectivity: %w", err)
		}
		if s.hasAMR {
			if err := s.backend.PerformConnectivityAMR(ctx); err != nil {
				return fmt.Errorf("orchestrator: AMR connectivity: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(PhaseConnectivity, 0, err)
	}

	for _, in := range s.roster {
		if err := in.CallPostOversetConnWork(ctx); err != nil {
			return s.fail(PhaseConnectivity, 0, err)
		}
	}
	s.emit(PhaseConnectivity, 0, PhaseComplete, "")
	s.log.Debug("connectivity updated", "step", s.step)
	return nil
}

// ExchangeSolution runs one solution-exchange round: every solver registers
// its fields, the backend moves data, and every solver reads the update back.
// An incremental exchange accumulates into the exchange timer. Every rank of
// the pool must call it.
func (s *Simulation) ExchangeSolution(ctx context.Context, incremental bool) error {
	return s.exchange(ctx, 0, incremental)
}

func (s *Simulation) exchange(ctx context.Context, iter int, incremental bool) error {
	s.emit(PhaseExchange, iter, PhaseWorking, "")
	for _, in := range s.roster {
		if err := in.CallRegisterSolution(ctx); err != nil {
			return s.fail(PhaseExchange, iter, err)
		}
	}

	err := s.oversetTimers.Time(timerExchange, incremental, func() error {
		if s.hasAMR {
			if err := s.backend.DataUpdateAMR(ctx); err != nil {
				return fmt.Errorf("orchestrator: AMR data update: %w", err)
			}
			return nil
		}
		if err := s.backend.DataUpdate(ctx, s.ncomps, false); err != nil {
			return fmt.Errorf("orchestrator: data update (%d components): %w", s.ncomps, err)
		}
		return nil
	})
	if err != nil {
		return s.fail(PhaseExchange, iter, err)
	}

	for _, in := range s.roster {
		if err := in.CallUpdateSolution(ctx); err != nil {
			return s.fail(PhaseExchange, iter, err)
		}
	}
	s.emit(PhaseExchange, iter, PhaseComplete, "")
	return nil
}

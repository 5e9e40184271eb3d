// Package runner drives the fixed-count agent/env loop described in spec
// §4.6. The loop itself is the teacher's single-threaded cooperative
// scheduling model (spec §5); it is wrapped in a gopkg.in/tomb.v2
// supervised goroutine, the same supervision pattern internal/worker.go's
// WorkerPool uses for a pool of TCP connection handlers, repurposed here
// for a simulation run instead of a listener loop. Run and RunMarket block
// until the loop ends; callers stop a run early by cancelling its context. Exactly one goroutine ever runs the loop body, so this
// does not introduce the parallelism spec §5 says the core must not have.
package runner

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"bourse/internal/agents"
	"bourse/internal/simenv"
)

// Run seeds a deterministic PRNG and loops nSteps times calling
// agents.Update(env, rng) then env.Step(rng), matching spec §4.6's
// sim_runner exactly. showProgress, if true, logs a line every 10% of
// progress; full progress-bar reporting is out of scope (spec §1).
//
// The loop runs inside a tomb.Tomb-supervised goroutine and Run blocks
// until it ends: cancelling ctx stops the loop between steps, and Run then
// returns nil promptly instead of running the remainder of nSteps.
func Run(ctx context.Context, env *simenv.Env, agentSet agents.AgentSet[*simenv.Env], seed int64, nSteps int, showProgress bool) error {
	rng := rand.New(rand.NewSource(seed))
	t, _ := tomb.WithContext(ctx)
	t.Go(func() error {
		for i := 0; i < nSteps; i++ {
			select {
			case <-t.Dying():
				return nil
			default:
			}
			agentSet.Update(env, rng)
			env.Step(rng)
			logProgress(i, nSteps, showProgress)
		}
		return nil
	})
	if err := t.Wait(); err != nil && err != ctx.Err() {
		return err
	}
	return nil
}

// RunMarket is the multi-asset twin of Run, over a simenv.MarketEnv.
func RunMarket(ctx context.Context, env *simenv.MarketEnv, agentSet agents.AgentSet[*simenv.MarketEnv], seed int64, nSteps int, showProgress bool) error {
	rng := rand.New(rand.NewSource(seed))
	t, _ := tomb.WithContext(ctx)
	t.Go(func() error {
		for i := 0; i < nSteps; i++ {
			select {
			case <-t.Dying():
				return nil
			default:
			}
			agentSet.Update(env, rng)
			env.Step(rng)
			logProgress(i, nSteps, showProgress)
		}
		return nil
	})
	if err := t.Wait(); err != nil && err != ctx.Err() {
		return err
	}
	return nil
}

func logProgress(step, nSteps int, showProgress bool) {
	if !showProgress || nSteps == 0 {
		return
	}
	tenth := nSteps / 10
	if tenth == 0 || step%tenth == 0 {
		log.Info().Int("step", step).Int("n_steps", nSteps).Msg("simulation progress")
	}
}

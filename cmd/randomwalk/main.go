// Command randomwalk wires a trivial two-sided noise agent through
// internal/runner, standing in for the source crate's examples/ binaries
// (crates/step_sim/examples/*). It takes no flags and parses no arguments,
// so it is a demonstration program rather than the CLI spec §1 excludes
// from the core.
package main

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bourse/internal/agents"
	"bourse/internal/runner"
	"bourse/internal/simenv"
	"bourse/internal/types"
)

// noiseTrader places a small random limit order around the last touch
// price each step. It exists only to give the runner something to drive;
// sampling strategy and distribution choices are out of scope (spec §1).
type noiseTrader struct {
	traderID types.TraderID
	tickSize types.Price
}

func (n noiseTrader) Update(env *simenv.Env, rng *rand.Rand) {
	data := env.Level1Data()
	mid := data.BidPrice/2 + data.AskPrice/2
	if mid == 0 || mid == types.MaxPrice/2 {
		mid = 100 * n.tickSize
	}
	offset := types.Price(rng.Intn(5)) * n.tickSize
	vol := types.Vol(1 + rng.Intn(10))

	if rng.Intn(2) == 0 {
		price := mid - offset
		if price == 0 {
			price = n.tickSize
		}
		_, _ = env.PlaceOrder(types.Bid, vol, n.traderID, &price)
	} else {
		price := mid + offset
		_, _ = env.PlaceOrder(types.Ask, vol, n.traderID, &price)
	}
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	env := simenv.New(0, 1, 1000, true)
	herd := agents.Group[*simenv.Env]{
		noiseTrader{traderID: 1, tickSize: 1},
		noiseTrader{traderID: 2, tickSize: 1},
	}

	if err := runner.Run(context.Background(), env, herd, 42, 200, true); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}

	l1 := env.Level1Data()
	log.Info().
		Uint32("bid_price", l1.BidPrice).
		Uint32("ask_price", l1.AskPrice).
		Int("steps_recorded", env.History().Len()).
		Msg("simulation complete")
}

package runner

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/agents"
	"bourse/internal/simenv"
	"bourse/internal/types"
)

type constantQuoter struct {
	traderID types.TraderID
}

func (c constantQuoter) Update(env *simenv.Env, rng *rand.Rand) {
	price := types.Price(50)
	_, _ = env.PlaceOrder(types.Bid, 1, c.traderID, &price)
}

func TestRunDrivesAgentsThenSteps(t *testing.T) {
	env := simenv.New(0, 1, 1, true)
	herd := agents.Group[*simenv.Env]{constantQuoter{traderID: 1}}

	err := Run(context.Background(), env, herd, 1, 10, false)
	require.NoError(t, err)

	assert.Equal(t, 10, env.History().Len())
	assert.Equal(t, types.Vol(10), env.OrderBook().BidVol())
}

func TestRunStopsEarlyWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := simenv.New(0, 1, 1, true)
	herd := agents.Group[*simenv.Env]{constantQuoter{traderID: 1}}

	err := Run(ctx, env, herd, 1, 1000, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, env.History().Len(), 1000)
}

func TestRunMarketDrivesMultiAssetEnv(t *testing.T) {
	env := simenv.NewMarket(0, []types.Price{1, 1}, 1, true)
	herd := agents.Func[*simenv.MarketEnv](func(e *simenv.MarketEnv, rng *rand.Rand) {
		price := types.Price(50)
		_, _ = e.PlaceOrder(0, types.Bid, 1, 1, &price)
	})

	err := RunMarket(context.Background(), env, herd, 1, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, env.History(0).Len())
	assert.Equal(t, types.Vol(5), env.Market().Book(0).BidVol())
}

package simenv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/types"
)

func price(p types.Price) *types.Price { return &p }

func TestStepAppliesQueuedOrdersAndAdvancesClock(t *testing.T) {
	e := New(0, 1, 10, true)

	_, err := e.PlaceOrder(types.Ask, 10, 1, price(100))
	require.NoError(t, err)
	_, err = e.PlaceOrder(types.Bid, 10, 2, price(90))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	e.Step(rng)

	bid, ask := e.OrderBook().BidAsk()
	assert.Equal(t, types.Price(90), bid)
	assert.Equal(t, types.Price(100), ask)
	assert.Equal(t, types.Nanos(10), e.OrderBook().GetTime())
	assert.Equal(t, 1, e.History().Len())
	assert.Equal(t, []types.Vol{0}, e.TradeVolHistory())
}

func TestStepRecordsTradeVolumeAndResetsBetweenSteps(t *testing.T) {
	e := New(0, 1, 5, true)

	_, err := e.PlaceOrder(types.Ask, 10, 1, price(50))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	e.Step(rng)

	_, err = e.PlaceOrder(types.Bid, 10, 2, nil)
	require.NoError(t, err)
	e.Step(rng)

	history := e.TradeVolHistory()
	require.Len(t, history, 2)
	assert.Equal(t, types.Vol(0), history[0])
	assert.Equal(t, types.Vol(10), history[1])
}

func TestEventsWithinStepGetStrictlyIncreasingArrTimes(t *testing.T) {
	e := New(100, 1, 10, true)

	var ids []types.OrderID
	for i := 0; i < 5; i++ {
		id, err := e.PlaceOrder(types.Bid, 1, types.TraderID(i), price(types.Price(10+i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	rng := rand.New(rand.NewSource(7))
	e.Step(rng)

	seen := map[types.Nanos]bool{}
	for _, id := range ids {
		o := e.Order(id)
		assert.GreaterOrEqual(t, o.ArrTime, types.Nanos(100))
		assert.Less(t, o.ArrTime, types.Nanos(110))
		assert.False(t, seen[o.ArrTime], "arr_time must be unique within a step")
		seen[o.ArrTime] = true
	}
}

func TestDeterministicWithSameSeed(t *testing.T) {
	run := func(seed int64) ([]types.Price, []types.Vol) {
		e := New(0, 1, 10, true)
		for i := 0; i < 20; i++ {
			side := types.Ask
			if i%2 == 0 {
				side = types.Bid
			}
			_, err := e.PlaceOrder(side, types.Vol(1+i%5), types.TraderID(i), price(types.Price(90+i%10)))
			require.NoError(t, err)
			rng := rand.New(rand.NewSource(seed + int64(i)))
			e.Step(rng)
		}
		return e.History().BidPrices, e.TradeVolHistory()
	}

	bidsA, tradesA := run(42)
	bidsB, tradesB := run(42)
	assert.Equal(t, bidsA, bidsB)
	assert.Equal(t, tradesA, tradesB)
}

func TestDisableTradingRejectsMarketOrdersButRestsLimits(t *testing.T) {
	e := New(0, 1, 10, false)

	limitID, err := e.PlaceOrder(types.Ask, 10, 1, price(100))
	require.NoError(t, err)
	marketID, err := e.PlaceOrder(types.Bid, 10, 2, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	e.Step(rng)

	assert.Equal(t, types.Active, e.Order(limitID).Status)
	assert.Equal(t, types.Rejected, e.Order(marketID).Status)
}

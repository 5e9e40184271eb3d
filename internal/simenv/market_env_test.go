package simenv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/types"
)

func TestMarketEnvStepFansOutAcrossAssets(t *testing.T) {
	e := NewMarket(0, []types.Price{1, 1}, 10, true)

	_, err := e.PlaceOrder(0, types.Ask, 10, 1, price(100))
	require.NoError(t, err)
	_, err = e.PlaceOrder(1, types.Bid, 5, 2, price(20))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	e.Step(rng)

	bids, asks := e.Market().BidAsks()
	assert.Equal(t, types.Price(0), bids[0])
	assert.Equal(t, types.Price(100), asks[0])
	assert.Equal(t, types.Price(20), bids[1])
	assert.Equal(t, types.MaxPrice, asks[1])

	assert.Equal(t, 1, e.History(0).Len())
	assert.Equal(t, 1, e.History(1).Len())
}

func TestMarketEnvCancelAndModifyRouteByAsset(t *testing.T) {
	e := NewMarket(0, []types.Price{1, 1}, 10, true)

	id, err := e.PlaceOrder(1, types.Bid, 10, 1, price(50))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	e.Step(rng)

	e.ModifyOrder(id, nil, volPtr(4))
	e.Step(rng)
	assert.Equal(t, types.Vol(4), e.Order(id).Vol)

	e.CancelOrder(id)
	e.Step(rng)
	assert.Equal(t, types.Cancelled, e.Order(id).Status)
	assert.Equal(t, types.Vol(0), e.Market().Book(1).BidVol())
	assert.Equal(t, 1, id.Asset)
}

func volPtr(v types.Vol) *types.Vol { return &v }

package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/types"
)

func price(p types.Price) *types.Price { return &p }

func TestMarketFansOutIndependentBooks(t *testing.T) {
	m := New(0, []types.Price{1, 5}, true)
	require.Equal(t, 2, m.NAssets())

	_, err := m.CreateAndPlaceOrder(0, types.Bid, 10, 1, price(50))
	require.NoError(t, err)
	_, err = m.CreateAndPlaceOrder(1, types.Ask, 10, 1, price(100))
	require.NoError(t, err)

	bids, asks := m.BidAsks()
	assert.Equal(t, types.Price(50), bids[0])
	assert.Equal(t, types.MaxPrice, asks[0])
	assert.Equal(t, types.Price(0), bids[1])
	assert.Equal(t, types.Price(100), asks[1])
}

func TestMarketClockAdvancesInLockstep(t *testing.T) {
	m := New(0, []types.Price{1, 1, 1}, true)
	m.SetTime(42)
	for i := 0; i < m.NAssets(); i++ {
		assert.Equal(t, types.Nanos(42), m.Book(i).GetTime())
	}
	assert.Equal(t, types.Nanos(42), m.GetTime())
}

func TestMarketProcessEventRoutesToAsset(t *testing.T) {
	m := New(0, []types.Price{1, 1}, true)

	id, err := m.CreateOrder(1, types.Bid, 10, 1, price(50))
	require.NoError(t, err)

	m.ProcessEvent(types.MarketEvent{Asset: 1, Event: types.NewOrderEvent(id.ID)})

	o := m.Order(id)
	assert.Equal(t, types.Active, o.Status)
	assert.Equal(t, types.Vol(10), m.Book(1).BidVol())
	assert.Equal(t, types.Vol(0), m.Book(0).BidVol())
}

func TestMarketSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/market.json"

	m := New(0, []types.Price{1, 2}, true)
	_, err := m.CreateAndPlaceOrder(0, types.Ask, 10, 1, price(100))
	require.NoError(t, err)
	_, err = m.CreateAndPlaceOrder(1, types.Bid, 5, 2, price(20))
	require.NoError(t, err)

	require.NoError(t, m.SaveJSON(path))

	restored, err := LoadJSON(path)
	require.NoError(t, err)
	require.Equal(t, m.NAssets(), restored.NAssets())

	wantBids, wantAsks := m.BidAsks()
	gotBids, gotAsks := restored.BidAsks()
	assert.Equal(t, wantBids, gotBids)
	assert.Equal(t, wantAsks, gotAsks)
}

package simenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/types"
)

func TestLevel2HistoryFirstLevelIsTouch(t *testing.T) {
	h := newLevel2History(3)

	h.append(types.Level2Data{
		BidPrice: 50, AskPrice: 60, BidVol: 5, AskVol: 7,
		BidLevels: []types.PriceLevel{{Vol: 5, OrderCount: 1}, {Vol: 2, OrderCount: 1}},
		AskLevels: []types.PriceLevel{{Vol: 7, OrderCount: 2}},
	})

	require.Equal(t, 1, h.Len())
	assert.Equal(t, []types.Price{50}, h.BidPrices)
	assert.Equal(t, []types.Price{60}, h.AskPrices)
	assert.Equal(t, types.Vol(5), h.BidVolsAtLevel[0][0])
	assert.Equal(t, types.Vol(2), h.BidVolsAtLevel[1][0])
	assert.Equal(t, types.Vol(0), h.BidVolsAtLevel[2][0], "missing level reports zero")
	assert.Equal(t, types.OrderCount(2), h.AskOrdersAtLevel[0][0])
}

package simenv

import "bourse/internal/types"

// Level2History is the column-oriented record of per-step level-2 snapshots
// described in spec §4.5.1: one entry is appended per Step call. Touch
// volume/order-count history is exposed as the first entry of the
// per-level slices.
type Level2History struct {
	BidPrices []types.Price
	AskPrices []types.Price

	BidVols []types.Vol
	AskVols []types.Vol

	// BidVolsAtLevel[level] is the history of resting volume at that
	// level, across steps; BidVolsAtLevel[0] is touch volume history.
	BidVolsAtLevel [][]types.Vol
	AskVolsAtLevel [][]types.Vol

	BidOrdersAtLevel [][]types.OrderCount
	AskOrdersAtLevel [][]types.OrderCount
}

func newLevel2History(levels int) *Level2History {
	h := &Level2History{
		BidVolsAtLevel:   make([][]types.Vol, levels),
		AskVolsAtLevel:   make([][]types.Vol, levels),
		BidOrdersAtLevel: make([][]types.OrderCount, levels),
		AskOrdersAtLevel: make([][]types.OrderCount, levels),
	}
	return h
}

// append records one step's level-2 snapshot.
func (h *Level2History) append(data types.Level2Data) {
	h.BidPrices = append(h.BidPrices, data.BidPrice)
	h.AskPrices = append(h.AskPrices, data.AskPrice)
	h.BidVols = append(h.BidVols, data.BidVol)
	h.AskVols = append(h.AskVols, data.AskVol)
	for i := range h.BidVolsAtLevel {
		var bidLevel, askLevel types.PriceLevel
		if i < len(data.BidLevels) {
			bidLevel = data.BidLevels[i]
		}
		if i < len(data.AskLevels) {
			askLevel = data.AskLevels[i]
		}
		h.BidVolsAtLevel[i] = append(h.BidVolsAtLevel[i], bidLevel.Vol)
		h.AskVolsAtLevel[i] = append(h.AskVolsAtLevel[i], askLevel.Vol)
		h.BidOrdersAtLevel[i] = append(h.BidOrdersAtLevel[i], bidLevel.OrderCount)
		h.AskOrdersAtLevel[i] = append(h.AskOrdersAtLevel[i], askLevel.OrderCount)
	}
}

// Len is the number of steps recorded.
func (h *Level2History) Len() int { return len(h.BidPrices) }

package book

import (
	"github.com/tidwall/btree"

	"bourse/internal/types"
)

// volLevel is the per-price aggregate the vol_by_price index stores: total
// resting volume and order count at one price_key.
type volLevel struct {
	priceKey types.Price
	vol      types.Vol
	count    types.OrderCount
}

// keyEntry is one (price_key, arr_time) -> order_id row of the orders_by_key
// index.
type keyEntry struct {
	priceKey types.Price
	arrTime  types.Nanos
	orderID  types.OrderID
}

func volLess(a, b *volLevel) bool { return a.priceKey < b.priceKey }

func keyLess(a, b *keyEntry) bool {
	if a.priceKey != b.priceKey {
		return a.priceKey < b.priceKey
	}
	return a.arrTime < b.arrTime
}

// sideIndex is the side-agnostic core of SideFunctionality: both bid and
// ask sides use the same ascending-by-price_key ordered maps, differing
// only in how an external display price maps to price_key (see BidSide and
// AskSide). total_vol, vol_by_price and orders_by_key from spec §3 are
// vol/vols/orders below.
type sideIndex struct {
	vol    types.Vol
	vols   *btree.BTreeG[*volLevel]
	orders *btree.BTreeG[*keyEntry]
}

func newSideIndex() *sideIndex {
	return &sideIndex{
		vols:   btree.NewBTreeG(volLess),
		orders: btree.NewBTreeG(keyLess),
	}
}

func (s *sideIndex) insert(key types.OrderKey, id types.OrderID, vol types.Vol) {
	s.orders.Set(&keyEntry{priceKey: key.PriceKey, arrTime: key.ArrTime, orderID: id})
	if lvl, ok := s.vols.GetMut(&volLevel{priceKey: key.PriceKey}); ok {
		lvl.vol += vol
		lvl.count++
	} else {
		s.vols.Set(&volLevel{priceKey: key.PriceKey, vol: vol, count: 1})
	}
	s.vol += vol
}

func (s *sideIndex) remove(key types.OrderKey, vol types.Vol) {
	s.orders.Delete(&keyEntry{priceKey: key.PriceKey, arrTime: key.ArrTime})
	if lvl, ok := s.vols.GetMut(&volLevel{priceKey: key.PriceKey}); ok {
		lvl.vol -= vol
		lvl.count--
		if lvl.count == 0 {
			s.vols.Delete(lvl)
		}
	}
	s.vol -= vol
}

// removeVol reduces a level's resting volume without changing its order
// count or membership in orders_by_key, used for partial passive fills
// where the order stays at its key with reduced size.
func (s *sideIndex) removeVol(priceKey types.Price, vol types.Vol) {
	if lvl, ok := s.vols.GetMut(&volLevel{priceKey: priceKey}); ok {
		lvl.vol -= vol
	}
	s.vol -= vol
}

// bestPriceKey returns the lowest price_key present, or types.MaxPrice when
// empty.
func (s *sideIndex) bestPriceKey() types.Price {
	if e, ok := s.orders.Min(); ok {
		return e.priceKey
	}
	return types.MaxPrice
}

func (s *sideIndex) bestVolAndOrders() (types.Vol, types.OrderCount) {
	if lvl, ok := s.vols.Min(); ok {
		return lvl.vol, lvl.count
	}
	return 0, 0
}

func (s *sideIndex) bestOrderID() (types.OrderID, bool) {
	if e, ok := s.orders.Min(); ok {
		return e.orderID, true
	}
	return 0, false
}

func (s *sideIndex) volAndOrdersAtPriceKey(priceKey types.Price) (types.Vol, types.OrderCount) {
	if lvl, ok := s.vols.Get(&volLevel{priceKey: priceKey}); ok {
		return lvl.vol, lvl.count
	}
	return 0, 0
}

// SideFunctionality is the per-side ordered index described in spec §4.1:
// best price/order, per-price aggregates, and total resting volume. BidSide
// and AskSide are the only two implementations, differing in the
// display-price <-> price_key mapping and the empty-side sentinel.
type SideFunctionality interface {
	Insert(key types.OrderKey, id types.OrderID, vol types.Vol)
	Remove(key types.OrderKey, vol types.Vol)
	RemoveVol(price types.Price, vol types.Vol)
	BestPrice() types.Price
	BestVolAndOrders() (types.Vol, types.OrderCount)
	BestOrderID() (types.OrderID, bool)
	VolAndOrdersAtPrice(price types.Price) (types.Vol, types.OrderCount)
	Vol() types.Vol
	// Levels walks n ticks from the touch in the side's natural direction
	// (descending display price for bids, ascending for asks), returning
	// zeroed entries for missing levels.
	Levels(tickSize types.Price, n int) []types.PriceLevel
}

// BidSide normalizes display price to price_key = MaxPrice - price, so
// ascending price_key order is descending display-price order and the
// first key is the best (highest) bid.
type BidSide struct{ idx *sideIndex }

func newBidSide() *BidSide { return &BidSide{idx: newSideIndex()} }

func (b *BidSide) Insert(key types.OrderKey, id types.OrderID, vol types.Vol) {
	b.idx.insert(key, id, vol)
}
func (b *BidSide) Remove(key types.OrderKey, vol types.Vol) { b.idx.remove(key, vol) }
func (b *BidSide) RemoveVol(price types.Price, vol types.Vol) {
	b.idx.removeVol(types.MaxPrice-price, vol)
}

// BestPrice returns 0 when the bid side is empty.
func (b *BidSide) BestPrice() types.Price { return types.MaxPrice - b.idx.bestPriceKey() }

func (b *BidSide) BestVolAndOrders() (types.Vol, types.OrderCount) { return b.idx.bestVolAndOrders() }
func (b *BidSide) BestOrderID() (types.OrderID, bool)              { return b.idx.bestOrderID() }

func (b *BidSide) VolAndOrdersAtPrice(price types.Price) (types.Vol, types.OrderCount) {
	return b.idx.volAndOrdersAtPriceKey(types.MaxPrice - price)
}

func (b *BidSide) Vol() types.Vol { return b.idx.vol }

func (b *BidSide) Levels(tickSize types.Price, n int) []types.PriceLevel {
	best := b.BestPrice()
	out := make([]types.PriceLevel, n)
	for i := 0; i < n; i++ {
		price := best - types.Price(i)*tickSize // wraps below 0, yielding a missing level
		vol, cnt := b.VolAndOrdersAtPrice(price)
		out[i] = types.PriceLevel{Vol: vol, OrderCount: cnt}
	}
	return out
}

// AskSide uses price_key = price directly; the first key is the best
// (lowest) ask.
type AskSide struct{ idx *sideIndex }

func newAskSide() *AskSide { return &AskSide{idx: newSideIndex()} }

func (a *AskSide) Insert(key types.OrderKey, id types.OrderID, vol types.Vol) {
	a.idx.insert(key, id, vol)
}
func (a *AskSide) Remove(key types.OrderKey, vol types.Vol) { a.idx.remove(key, vol) }
func (a *AskSide) RemoveVol(price types.Price, vol types.Vol) {
	a.idx.removeVol(price, vol)
}

// BestPrice returns types.MaxPrice when the ask side is empty.
func (a *AskSide) BestPrice() types.Price { return a.idx.bestPriceKey() }

func (a *AskSide) BestVolAndOrders() (types.Vol, types.OrderCount) { return a.idx.bestVolAndOrders() }
func (a *AskSide) BestOrderID() (types.OrderID, bool)              { return a.idx.bestOrderID() }

func (a *AskSide) VolAndOrdersAtPrice(price types.Price) (types.Vol, types.OrderCount) {
	return a.idx.volAndOrdersAtPriceKey(price)
}

func (a *AskSide) Vol() types.Vol { return a.idx.vol }

func (a *AskSide) Levels(tickSize types.Price, n int) []types.PriceLevel {
	best := a.BestPrice()
	out := make([]types.PriceLevel, n)
	for i := 0; i < n; i++ {
		price := best + types.Price(i)*tickSize // wraps past MaxPrice, yielding a missing level
		vol, cnt := a.VolAndOrdersAtPrice(price)
		out[i] = types.PriceLevel{Vol: vol, OrderCount: cnt}
	}
	return out
}

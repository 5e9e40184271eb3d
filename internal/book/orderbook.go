// Package book implements the price-time-priority matching engine: the
// per-side ordered index (side.go), the order arena, and the OrderBook
// itself, grounded on the btree-based price-level structure in
// internal/engine/orderbook.go of the teacher repository and on the
// matching/lifecycle rules of the bourse order_book crate this system was
// distilled from.
package book

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bourse/internal/types"
)

const defaultLevels = 10

// PriceError is returned by CreateOrder/CreateAndPlaceOrder when a supplied
// limit price is not a positive multiple of the book's tick size.
type PriceError struct {
	Price    types.Price
	TickSize types.Price
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("price %d is not a multiple of tick size %d", e.Price, e.TickSize)
}

// orderEntry pairs an order with the book-internal key it was last (or
// would be) inserted under, so cancel/modify can locate the side-index row
// without re-deriving it.
type orderEntry struct {
	order types.Order
	key   types.OrderKey
}

// OrderBook is a single-asset, price-time-priority matching engine. It
// exclusively owns its order arena and both side indices; all accessors
// return copies, never live references into book state.
type OrderBook struct {
	id       uuid.UUID
	t        types.Nanos
	tickSize types.Price
	tradeVol types.Vol
	trading  bool
	levels   int

	bid *BidSide
	ask *AskSide

	arena  []orderEntry
	trades []types.Trade
}

// Option configures an OrderBook at construction time.
type Option func(*OrderBook)

// WithLevels overrides the default number of levels (10) reported by
// Level2Data/BidLevels/AskLevels.
func WithLevels(n int) Option {
	return func(b *OrderBook) { b.levels = n }
}

// New constructs an empty order book.
func New(startTime types.Nanos, tickSize types.Price, trading bool, opts ...Option) *OrderBook {
	b := &OrderBook{
		id:       uuid.New(),
		t:        startTime,
		tickSize: tickSize,
		trading:  trading,
		levels:   defaultLevels,
		bid:      newBidSide(),
		ask:      newAskSide(),
	}
	for _, opt := range opts {
		opt(b)
	}
	log.Debug().Str("book_id", b.id.String()).Uint32("tick_size", b.tickSize).Bool("trading", b.trading).Msg("order book constructed")
	return b
}

// ID returns the book's run identifier, used to disambiguate saved
// snapshots from concurrent runs.
func (b *OrderBook) ID() uuid.UUID { return b.id }

// GetTime returns the book's current clock.
func (b *OrderBook) GetTime() types.Nanos { return b.t }

// SetTime advances (or sets) the book's clock. The env is the only caller
// expected to do this outside of tests.
func (b *OrderBook) SetTime(t types.Nanos) { b.t = t }

// EnableTrading turns trading on; market orders will match and limit orders
// may cross immediately.
func (b *OrderBook) EnableTrading() {
	b.trading = true
	log.Debug().Str("book_id", b.id.String()).Msg("trading enabled")
}

// DisableTrading turns trading off; market orders submitted while disabled
// are Rejected, but limit orders still rest (no uncrossing is performed
// when trading is re-enabled).
func (b *OrderBook) DisableTrading() {
	b.trading = false
	log.Debug().Str("book_id", b.id.String()).Msg("trading disabled")
}

// Trading reports whether the book currently accepts market orders.
func (b *OrderBook) Trading() bool { return b.trading }

// GetTradeVol returns the cumulative traded volume since the last reset.
func (b *OrderBook) GetTradeVol() types.Vol { return b.tradeVol }

// ResetTradeVol zeros the cumulative traded volume counter.
func (b *OrderBook) ResetTradeVol() { b.tradeVol = 0 }

// AskVol is the total resting ask volume.
func (b *OrderBook) AskVol() types.Vol { return b.ask.Vol() }

// BidVol is the total resting bid volume.
func (b *OrderBook) BidVol() types.Vol { return b.bid.Vol() }

// AskBestVolAndOrders is the touch ask (volume, order count).
func (b *OrderBook) AskBestVolAndOrders() (types.Vol, types.OrderCount) { return b.ask.BestVolAndOrders() }

// BidBestVolAndOrders is the touch bid (volume, order count).
func (b *OrderBook) BidBestVolAndOrders() (types.Vol, types.OrderCount) { return b.bid.BestVolAndOrders() }

// AskLevels returns the raw per-level (vol, order_count) slice on the ask
// side, walking the book's configured level count.
func (b *OrderBook) AskLevels() []types.PriceLevel { return b.ask.Levels(b.tickSize, b.levels) }

// BidLevels is the bid-side twin of AskLevels.
func (b *OrderBook) BidLevels() []types.PriceLevel { return b.bid.Levels(b.tickSize, b.levels) }

// BidAsk returns (best_bid, best_ask); an empty bid side reports 0, an
// empty ask side reports types.MaxPrice.
func (b *OrderBook) BidAsk() (types.Price, types.Price) { return b.bid.BestPrice(), b.ask.BestPrice() }

// MidPrice is the arithmetic mid of BidAsk. Callers must guard against the
// sentinel values if either side is empty; this does not special-case it,
// matching the source's "direct read" semantics for touch metrics.
func (b *OrderBook) MidPrice() types.Price {
	bid, ask := b.BidAsk()
	return bid/2 + ask/2
}

// Level1Data is the direct read of touch metrics.
func (b *OrderBook) Level1Data() types.Level1Data {
	bidPrice, askPrice := b.BidAsk()
	bidTouchVol, bidTouchOrders := b.bid.BestVolAndOrders()
	askTouchVol, askTouchOrders := b.ask.BestVolAndOrders()
	return types.Level1Data{
		BidPrice: bidPrice, AskPrice: askPrice,
		BidVol: b.bid.Vol(), AskVol: b.ask.Vol(),
		BidTouchVol: bidTouchVol, AskTouchVol: askTouchVol,
		BidTouchOrders: bidTouchOrders, AskTouchOrders: askTouchOrders,
	}
}

// Level2Data is Level1Data plus per-level depth for the book's configured
// number of levels.
func (b *OrderBook) Level2Data() types.Level2Data {
	bidPrice, askPrice := b.BidAsk()
	return types.Level2Data{
		BidPrice: bidPrice, AskPrice: askPrice,
		BidVol: b.bid.Vol(), AskVol: b.ask.Vol(),
		BidLevels: b.BidLevels(), AskLevels: b.AskLevels(),
	}
}

// Order returns a copy of the order at id. Panics if id is out of range,
// matching the fatal-on-programmer-error regime spec §7 describes.
func (b *OrderBook) Order(id types.OrderID) types.Order {
	if int(id) >= len(b.arena) {
		panic(fmt.Sprintf("order id %d out of range", id))
	}
	return b.arena[id].order
}

// GetOrders returns a copy of every order ever created in this book,
// including terminal ones, in arena (creation) order.
func (b *OrderBook) GetOrders() []types.Order {
	out := make([]types.Order, len(b.arena))
	for i, e := range b.arena {
		out[i] = e.order
	}
	return out
}

// GetTrades returns the trade tape recorded so far.
func (b *OrderBook) GetTrades() []types.Trade {
	out := make([]types.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// CreateOrder appends a New order to the arena without touching the side
// indices. price is nil for a market order. Returns PriceError if price is
// given and is not a positive multiple of the tick size.
func (b *OrderBook) CreateOrder(side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (types.OrderID, error) {
	id := types.OrderID(len(b.arena))
	var order types.Order
	if price != nil {
		if *price == 0 || *price%b.tickSize != 0 {
			return 0, &PriceError{Price: *price, TickSize: b.tickSize}
		}
		if side == types.Bid {
			order = types.BuyLimit(b.t, vol, *price, traderID, id)
		} else {
			order = types.SellLimit(b.t, vol, *price, traderID, id)
		}
	} else {
		if side == types.Bid {
			order = types.BuyMarket(b.t, vol, traderID, id)
		} else {
			order = types.SellMarket(b.t, vol, traderID, id)
		}
	}
	b.arena = append(b.arena, orderEntry{order: order})
	return id, nil
}

// CreateAndPlaceOrder creates then immediately places an order, returning
// its id once placement (and any resulting matching) has completed.
func (b *OrderBook) CreateAndPlaceOrder(side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (types.OrderID, error) {
	id, err := b.CreateOrder(side, vol, traderID, price)
	if err != nil {
		return 0, err
	}
	b.PlaceOrder(id)
	return id, nil
}

// PlaceOrder transitions a New order to Active (or a terminal status) and
// runs the matching loop. A no-op on any order that is not currently New.
func (b *OrderBook) PlaceOrder(id types.OrderID) {
	entry := &b.arena[id]
	if entry.order.Status != types.New {
		return
	}
	entry.order.Status = types.Active
	entry.order.ArrTime = b.t

	isMarket := (entry.order.Side == types.Bid && entry.order.Price == types.MaxPrice) ||
		(entry.order.Side == types.Ask && entry.order.Price == 0)

	if isMarket {
		if !b.trading {
			entry.order.Status = types.Rejected
			entry.order.EndTime = b.t
			return
		}
		if entry.order.Side == types.Bid {
			b.matchBid(entry)
		} else {
			b.matchAsk(entry)
		}
		if entry.order.Status == types.Active && entry.order.Vol > 0 {
			entry.order.Status = types.Cancelled
			entry.order.EndTime = b.t
		}
		return
	}

	if b.trading {
		if entry.order.Side == types.Bid {
			b.matchBid(entry)
		} else {
			b.matchAsk(entry)
		}
	}
	if entry.order.Status == types.Active && entry.order.Vol > 0 {
		key := types.KeyForSide(entry.order.Side, entry.order.ArrTime, entry.order.Price)
		entry.key = key
		if entry.order.Side == types.Bid {
			b.bid.Insert(key, id, entry.order.Vol)
		} else {
			b.ask.Insert(key, id, entry.order.Vol)
		}
	}
}

// matchBid runs the buy-side aggressor matching loop (spec §4.3.1): while
// the aggressor has volume left and its price crosses the ask touch, it
// trades against the best resting ask, always at the ask's (passive)
// price.
func (b *OrderBook) matchBid(aggressor *orderEntry) {
	for aggressor.order.Vol > 0 && aggressor.order.Price >= b.ask.BestPrice() {
		id, ok := b.ask.BestOrderID()
		if !ok {
			break
		}
		b.execute(aggressor, id, b.ask)
	}
}

// matchAsk is the symmetric sell-side aggressor loop.
func (b *OrderBook) matchAsk(aggressor *orderEntry) {
	for aggressor.order.Vol > 0 && aggressor.order.Price <= b.bid.BestPrice() {
		id, ok := b.bid.BestOrderID()
		if !ok {
			break
		}
		b.execute(aggressor, id, b.bid)
	}
}

// execute trades the aggressor against the named passive order resting on
// passiveSide, updating both orders, the trade tape, and the passive side's
// index.
func (b *OrderBook) execute(aggressor *orderEntry, passiveID types.OrderID, passiveSide SideFunctionality) {
	passive := &b.arena[passiveID]
	tradeVol := min(aggressor.order.Vol, passive.order.Vol)

	aggressor.order.Vol -= tradeVol
	passive.order.Vol -= tradeVol
	b.trades = append(b.trades, types.Trade{
		T: b.t, Side: passive.order.Side, Price: passive.order.Price, Vol: tradeVol,
		ActiveOrderID: aggressor.order.OrderID, PassiveOrderID: passive.order.OrderID,
	})
	b.tradeVol += tradeVol

	if passive.order.Vol == 0 {
		passive.order.Status = types.Filled
		passive.order.EndTime = b.t
		passiveSide.Remove(passive.key, tradeVol)
	} else {
		passiveSide.RemoveVol(passive.order.Price, tradeVol)
	}

	if aggressor.order.Vol == 0 {
		aggressor.order.Status = types.Filled
		aggressor.order.EndTime = b.t
	}
}

// CancelOrder removes an Active order from the book. A no-op on any other
// status. Panics on an out-of-range id (programmer error, per spec §7).
func (b *OrderBook) CancelOrder(id types.OrderID) {
	if int(id) >= len(b.arena) {
		panic(fmt.Sprintf("order id %d out of range", id))
	}
	entry := &b.arena[id]
	if entry.order.Status != types.Active {
		return
	}
	entry.order.Status = types.Cancelled
	entry.order.EndTime = b.t
	if entry.order.Side == types.Bid {
		b.bid.Remove(entry.key, entry.order.Vol)
	} else {
		b.ask.Remove(entry.key, entry.order.Vol)
	}
}

// ModifyOrder applies the policy table of spec §4.3: a strict volume
// decrease with no price change preserves priority; any price change, or a
// volume increase, is a replace that re-times the order and may cross the
// spread immediately. A no-op on any order that is not Active. Panics on an
// out-of-range id (programmer error, per spec §7).
func (b *OrderBook) ModifyOrder(id types.OrderID, newPrice *types.Price, newVol *types.Vol) {
	if int(id) >= len(b.arena) {
		panic(fmt.Sprintf("order id %d out of range", id))
	}
	entry := &b.arena[id]
	if entry.order.Status != types.Active {
		return
	}
	if newPrice == nil && newVol == nil {
		return
	}
	if newPrice == nil && newVol != nil && *newVol < entry.order.Vol {
		delta := entry.order.Vol - *newVol
		entry.order.Vol = *newVol
		if entry.order.Side == types.Bid {
			b.bid.RemoveVol(entry.order.Price, delta)
		} else {
			b.ask.RemoveVol(entry.order.Price, delta)
		}
		return
	}
	b.replaceOrder(entry, newPrice, newVol)
}

// replaceOrder removes the order from its side index, applies the new
// price/volume, re-runs matching if trading is on, and re-inserts the
// remainder at a fresh (now) arrival time if any volume is left — losing
// time priority, per spec §4.3's modify policy table.
func (b *OrderBook) replaceOrder(entry *orderEntry, newPrice *types.Price, newVol *types.Vol) {
	if entry.order.Side == types.Bid {
		b.bid.Remove(entry.key, entry.order.Vol)
	} else {
		b.ask.Remove(entry.key, entry.order.Vol)
	}
	if newPrice != nil {
		entry.order.Price = *newPrice
	}
	if newVol != nil {
		entry.order.Vol = *newVol
	}
	if b.trading {
		if entry.order.Side == types.Bid {
			b.matchBid(entry)
		} else {
			b.matchAsk(entry)
		}
	}
	if entry.order.Status == types.Active && entry.order.Vol > 0 {
		entry.order.ArrTime = b.t
		key := types.KeyForSide(entry.order.Side, entry.order.ArrTime, entry.order.Price)
		entry.key = key
		if entry.order.Side == types.Bid {
			b.bid.Insert(key, entry.order.OrderID, entry.order.Vol)
		} else {
			b.ask.Insert(key, entry.order.OrderID, entry.order.Vol)
		}
	}
}

// ProcessEvent dispatches an Event to CreateOrder-less placement/cancel/
// modify. New events reference an order id already created via CreateOrder.
func (b *OrderBook) ProcessEvent(e types.Event) {
	switch e.Kind {
	case types.EventNew:
		b.PlaceOrder(e.OrderID)
	case types.EventCancellation:
		b.CancelOrder(e.OrderID)
	case types.EventModify:
		b.ModifyOrder(e.OrderID, e.NewPrice, e.NewVol)
	}
}

// bookSnapshot is the on-disk shape described in spec §4.3/§6: side indices
// and the event queue are never persisted.
type bookSnapshot struct {
	RunID    uuid.UUID     `json:"run_id"`
	T        types.Nanos   `json:"t"`
	TickSize types.Price   `json:"tick_size"`
	TradeVol types.Vol     `json:"trade_vol"`
	Orders   []types.Order `json:"orders"`
	Trades   []types.Trade `json:"trades"`
	Trading  bool          `json:"trading"`
}

// Snapshot returns the serializable state of the book.
func (b *OrderBook) Snapshot() bookSnapshot {
	return bookSnapshot{
		RunID: b.id, T: b.t, TickSize: b.tickSize, TradeVol: b.tradeVol,
		Orders: b.GetOrders(), Trades: b.GetTrades(), Trading: b.trading,
	}
}

// SaveJSON writes the book's snapshot to path as JSON.
func (b *OrderBook) SaveJSON(path string) error {
	data, err := json.Marshal(b.Snapshot())
	if err != nil {
		return err
	}
	log.Info().Str("book_id", b.id.String()).Str("path", path).Msg("saving order book snapshot")
	return os.WriteFile(path, data, 0o644)
}

// LoadJSON reconstructs an OrderBook from a snapshot file. Side indices are
// rebuilt by replaying every Active order's stored key as an insert; any
// other status is skipped.
func LoadJSON(path string, opts ...Option) (*OrderBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromJSON(data, opts...)
}

// FromJSON reconstructs an OrderBook from already-read snapshot bytes, the
// same way LoadJSON does from a file. Exported so callers holding a
// multi-asset snapshot (see internal/market) can rebuild each book without
// writing it back to disk first.
func FromJSON(data []byte, opts ...Option) (*OrderBook, error) {
	var snap bookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	b := New(snap.T, snap.TickSize, snap.Trading, opts...)
	b.id = snap.RunID
	b.tradeVol = snap.TradeVol
	b.trades = snap.Trades
	b.arena = make([]orderEntry, len(snap.Orders))
	for i, o := range snap.Orders {
		key := types.KeyForSide(o.Side, o.ArrTime, o.Price)
		b.arena[i] = orderEntry{order: o, key: key}
		if o.Status == types.Active {
			if o.Side == types.Bid {
				b.bid.Insert(key, o.OrderID, o.Vol)
			} else {
				b.ask.Insert(key, o.OrderID, o.Vol)
			}
		}
	}
	log.Info().Str("book_id", b.id.String()).Int("orders", len(b.arena)).Msg("loaded order book snapshot")
	return b, nil
}

// Package simenv implements the step-discipline environment (spec §4.5):
// an instruction queue agents submit into, a shuffle-and-apply step that
// advances the book's clock deterministically, and level-2 history
// recording. Env wraps a single book.OrderBook; MarketEnv is its
// multi-asset twin over market.Market.
package simenv

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bourse/internal/book"
	"bourse/internal/types"
)

// Env drives one OrderBook through the step discipline. Agents never hold
// book state directly; they call Env's PlaceOrder/CancelOrder/ModifyOrder,
// which only enqueue events, and observe state via Env's read accessors
// (which reflect the book as of the end of the previous Step).
type Env struct {
	id       uuid.UUID
	book     *book.OrderBook
	stepSize types.Nanos

	queue []types.Event

	tradeVolHistory []types.Vol
	history         *Level2History
}

// New constructs an Env around a fresh OrderBook.
func New(startTime types.Nanos, tickSize types.Price, stepSize types.Nanos, trading bool, opts ...book.Option) *Env {
	b := book.New(startTime, tickSize, trading, opts...)
	return newEnv(b, stepSize)
}

// Wrap builds an Env around an already-constructed OrderBook, e.g. one
// reconstructed via book.LoadJSON.
func Wrap(b *book.OrderBook, stepSize types.Nanos) *Env {
	return newEnv(b, stepSize)
}

func newEnv(b *book.OrderBook, stepSize types.Nanos) *Env {
	levels := len(b.Level2Data().BidLevels)
	e := &Env{
		id:       uuid.New(),
		book:     b,
		stepSize: stepSize,
		history:  newLevel2History(levels),
	}
	log.Debug().Str("env_id", e.id.String()).Uint64("step_size", stepSize).Msg("env constructed")
	return e
}

// OrderBook exposes the underlying book for read-only inspection (level-1/2
// data, order/trade lookups). Mutating methods on the returned book bypass
// the step discipline and should not be called by agents.
func (e *Env) OrderBook() *book.OrderBook { return e.book }

// PlaceOrder creates the order immediately (so its id can be returned) and
// enqueues a New event; the order only actually rests/matches at the next
// Step.
func (e *Env) PlaceOrder(side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (types.OrderID, error) {
	id, err := e.book.CreateOrder(side, vol, traderID, price)
	if err != nil {
		return 0, err
	}
	e.queue = append(e.queue, types.NewOrderEvent(id))
	return id, nil
}

// CancelOrder enqueues a cancellation; the book is not mutated until Step.
func (e *Env) CancelOrder(id types.OrderID) {
	e.queue = append(e.queue, types.CancellationEvent(id))
}

// ModifyOrder enqueues a price/volume modification; the book is not
// mutated until Step.
func (e *Env) ModifyOrder(id types.OrderID, newPrice *types.Price, newVol *types.Vol) {
	e.queue = append(e.queue, types.ModifyEvent(id, newPrice, newVol))
}

// EnableTrading/DisableTrading delegate straight to the book: no
// uncrossing is performed when trading is re-enabled (spec §4.5).
func (e *Env) EnableTrading()  { e.book.EnableTrading() }
func (e *Env) DisableTrading() { e.book.DisableTrading() }

// Order returns a copy of the order at id.
func (e *Env) Order(id types.OrderID) types.Order { return e.book.Order(id) }

// Level1Data/Level2Data are direct reads of the underlying book.
func (e *Env) Level1Data() types.Level1Data { return e.book.Level1Data() }
func (e *Env) Level2Data() types.Level2Data { return e.book.Level2Data() }

// History returns the level-2 history recorded across every Step so far.
func (e *Env) History() *Level2History { return e.history }

// TradeVolHistory returns the per-step traded volume, one entry per Step.
func (e *Env) TradeVolHistory() []types.Vol { return e.tradeVolHistory }

// Step applies exactly the algorithm of spec §4.5:
//  1. read start_time from the book
//  2. reset the book's cumulative trade_vol
//  3. take (and clear) the instruction queue
//  4. shuffle it uniformly with rng
//  5. for each event at 0-based index i, set book time to start_time+i,
//     then dispatch the event
//  6. set book time to start_time+step_size
//  7. compute level_2_data, append to history, push trade_vol
func (e *Env) Step(rng *rand.Rand) {
	startTime := e.book.GetTime()
	e.book.ResetTradeVol()

	events := e.queue
	e.queue = nil
	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

	for i, ev := range events {
		e.book.SetTime(startTime + types.Nanos(i))
		e.book.ProcessEvent(ev)
	}
	e.book.SetTime(startTime + e.stepSize)

	data := e.book.Level2Data()
	e.history.append(data)
	e.tradeVolHistory = append(e.tradeVolHistory, e.book.GetTradeVol())
}

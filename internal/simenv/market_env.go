package simenv

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bourse/internal/book"
	"bourse/internal/market"
	"bourse/internal/types"
)

// MarketEnv is the multi-asset twin of Env (supplementing spec.md, which
// only gestures at a "structural twin" runner — see SPEC_FULL.md §3),
// grounded on crates/step_sim/src/market_env.rs of the source this system
// was distilled from. It applies the identical step discipline as Env, but
// against a market.Market and over types.MarketEvent instructions.
type MarketEnv struct {
	id       uuid.UUID
	market   *market.Market
	stepSize types.Nanos

	queue []types.MarketEvent

	tradeVolHistory [][]types.Vol
	histories       []*Level2History
}

// NewMarket constructs a MarketEnv around a fresh market.Market with one
// book per entry of tickSizes.
func NewMarket(startTime types.Nanos, tickSizes []types.Price, stepSize types.Nanos, trading bool, opts ...book.Option) *MarketEnv {
	m := market.New(startTime, tickSizes, trading, opts...)
	return wrapMarket(m, stepSize)
}

// WrapMarket builds a MarketEnv around an already-constructed Market, e.g.
// one reconstructed via market.LoadJSON.
func WrapMarket(m *market.Market, stepSize types.Nanos) *MarketEnv {
	return wrapMarket(m, stepSize)
}

func wrapMarket(m *market.Market, stepSize types.Nanos) *MarketEnv {
	n := m.NAssets()
	histories := make([]*Level2History, n)
	for i := 0; i < n; i++ {
		levels := len(m.Book(i).Level2Data().BidLevels)
		histories[i] = newLevel2History(levels)
	}
	e := &MarketEnv{
		id: uuid.New(), market: m, stepSize: stepSize,
		tradeVolHistory: make([][]types.Vol, n),
		histories:       histories,
	}
	log.Debug().Str("env_id", e.id.String()).Int("assets", n).Msg("market env constructed")
	return e
}

// Market exposes the underlying Market for read-only inspection.
func (e *MarketEnv) Market() *market.Market { return e.market }

// PlaceOrder creates an order on the named asset immediately and enqueues a
// New event on that asset's behalf.
func (e *MarketEnv) PlaceOrder(asset int, side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (market.OrderID, error) {
	id, err := e.market.CreateOrder(asset, side, vol, traderID, price)
	if err != nil {
		return market.OrderID{}, err
	}
	e.queue = append(e.queue, types.MarketEvent{Asset: asset, Event: types.NewOrderEvent(id.ID)})
	return id, nil
}

// CancelOrder enqueues a cancellation for the named asset.
func (e *MarketEnv) CancelOrder(id market.OrderID) {
	e.queue = append(e.queue, types.MarketEvent{Asset: id.Asset, Event: types.CancellationEvent(id.ID)})
}

// ModifyOrder enqueues a price/volume modification for the named asset.
func (e *MarketEnv) ModifyOrder(id market.OrderID, newPrice *types.Price, newVol *types.Vol) {
	e.queue = append(e.queue, types.MarketEvent{Asset: id.Asset, Event: types.ModifyEvent(id.ID, newPrice, newVol)})
}

func (e *MarketEnv) EnableTrading()  { e.market.EnableTrading() }
func (e *MarketEnv) DisableTrading() { e.market.DisableTrading() }

// Order returns a copy of the order addressed by id.
func (e *MarketEnv) Order(id market.OrderID) types.Order { return e.market.Order(id) }

// Level1Data/Level2Data are direct per-asset reads of the underlying
// market.
func (e *MarketEnv) Level1Data() []types.Level1Data { return e.market.Level1Data() }
func (e *MarketEnv) Level2Data() []types.Level2Data { return e.market.Level2Data() }

// History returns the per-asset level-2 history.
func (e *MarketEnv) History(asset int) *Level2History { return e.histories[asset] }

// TradeVolHistory returns the per-asset, per-step traded volume.
func (e *MarketEnv) TradeVolHistory(asset int) []types.Vol { return e.tradeVolHistory[asset] }

// Step applies the same algorithm as Env.Step, fanned out across every
// asset: each book resets its own trade_vol and advances its own clock
// (always in lockstep via market.SetTime), but the shuffle is performed
// once across the combined instruction queue so cross-asset ordering is
// also randomized within a step.
func (e *MarketEnv) Step(rng *rand.Rand) {
	startTime := e.market.GetTime()
	e.market.ResetTradeVols()

	events := e.queue
	e.queue = nil
	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

	for i, ev := range events {
		e.market.SetTime(startTime + types.Nanos(i))
		e.market.ProcessEvent(ev)
	}
	e.market.SetTime(startTime + e.stepSize)

	data := e.market.Level2Data()
	tradeVols := e.market.GetTradeVols()
	for i := 0; i < e.market.NAssets(); i++ {
		e.histories[i].append(data[i])
		e.tradeVolHistory[i] = append(e.tradeVolHistory[i], tradeVols[i])
	}
}

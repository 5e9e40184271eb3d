// Package market implements the thin multi-asset fan-out wrapper described
// in spec §4.4: a fixed-size set of independent order books sharing a
// stepped clock, addressed by asset index.
package market

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"

	"bourse/internal/book"
	"bourse/internal/types"
)

// OrderID addresses an order within a specific asset's book.
type OrderID struct {
	Asset int
	ID    types.OrderID
}

// Market owns N independent order books, all advanced in lockstep by the
// surrounding step environment.
type Market struct {
	books []*book.OrderBook
}

// New constructs a Market with one book per entry of tickSizes, all sharing
// startTime and trading.
func New(startTime types.Nanos, tickSizes []types.Price, trading bool, opts ...book.Option) *Market {
	books := make([]*book.OrderBook, len(tickSizes))
	for i, tick := range tickSizes {
		books[i] = book.New(startTime, tick, trading, opts...)
	}
	log.Debug().Int("assets", len(books)).Msg("market constructed")
	return &Market{books: books}
}

// NAssets is the number of books the market fans out over.
func (m *Market) NAssets() int { return len(m.books) }

// Book returns the underlying OrderBook for an asset index. Panics if the
// index is out of range.
func (m *Market) Book(asset int) *book.OrderBook { return m.books[asset] }

// GetTime returns the (shared) clock; all books are always set in lockstep
// so any one book's clock represents the market's.
func (m *Market) GetTime() types.Nanos {
	if len(m.books) == 0 {
		return 0
	}
	return m.books[0].GetTime()
}

// SetTime advances every book's clock to t.
func (m *Market) SetTime(t types.Nanos) {
	for _, b := range m.books {
		b.SetTime(t)
	}
}

// EnableTrading turns trading on across every book.
func (m *Market) EnableTrading() {
	for _, b := range m.books {
		b.EnableTrading()
	}
}

// DisableTrading turns trading off across every book.
func (m *Market) DisableTrading() {
	for _, b := range m.books {
		b.DisableTrading()
	}
}

// GetTradeVols returns the cumulative traded volume per asset.
func (m *Market) GetTradeVols() []types.Vol {
	out := make([]types.Vol, len(m.books))
	for i, b := range m.books {
		out[i] = b.GetTradeVol()
	}
	return out
}

// ResetTradeVols zeros every book's cumulative traded volume.
func (m *Market) ResetTradeVols() {
	for _, b := range m.books {
		b.ResetTradeVol()
	}
}

// BidAsks returns the per-asset (best_bid, best_ask) pairs.
func (m *Market) BidAsks() ([]types.Price, []types.Price) {
	bids := make([]types.Price, len(m.books))
	asks := make([]types.Price, len(m.books))
	for i, b := range m.books {
		bids[i], asks[i] = b.BidAsk()
	}
	return bids, asks
}

// Level1Data returns the per-asset level-1 snapshots.
func (m *Market) Level1Data() []types.Level1Data {
	out := make([]types.Level1Data, len(m.books))
	for i, b := range m.books {
		out[i] = b.Level1Data()
	}
	return out
}

// Level2Data returns the per-asset level-2 snapshots.
func (m *Market) Level2Data() []types.Level2Data {
	out := make([]types.Level2Data, len(m.books))
	for i, b := range m.books {
		out[i] = b.Level2Data()
	}
	return out
}

// CreateOrder creates an order on the named asset's book.
func (m *Market) CreateOrder(asset int, side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (OrderID, error) {
	id, err := m.books[asset].CreateOrder(side, vol, traderID, price)
	return OrderID{Asset: asset, ID: id}, err
}

// CreateAndPlaceOrder creates and immediately places an order on the named
// asset's book.
func (m *Market) CreateAndPlaceOrder(asset int, side types.Side, vol types.Vol, traderID types.TraderID, price *types.Price) (OrderID, error) {
	id, err := m.books[asset].CreateAndPlaceOrder(side, vol, traderID, price)
	return OrderID{Asset: asset, ID: id}, err
}

// PlaceOrder places a previously-created order.
func (m *Market) PlaceOrder(id OrderID) { m.books[id.Asset].PlaceOrder(id.ID) }

// CancelOrder cancels an order on its asset's book.
func (m *Market) CancelOrder(id OrderID) { m.books[id.Asset].CancelOrder(id.ID) }

// ModifyOrder modifies an order on its asset's book.
func (m *Market) ModifyOrder(id OrderID, newPrice *types.Price, newVol *types.Vol) {
	m.books[id.Asset].ModifyOrder(id.ID, newPrice, newVol)
}

// Order returns a copy of the order addressed by id.
func (m *Market) Order(id OrderID) types.Order { return m.books[id.Asset].Order(id.ID) }

// ProcessEvent routes a MarketEvent to the book named by its Asset index.
func (m *Market) ProcessEvent(e types.MarketEvent) {
	m.books[e.Asset].ProcessEvent(e.Event)
}

// marketSnapshot holds the per-book snapshots, in asset order, under its
// books field.
type marketSnapshot struct {
	Books []json.RawMessage `json:"books"`
}

// SaveJSON writes every book's snapshot to path as a JSON object whose
// "books" field is the array of per-book snapshots, in asset order.
func (m *Market) SaveJSON(path string) error {
	raws := make([]json.RawMessage, len(m.books))
	for i, b := range m.books {
		data, err := json.Marshal(b.Snapshot())
		if err != nil {
			return err
		}
		raws[i] = data
	}
	data, err := json.Marshal(marketSnapshot{Books: raws})
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("assets", len(m.books)).Msg("saving market snapshot")
	return os.WriteFile(path, data, 0o644)
}

// LoadJSON reconstructs a Market from a snapshot file written by SaveJSON,
// rebuilding each book's side indices from its replayed Active orders.
func LoadJSON(path string, opts ...book.Option) (*Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap marketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	books := make([]*book.OrderBook, len(snap.Books))
	for i, raw := range snap.Books {
		b, err := book.FromJSON(raw, opts...)
		if err != nil {
			return nil, err
		}
		books[i] = b
	}
	log.Info().Str("path", path).Int("assets", len(books)).Msg("loaded market snapshot")
	return &Market{books: books}, nil
}

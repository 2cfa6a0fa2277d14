package gdax

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

type gdaxProduct struct {
	ID            string `json:"id"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
}

type gdaxTicker struct {
	TradeID int64       `json:"trade_id"`
	Price   apd.Decimal `json:"price"`
	Size    apd.Decimal `json:"size"`
	Bid     apd.Decimal `json:"bid"`
	Ask     apd.Decimal `json:"ask"`
	Volume  apd.Decimal `json:"volume"`
	Time    time.Time   `json:"time"`
}

// gdaxBook levels are [price, size, num-orders].
type gdaxBook struct {
	Bids [][]any `json:"bids"`
	Asks [][]any `json:"asks"`
}

type gdaxTrade struct {
	TradeID int64       `json:"trade_id"`
	Time    time.Time   `json:"time"`
	Price   apd.Decimal `json:"price"`
	Size    apd.Decimal `json:"size"`
	Side    string      `json:"side"`
}

type gdaxAccount struct {
	Currency  string      `json:"currency"`
	Balance   apd.Decimal `json:"balance"`
	Available apd.Decimal `json:"available"`
	Hold      apd.Decimal `json:"hold"`
}

type gdaxOrder struct {
	ID         string      `json:"id"`
	ProductID  string      `json:"product_id"`
	Side       string      `json:"side"`
	Price      apd.Decimal `json:"price"`
	Size       apd.Decimal `json:"size"`
	FilledSize apd.Decimal `json:"filled_size"`
	Status     string      `json:"status"`
	DoneReason string      `json:"done_reason"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Normalizer converts GDAX payloads to core types.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeTicker(symbol string, data *gdaxTicker) *core.Ticker {
	return &core.Ticker{
		Symbol:    symbol,
		Bid:       data.Bid,
		Ask:       data.Ask,
		Last:      data.Price,
		Volume:    data.Volume,
		Timestamp: data.Time,
	}
}

// NormalizeOrderBook keeps at most depth levels per side.
func (n *Normalizer) NormalizeOrderBook(symbol string, data *gdaxBook, depth int) (*core.OrderBook, error) {
	bids, err := parseLevels(data.Bids, depth)
	if err != nil {
		return nil, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(data.Asks, depth)
	if err != nil {
		return nil, fmt.Errorf("parse asks: %w", err)
	}
	return &core.OrderBook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}, nil
}

func parseLevels(raw [][]any, depth int) ([]core.OrderBookLevel, error) {
	if len(raw) > depth {
		raw = raw[:depth]
	}
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			return nil, fmt.Errorf("level has %d fields", len(l))
		}
		price, err := core.ParseDecimal(fmt.Sprint(l[0]))
		if err != nil {
			return nil, err
		}
		size, err := core.ParseDecimal(fmt.Sprint(l[1]))
		if err != nil {
			return nil, err
		}
		levels = append(levels, core.OrderBookLevel{Price: price, Quantity: size})
	}
	return levels, nil
}

// NormalizeTrade maps a fill. GDAX reports the maker side, which is the
// opposite of the aggressor.
func (n *Normalizer) NormalizeTrade(symbol string, data *gdaxTrade) *core.Trade {
	side := core.SideSell
	if data.Side == "sell" {
		side = core.SideBuy
	}
	return &core.Trade{
		ID:        strconv.FormatInt(data.TradeID, 10),
		Symbol:    symbol,
		Side:      side,
		Price:     data.Price,
		Quantity:  data.Size,
		Timestamp: data.Time,
	}
}

func (n *Normalizer) NormalizeBalances(data []gdaxAccount) map[string]apd.Decimal {
	out := make(map[string]apd.Decimal, len(data))
	for _, a := range data {
		out[a.Currency] = a.Available
	}
	return out
}

func (n *Normalizer) NormalizeOrder(data *gdaxOrder) *core.Order {
	return &core.Order{
		ID:             data.ID,
		Symbol:         data.ProductID,
		Side:           core.ParseSide(data.Side),
		Price:          data.Price,
		Quantity:       data.Size,
		FilledQuantity: data.FilledSize,
		Status:         orderStatus(data),
		CreatedAt:      data.CreatedAt,
	}
}

func orderStatus(o *gdaxOrder) core.OrderStatus {
	switch o.Status {
	case "done", "settled":
		if o.DoneReason == "canceled" {
			return core.StatusCanceled
		}
		return core.StatusFilled
	case "rejected":
		return core.StatusRejected
	}
	if o.FilledSize.Sign() > 0 {
		return core.StatusPartiallyFilled
	}
	return core.StatusNew
}

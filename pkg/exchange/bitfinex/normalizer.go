package bitfinex

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

// bitfinexTicker is the /pubticker response.
type bitfinexTicker struct {
	Mid       apd.Decimal `json:"mid"`
	Bid       apd.Decimal `json:"bid"`
	Ask       apd.Decimal `json:"ask"`
	LastPrice apd.Decimal `json:"last_price"`
	Low       apd.Decimal `json:"low"`
	High      apd.Decimal `json:"high"`
	Volume    apd.Decimal `json:"volume"`
	Timestamp string      `json:"timestamp"`
}

type bitfinexLevel struct {
	Price     apd.Decimal `json:"price"`
	Amount    apd.Decimal `json:"amount"`
	Timestamp string      `json:"timestamp"`
}

type bitfinexBook struct {
	Bids []bitfinexLevel `json:"bids"`
	Asks []bitfinexLevel `json:"asks"`
}

type bitfinexTrade struct {
	TID       int64       `json:"tid"`
	Timestamp float64     `json:"timestamp"`
	Price     apd.Decimal `json:"price"`
	Amount    apd.Decimal `json:"amount"`
	Type      string      `json:"type"`
}

type bitfinexBalance struct {
	Type      string      `json:"type"`
	Currency  string      `json:"currency"`
	Amount    apd.Decimal `json:"amount"`
	Available apd.Decimal `json:"available"`
}

type bitfinexOrder struct {
	ID              int64       `json:"id"`
	Symbol          string      `json:"symbol"`
	Price           apd.Decimal `json:"price"`
	Side            string      `json:"side"`
	Type            string      `json:"type"`
	Timestamp       string      `json:"timestamp"`
	IsLive          bool        `json:"is_live"`
	IsCancelled     bool        `json:"is_cancelled"`
	OriginalAmount  apd.Decimal `json:"original_amount"`
	RemainingAmount apd.Decimal `json:"remaining_amount"`
	ExecutedAmount  apd.Decimal `json:"executed_amount"`
}

// Normalizer converts Bitfinex payloads to core types.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeTicker(symbol string, data *bitfinexTicker) *core.Ticker {
	return &core.Ticker{
		Symbol:    symbol,
		Bid:       data.Bid,
		Ask:       data.Ask,
		Last:      data.LastPrice,
		High:      data.High,
		Low:       data.Low,
		Volume:    data.Volume,
		Timestamp: parseTimestamp(data.Timestamp),
	}
}

func (n *Normalizer) NormalizeOrderBook(symbol string, data *bitfinexBook) *core.OrderBook {
	book := &core.OrderBook{
		Symbol:    symbol,
		Bids:      make([]core.OrderBookLevel, 0, len(data.Bids)),
		Asks:      make([]core.OrderBookLevel, 0, len(data.Asks)),
		Timestamp: time.Now(),
	}
	for _, l := range data.Bids {
		book.Bids = append(book.Bids, core.OrderBookLevel{Price: l.Price, Quantity: l.Amount})
	}
	for _, l := range data.Asks {
		book.Asks = append(book.Asks, core.OrderBookLevel{Price: l.Price, Quantity: l.Amount})
	}
	return book
}

func (n *Normalizer) NormalizeTrade(symbol string, data *bitfinexTrade) *core.Trade {
	return &core.Trade{
		ID:        strconv.FormatInt(data.TID, 10),
		Symbol:    symbol,
		Side:      core.ParseSide(data.Type),
		Price:     data.Price,
		Quantity:  data.Amount,
		Timestamp: core.UnixSeconds(data.Timestamp),
	}
}

// NormalizeBalances keeps the exchange wallet only, keyed by upper-case currency.
func (n *Normalizer) NormalizeBalances(data []bitfinexBalance) map[string]apd.Decimal {
	out := make(map[string]apd.Decimal, len(data))
	for _, b := range data {
		if b.Type != "exchange" {
			continue
		}
		out[strings.ToUpper(b.Currency)] = b.Available
	}
	return out
}

func (n *Normalizer) NormalizeOrder(data *bitfinexOrder) *core.Order {
	return &core.Order{
		ID:             strconv.FormatInt(data.ID, 10),
		Symbol:         data.Symbol,
		Side:           core.ParseSide(data.Side),
		Price:          data.Price,
		Quantity:       data.OriginalAmount,
		FilledQuantity: data.ExecutedAmount,
		Status:         orderStatus(data),
		CreatedAt:      parseTimestamp(data.Timestamp),
	}
}

func orderStatus(o *bitfinexOrder) core.OrderStatus {
	switch {
	case o.IsCancelled:
		return core.StatusCanceled
	case o.IsLive && o.ExecutedAmount.Sign() > 0:
		return core.StatusPartiallyFilled
	case o.IsLive:
		return core.StatusNew
	default:
		return core.StatusFilled
	}
}

// parseTimestamp reads "1444253422.348340958" style epoch strings.
func parseTimestamp(s string) time.Time {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}
	}
	return core.UnixSeconds(f)
}

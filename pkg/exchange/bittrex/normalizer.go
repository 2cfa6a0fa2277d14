package bittrex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

// Bittrex reports times without a zone; they are UTC.
const timeLayout = "2006-01-02T15:04:05.999999999"

type bittrexMarket struct {
	MarketName     string `json:"MarketName"`
	MarketCurrency string `json:"MarketCurrency"`
	BaseCurrency   string `json:"BaseCurrency"`
	IsActive       bool   `json:"IsActive"`
}

type bittrexTicker struct {
	Bid  json.Number `json:"Bid"`
	Ask  json.Number `json:"Ask"`
	Last json.Number `json:"Last"`
}

type bittrexLevel struct {
	Quantity json.Number `json:"Quantity"`
	Rate     json.Number `json:"Rate"`
}

type bittrexBook struct {
	Buy  []bittrexLevel `json:"buy"`
	Sell []bittrexLevel `json:"sell"`
}

type bittrexTrade struct {
	ID        int64       `json:"Id"`
	TimeStamp string      `json:"TimeStamp"`
	Quantity  json.Number `json:"Quantity"`
	Price     json.Number `json:"Price"`
	OrderType string      `json:"OrderType"`
}

type bittrexBalance struct {
	Currency  string      `json:"Currency"`
	Balance   json.Number `json:"Balance"`
	Available json.Number `json:"Available"`
}

type bittrexUUID struct {
	UUID string `json:"uuid"`
}

type bittrexOrder struct {
	OrderUUID         string      `json:"OrderUuid"`
	Exchange          string      `json:"Exchange"`
	Type              string      `json:"Type"`
	Quantity          json.Number `json:"Quantity"`
	QuantityRemaining json.Number `json:"QuantityRemaining"`
	Limit             json.Number `json:"Limit"`
	Opened            string      `json:"Opened"`
	IsOpen            bool        `json:"IsOpen"`
	CancelInitiated   bool        `json:"CancelInitiated"`
}

// Normalizer converts Bittrex payloads to core types.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeSymbols(markets []bittrexMarket) []string {
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if m.IsActive {
			symbols = append(symbols, m.MarketName)
		}
	}
	return symbols
}

func (n *Normalizer) NormalizeTicker(symbol string, data *bittrexTicker) (*core.Ticker, error) {
	ticker := &core.Ticker{Symbol: symbol, Timestamp: time.Now()}
	fields := []struct {
		dst *apd.Decimal
		src json.Number
	}{
		{&ticker.Bid, data.Bid},
		{&ticker.Ask, data.Ask},
		{&ticker.Last, data.Last},
	}
	for _, f := range fields {
		d, err := core.ParseDecimal(f.src.String())
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return ticker, nil
}

func (n *Normalizer) NormalizeOrderBook(symbol string, data *bittrexBook, depth int) (*core.OrderBook, error) {
	bids, err := parseLevels(data.Buy, depth)
	if err != nil {
		return nil, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(data.Sell, depth)
	if err != nil {
		return nil, fmt.Errorf("parse asks: %w", err)
	}
	return &core.OrderBook{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: time.Now()}, nil
}

func parseLevels(raw []bittrexLevel, depth int) ([]core.OrderBookLevel, error) {
	if len(raw) > depth {
		raw = raw[:depth]
	}
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, l := range raw {
		price, err := core.ParseDecimal(l.Rate.String())
		if err != nil {
			return nil, err
		}
		qty, err := core.ParseDecimal(l.Quantity.String())
		if err != nil {
			return nil, err
		}
		levels = append(levels, core.OrderBookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

func (n *Normalizer) NormalizeTrade(symbol string, data *bittrexTrade) (*core.Trade, error) {
	price, err := core.ParseDecimal(data.Price.String())
	if err != nil {
		return nil, err
	}
	qty, err := core.ParseDecimal(data.Quantity.String())
	if err != nil {
		return nil, err
	}
	return &core.Trade{
		ID:        strconv.FormatInt(data.ID, 10),
		Symbol:    symbol,
		Side:      core.ParseSide(data.OrderType),
		Price:     price,
		Quantity:  qty,
		Timestamp: parseTime(data.TimeStamp),
	}, nil
}

func (n *Normalizer) NormalizeBalances(data []bittrexBalance) (map[string]apd.Decimal, error) {
	out := make(map[string]apd.Decimal, len(data))
	for _, b := range data {
		d, err := core.ParseDecimal(b.Available.String())
		if err != nil {
			return nil, fmt.Errorf("parse %s balance: %w", b.Currency, err)
		}
		out[b.Currency] = d
	}
	return out, nil
}

func (n *Normalizer) NormalizeOrder(data *bittrexOrder) (*core.Order, error) {
	qty, err := core.ParseDecimal(data.Quantity.String())
	if err != nil {
		return nil, err
	}
	remaining, err := core.ParseDecimal(data.QuantityRemaining.String())
	if err != nil {
		return nil, err
	}
	price, err := core.ParseDecimal(data.Limit.String())
	if err != nil {
		return nil, err
	}

	var filled apd.Decimal
	if _, err := apd.BaseContext.Sub(&filled, &qty, &remaining); err != nil {
		return nil, err
	}

	return &core.Order{
		ID:             data.OrderUUID,
		Symbol:         data.Exchange,
		Side:           core.ParseSide(strings.TrimPrefix(data.Type, "LIMIT_")),
		Price:          price,
		Quantity:       qty,
		FilledQuantity: filled,
		Status:         orderStatus(data, &filled),
		CreatedAt:      parseTime(data.Opened),
	}, nil
}

func orderStatus(o *bittrexOrder, filled *apd.Decimal) core.OrderStatus {
	switch {
	case o.IsOpen && filled.Sign() > 0:
		return core.StatusPartiallyFilled
	case o.IsOpen:
		return core.StatusNew
	case o.CancelInitiated:
		return core.StatusCanceled
	default:
		return core.StatusFilled
	}
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

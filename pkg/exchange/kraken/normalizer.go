package kraken

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

type krakenPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}

// krakenTicker fields are [today, last 24h] or [price, lot volume...].
type krakenTicker struct {
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
	Last   []string `json:"c"`
	Volume []string `json:"v"`
	Low    []string `json:"l"`
	High   []string `json:"h"`
}

// krakenBook levels are [price, volume, timestamp].
type krakenBook struct {
	Asks [][]any `json:"asks"`
	Bids [][]any `json:"bids"`
}

type krakenOrderDescr struct {
	Pair      string `json:"pair"`
	Type      string `json:"type"`
	OrderType string `json:"ordertype"`
	Price     string `json:"price"`
	Order     string `json:"order"`
}

type krakenOrder struct {
	Status  string           `json:"status"`
	OpenTM  float64          `json:"opentm"`
	Descr   krakenOrderDescr `json:"descr"`
	Vol     apd.Decimal      `json:"vol"`
	VolExec apd.Decimal      `json:"vol_exec"`
}

type krakenAddOrder struct {
	Descr krakenOrderDescr `json:"descr"`
	TxID  []string         `json:"txid"`
}

type krakenCancel struct {
	Count int `json:"count"`
}

// Normalizer converts Kraken payloads to core types.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeSymbols returns the altnames (e.g. "XBTUSD") in sorted order.
func (n *Normalizer) NormalizeSymbols(pairs map[string]krakenPair) []string {
	symbols := make([]string, 0, len(pairs))
	for key, p := range pairs {
		name := p.Altname
		if name == "" {
			name = key
		}
		symbols = append(symbols, name)
	}
	sort.Strings(symbols)
	return symbols
}

func (n *Normalizer) NormalizeTicker(symbol string, data *krakenTicker) (*core.Ticker, error) {
	ticker := &core.Ticker{Symbol: symbol, Timestamp: time.Now()}

	fields := []struct {
		dst *apd.Decimal
		src []string
		idx int
	}{
		{&ticker.Ask, data.Ask, 0},
		{&ticker.Bid, data.Bid, 0},
		{&ticker.Last, data.Last, 0},
		{&ticker.Volume, data.Volume, 1},
		{&ticker.Low, data.Low, 1},
		{&ticker.High, data.High, 1},
	}
	for _, f := range fields {
		if len(f.src) <= f.idx {
			continue
		}
		d, err := core.ParseDecimal(f.src[f.idx])
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return ticker, nil
}

func (n *Normalizer) NormalizeOrderBook(symbol string, data *krakenBook) (*core.OrderBook, error) {
	bids, err := parseLevels(data.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(data.Asks)
	if err != nil {
		return nil, fmt.Errorf("parse asks: %w", err)
	}
	return &core.OrderBook{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: time.Now()}, nil
}

func parseLevels(raw [][]any) ([]core.OrderBookLevel, error) {
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			return nil, fmt.Errorf("level has %d fields", len(l))
		}
		price, err := core.ParseDecimal(fmt.Sprint(l[0]))
		if err != nil {
			return nil, err
		}
		volume, err := core.ParseDecimal(fmt.Sprint(l[1]))
		if err != nil {
			return nil, err
		}
		levels = append(levels, core.OrderBookLevel{Price: price, Quantity: volume})
	}
	return levels, nil
}

// NormalizeTrade reads a [price, volume, time, side, type, misc, trade_id]
// row. Rows without a trade id use the timestamp as the id.
func (n *Normalizer) NormalizeTrade(symbol string, row []any) (*core.Trade, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("trade has %d fields", len(row))
	}

	price, err := core.ParseDecimal(fmt.Sprint(row[0]))
	if err != nil {
		return nil, err
	}
	volume, err := core.ParseDecimal(fmt.Sprint(row[1]))
	if err != nil {
		return nil, err
	}
	ts, ok := row[2].(float64)
	if !ok {
		return nil, fmt.Errorf("trade time is %T", row[2])
	}
	side, _ := row[3].(string)

	id := strconv.FormatFloat(ts, 'f', -1, 64)
	if len(row) > 6 {
		if tid, ok := row[6].(float64); ok {
			id = strconv.FormatInt(int64(tid), 10)
		}
	}

	return &core.Trade{
		ID:        id,
		Symbol:    symbol,
		Side:      core.ParseSide(side),
		Price:     price,
		Quantity:  volume,
		Timestamp: core.UnixSeconds(ts),
	}, nil
}

func (n *Normalizer) NormalizeBalances(data map[string]string) (map[string]apd.Decimal, error) {
	out := make(map[string]apd.Decimal, len(data))
	for asset, amount := range data {
		d, err := core.ParseDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("parse %s balance: %w", asset, err)
		}
		out[asset] = d
	}
	return out, nil
}

func (n *Normalizer) NormalizeOrder(id string, data *krakenOrder) (*core.Order, error) {
	price, err := core.ParseDecimal(data.Descr.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &core.Order{
		ID:             id,
		Symbol:         data.Descr.Pair,
		Side:           core.ParseSide(data.Descr.Type),
		Price:          price,
		Quantity:       data.Vol,
		FilledQuantity: data.VolExec,
		Status:         orderStatus(data),
		CreatedAt:      core.UnixSeconds(data.OpenTM),
	}, nil
}

func orderStatus(o *krakenOrder) core.OrderStatus {
	switch o.Status {
	case "closed":
		return core.StatusFilled
	case "canceled", "expired":
		return core.StatusCanceled
	}
	if o.VolExec.Sign() > 0 {
		return core.StatusPartiallyFilled
	}
	return core.StatusNew
}

// firstPair returns the single pair entry of a per-pair result, skipping
// the "last" cursor that Trades adds alongside it.
func firstPair(result map[string]json.RawMessage) (json.RawMessage, bool) {
	keys := make([]string, 0, len(result))
	for k := range result {
		if k != "last" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return result[keys[0]], true
}

package gemini

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradegate/pkg/core"
)

// geminiTicker is the /pubticker response. Volume is keyed by currency
// code plus a millisecond "timestamp" entry.
type geminiTicker struct {
	Bid    apd.Decimal    `json:"bid"`
	Ask    apd.Decimal    `json:"ask"`
	Last   apd.Decimal    `json:"last"`
	Volume map[string]any `json:"volume"`
}

type geminiLevel struct {
	Price  apd.Decimal `json:"price"`
	Amount apd.Decimal `json:"amount"`
}

type geminiBook struct {
	Bids []geminiLevel `json:"bids"`
	Asks []geminiLevel `json:"asks"`
}

type geminiTrade struct {
	TID         int64       `json:"tid"`
	TimestampMS int64       `json:"timestampms"`
	Price       apd.Decimal `json:"price"`
	Amount      apd.Decimal `json:"amount"`
	Type        string      `json:"type"`
}

// Normalizer converts Gemini payloads to core types.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeTicker reports base-currency volume. Gemini has no 24h high/low
// on this endpoint, so those stay zero.
func (n *Normalizer) NormalizeTicker(symbol string, data *geminiTicker) *core.Ticker {
	ticker := &core.Ticker{
		Symbol:    symbol,
		Bid:       data.Bid,
		Ask:       data.Ask,
		Last:      data.Last,
		Timestamp: time.Now(),
	}

	upper := strings.ToUpper(symbol)
	for k, v := range data.Volume {
		switch val := v.(type) {
		case float64:
			if k == "timestamp" {
				ticker.Timestamp = time.UnixMilli(int64(val))
			}
		case string:
			if strings.HasPrefix(upper, k) {
				if d, err := core.ParseDecimal(val); err == nil {
					ticker.Volume = d
				}
			}
		}
	}
	return ticker
}

func (n *Normalizer) NormalizeOrderBook(symbol string, data *geminiBook) *core.OrderBook {
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

func (n *Normalizer) NormalizeTrade(symbol string, data *geminiTrade) *core.Trade {
	return &core.Trade{
		ID:        strconv.FormatInt(data.TID, 10),
		Symbol:    symbol,
		Side:      core.ParseSide(data.Type),
		Price:     data.Price,
		Quantity:  data.Amount,
		Timestamp: time.UnixMilli(data.TimestampMS),
	}
}

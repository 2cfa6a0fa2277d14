package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSide_String(t *testing.T) {
	assert.Equal(t, "BUY", SideBuy.String())
	assert.Equal(t, "SELL", SideSell.String())
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want OrderSide
	}{
		{"buy", SideBuy},
		{"BUY", SideBuy},
		{"b", SideBuy},
		{"bid", SideBuy},
		{"sell", SideSell},
		{"s", SideSell},
		{"ask", SideSell},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSide(tt.in))
		})
	}
}

func TestOrderSide_JSON(t *testing.T) {
	data, err := SideSell.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"SELL"`, string(data))

	var s OrderSide
	require.NoError(t, s.UnmarshalJSON([]byte(`"buy"`)))
	assert.Equal(t, SideBuy, s)
}

func TestOrderStatus(t *testing.T) {
	assert.Equal(t, "PARTIALLY_FILLED", StatusPartiallyFilled.String())
	assert.False(t, StatusNew.IsTerminal())
	assert.False(t, StatusPartiallyFilled.IsTerminal())
	assert.True(t, StatusFilled.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("6543.21")
	require.NoError(t, err)
	assert.Equal(t, "6543.21", d.String())

	d, err = ParseDecimal("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDecimal("abc")
	assert.Error(t, err)
}

func TestUnixSeconds(t *testing.T) {
	ts := UnixSeconds(1500000000.25)

	assert.Equal(t, int64(1500000000), ts.Unix())
	assert.InDelta(t, 250*time.Millisecond, time.Duration(ts.Nanosecond()), float64(time.Millisecond))
}

func TestNonce_StrictlyIncreasing(t *testing.T) {
	var n Nonce
	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v := n.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)

	a := n.Next()
	b := n.Next()
	assert.Greater(t, b, a)
}

package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkokomoor/trading-v1/internal/marketdata"
)

func TestCandleKeyNormalizesDay(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	day := time.Date(2025, 5, 13, 10, 0, 0, 0, ny)
	assert.Equal(t, "candles:$VIX:2025-05-13", candleKey("$VIX", day))
}

func TestDecodeCandlesKeepsUTCInstants(t *testing.T) {
	at := time.Date(2025, 5, 13, 14, 30, 0, 0, time.UTC)
	in := []marketdata.Candle{{Time: at.In(time.FixedZone("X", 3600)), Open: 503.1, Volume: 7}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := decodeCandles(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, at.Equal(out[0].Time))
	assert.Equal(t, time.UTC, out[0].Time.Location())
	assert.Equal(t, 503.1, out[0].Open)

	_, err = decodeCandles([]byte("{"))
	assert.Error(t, err)
}

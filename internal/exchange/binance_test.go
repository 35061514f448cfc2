package exchange

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/mtfscan/internal/config"
)

func TestParseKline(t *testing.T) {
	k := &futures.Kline{
		OpenTime:  1700000000000,
		Open:      "50000.5",
		High:      "50500.0",
		Low:       "49800.25",
		Close:     "50250.75",
		Volume:    "1234.56",
		CloseTime: 1700000899999,
	}

	candle, err := parseKline("BTCUSDT", "15m", k)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", candle.Symbol)
	assert.Equal(t, "15m", candle.Interval)
	assert.Equal(t, 50000.5, candle.Open)
	assert.Equal(t, 50500.0, candle.High)
	assert.Equal(t, 49800.25, candle.Low)
	assert.Equal(t, 50250.75, candle.Close)
	assert.Equal(t, 1234.56, candle.Volume)
	assert.Equal(t, time.Unix(1700000000, 0), candle.OpenTime)
	assert.Equal(t, time.Unix(1700000899, 0), candle.CloseTime)
}

func TestParseKline_MalformedFields(t *testing.T) {
	base := futures.Kline{
		Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "100",
	}

	mutations := []func(*futures.Kline){
		func(k *futures.Kline) { k.Open = "не число" },
		func(k *futures.Kline) { k.High = "" },
		func(k *futures.Kline) { k.Low = "abc" },
		func(k *futures.Kline) { k.Close = "1.2.3" },
		func(k *futures.Kline) { k.Volume = "-" },
	}

	for _, mutate := range mutations {
		k := base
		mutate(&k)
		_, err := parseKline("BTCUSDT", "1h", &k)
		assert.Error(t, err)
	}
}

func TestNewBinanceClient_Defaults(t *testing.T) {
	c, err := NewBinanceClient(config.ExchangeConfig{QuoteCurrency: "usdt"})
	require.NoError(t, err)

	assert.Equal(t, "USDT", c.quoteCurrency)
	assert.Equal(t, 5, c.maxRetries)
	assert.Equal(t, "binance-futures", c.Name())
}

func TestErrDataUnavailable_Wrapping(t *testing.T) {
	cause := errors.New("таймаут")
	wrapped := fmt.Errorf("ошибка получения свечей: %w: %w", ErrDataUnavailable, cause)

	assert.True(t, errors.Is(wrapped, ErrDataUnavailable))
	assert.True(t, errors.Is(wrapped, cause))
}

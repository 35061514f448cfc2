package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

// BinanceClient клиент фьючерсного рынка Binance.
// Все запросы идут через токен-бакет и circuit breaker, сетевые ошибки
// повторяются с экспоненциальной задержкой.
type BinanceClient struct {
	futures       *futures.Client
	quoteCurrency string
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker
	maxRetries    int
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.ExchangeConfig) (*BinanceClient, error) {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.Testnet {
		futuresClient.BaseURL = "https://testnet.binancefuture.com"
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "binance",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Смена состояния circuit breaker",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BinanceClient{
		futures:       futuresClient,
		quoteCurrency: strings.ToUpper(cfg.QuoteCurrency),
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		breaker:       breaker,
		maxRetries:    maxRetries,
	}, nil
}

// Name возвращает идентификатор биржи
func (c *BinanceClient) Name() string {
	return "binance-futures"
}

// ListInstruments возвращает инструменты выбранной котируемой валюты,
// отсортированные по суточному обороту по убыванию
func (c *BinanceClient) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	var stats []*futures.PriceChangeStats
	err := c.request(ctx, "list_instruments", func() error {
		var err error
		stats, err = c.futures.NewListPriceChangeStatsService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка инструментов: %w: %w", ErrDataUnavailable, err)
	}

	instruments := make([]models.Instrument, 0, len(stats))
	for _, s := range stats {
		if c.quoteCurrency != "" && !strings.HasSuffix(s.Symbol, c.quoteCurrency) {
			continue
		}
		volume, err := strconv.ParseFloat(s.QuoteVolume, 64)
		if err != nil {
			logger.Debug("Пропущен инструмент с некорректным оборотом",
				zap.String("symbol", s.Symbol), zap.String("quote_volume", s.QuoteVolume))
			continue
		}
		instruments = append(instruments, models.Instrument{
			Symbol:      s.Symbol,
			QuoteVolume: volume,
		})
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].QuoteVolume > instruments[j].QuoteVolume
	})

	return instruments, nil
}

// GetKlines получает исторические свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	var klines []*futures.Kline
	err := c.request(ctx, "klines", func() error {
		var err error
		klines, err = c.futures.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей %s %s: %w: %w", symbol, interval, ErrDataUnavailable, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := parseKline(symbol, interval, k)
		if err != nil {
			logger.Debug("Пропущена некорректная свеча",
				zap.String("symbol", symbol), zap.String("interval", interval), zap.Error(err))
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetCurrentPrice получает текущую цену символа
func (c *BinanceClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*futures.SymbolPrice
	err := c.request(ctx, "price", func() error {
		var err error
		prices, err = c.futures.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка получения цены %s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("нет данных о цене %s: %w", symbol, ErrDataUnavailable)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректная цена %s для %s: %w", prices[0].Price, symbol, ErrDataUnavailable)
	}

	return price, nil
}

// request выполняет запрос с лимитированием, breaker-ом и повторами
func (c *BinanceClient) request(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}
		lastErr = err

		// Открытый breaker повторами не лечится
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return err
		}

		logger.Warn("Повтор запроса к бирже",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// parseKline преобразует ответ биржи в свечу
func parseKline(symbol, interval string, k *futures.Kline) (models.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("некорректный open %q: %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("некорректный high %q: %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("некорректный low %q: %w", k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("некорректный close %q: %w", k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("некорректный volume %q: %w", k.Volume, err)
	}

	return models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.Unix(k.OpenTime/1000, 0),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: time.Unix(k.CloseTime/1000, 0),
	}, nil
}

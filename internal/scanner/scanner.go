package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skalibog/mtfscan/internal/cache"
	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/internal/exchange"
	"github.com/skalibog/mtfscan/internal/filter"
	"github.com/skalibog/mtfscan/internal/indicators"
	"github.com/skalibog/mtfscan/internal/liquidation"
	"github.com/skalibog/mtfscan/internal/scoring"
	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

// ProgressFunc вызывается после завершения каждого символа.
// Необязательный хук: nil допустим, ошибки внутри не влияют на скан.
type ProgressFunc func(completed, total int, symbol string)

// Scanner оркестратор сканирования: отбор пар, параллельный обход
// символов через кэш, оценка и ранжирование.
type Scanner struct {
	cfg         config.ScanConfig
	exchange    exchange.MarketData
	liqProvider liquidation.Provider
	engine      *indicators.Engine
	scorer      *scoring.Scorer
	pairFilter  *filter.PairFilter

	instrumentCache *cache.Cache[[]models.Instrument]
	candleCache     *cache.Cache[[]models.Candle]
}

// symbolOutcome результат обработки одного символа внутри пула
type symbolOutcome struct {
	setup   *models.TradeSetup
	failure *models.SymbolFailure
}

// New создает сканер. Конфигурация проверяется до начала любой работы:
// невалидная конфигурация — фатальная ошибка.
func New(cfg *config.Config, ex exchange.MarketData, liq liquidation.Provider) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	policy := cache.Policy{
		Listing: time.Duration(cfg.Cache.ListingTTLSeconds) * time.Second,
		Fast:    time.Duration(cfg.Cache.FastTTLSeconds) * time.Second,
		Slow:    time.Duration(cfg.Cache.SlowTTLSeconds) * time.Second,
		Default: time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
	}

	liqScorer := liquidation.NewScorer(cfg.Liquidation.RangePercent)

	return &Scanner{
		cfg:             cfg.Scan,
		exchange:        ex,
		liqProvider:     liq,
		engine:          indicators.NewEngine(),
		scorer:          scoring.NewScorer(cfg.Scan.Timeframes, cfg.Scan.Weights, liqScorer),
		pairFilter:      filter.NewPairFilter(cfg.Scan.ExcludeStablecoins, cfg.Scan.CustomExclude),
		instrumentCache: cache.New[[]models.Instrument](policy),
		candleCache:     cache.New[[]models.Candle](policy),
	}, nil
}

// Scan выполняет полное сканирование. Ошибки отдельных символов
// изолированы и записываются в результат; фатальна только недоступность
// списка инструментов.
func (s *Scanner) Scan(ctx context.Context, progress ProgressFunc) (*models.ScanResult, error) {
	result := &models.ScanResult{
		ScanID:    uuid.NewString(),
		Exchange:  s.exchange.Name(),
		StartedAt: time.Now(),
		State:     models.ScanPending,
		Metadata: map[string]interface{}{
			"timeframes": s.cfg.Timeframes,
			"min_score":  s.cfg.MinScore,
		},
	}

	logger.Info("Сканирование запущено",
		zap.String("scan_id", result.ScanID),
		zap.String("exchange", result.Exchange),
		zap.Int("max_pairs", s.cfg.MaxPairs))

	result.State = models.ScanFetchingPairs
	instruments, err := s.fetchUniverse(ctx)
	if err != nil {
		result.State = models.ScanFailed
		result.Elapsed = time.Since(result.StartedAt)
		return result, fmt.Errorf("ошибка получения списка инструментов: %w", err)
	}

	top := s.pairFilter.TopInstruments(instruments, s.cfg.MaxPairs)
	result.TotalPairsScanned = len(top)

	logger.Info("Пары отобраны",
		zap.Int("universe", len(instruments)),
		zap.Int("selected", len(top)))

	result.State = models.ScanScanning
	setups, failures := s.scanConcurrent(ctx, top, progress)

	result.State = models.ScanRanking
	result.SkippedSymbols = failures
	result.Metadata["skipped_count"] = len(failures)

	ranked := rankSetups(setups, s.cfg.MinScore)
	result.TotalSetupsFound = len(ranked)
	if len(ranked) > s.cfg.TopSetupsLimit {
		ranked = ranked[:s.cfg.TopSetupsLimit]
	}
	result.Setups = ranked

	result.State = models.ScanDone
	result.Elapsed = time.Since(result.StartedAt)

	logger.Info("Сканирование завершено",
		zap.String("scan_id", result.ScanID),
		zap.Int("pairs_scanned", result.TotalPairsScanned),
		zap.Int("setups_found", result.TotalSetupsFound),
		zap.Int("skipped", len(failures)),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

// fetchUniverse получает список инструментов через кэш листинга
func (s *Scanner) fetchUniverse(ctx context.Context) ([]models.Instrument, error) {
	key := "instruments:" + s.exchange.Name()
	return s.instrumentCache.GetOrFetch(ctx, key, cache.ClassListing,
		func(ctx context.Context) ([]models.Instrument, error) {
			return s.exchange.ListInstruments(ctx)
		})
}

// scanConcurrent распределяет символы по пулу из max_workers задач.
// Отмена контекста останавливает выдачу новых задач; уже собранные
// результаты остаются валидными.
func (s *Scanner) scanConcurrent(ctx context.Context, instruments []models.Instrument, progress ProgressFunc) ([]models.TradeSetup, []models.SymbolFailure) {
	total := len(instruments)
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	outcomes := make(chan symbolOutcome, total)

	var wg sync.WaitGroup
	var completed int
	var progressMu sync.Mutex

	for _, inst := range instruments {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			outcome := s.scanSymbol(ctx, symbol)

			select {
			case outcomes <- outcome:
			case <-ctx.Done():
				return
			}

			if progress != nil {
				progressMu.Lock()
				completed++
				done := completed
				progressMu.Unlock()
				progress(done, total, symbol)
			}
		}(inst.Symbol)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var setups []models.TradeSetup
	var failures []models.SymbolFailure
	for outcome := range outcomes {
		if outcome.failure != nil {
			failures = append(failures, *outcome.failure)
		}
		if outcome.setup != nil {
			setups = append(setups, *outcome.setup)
		}
	}

	// Стабильный порядок записей о пропусках независимо от порядка завершения
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Symbol < failures[j].Symbol
	})

	return setups, failures
}

// scanSymbol обрабатывает один символ: свечи всех таймфреймов через кэш,
// индикаторы, зоны ликвидаций, оценка. Недоступность части таймфреймов —
// не повод пропускать символ: оцениваем то, что есть.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) symbolOutcome {
	signalsByTimeframe := make(map[string][]models.IndicatorSignal, len(s.cfg.Timeframes))
	var lastClose float64
	var fetchFailures []string

	for _, tf := range s.cfg.Timeframes {
		if ctx.Err() != nil {
			return symbolOutcome{failure: &models.SymbolFailure{
				Symbol: symbol,
				Reason: "сканирование отменено",
			}}
		}

		candles, err := s.fetchCandles(ctx, symbol, tf)
		if err != nil {
			logger.Warn("Таймфрейм недоступен",
				zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Error(err))
			fetchFailures = append(fetchFailures, fmt.Sprintf("%s: %v", tf, err))
			continue
		}
		if len(candles) == 0 {
			continue
		}

		lastClose = candles[len(candles)-1].Close

		signals, skipped := s.engine.Compute(candles, tf)
		if len(skipped) > 0 {
			logger.Debug("Индикаторы пропущены из-за нехватки данных",
				zap.String("symbol", symbol),
				zap.String("timeframe", tf),
				zap.Strings("indicators", skipped),
				zap.Int("candles", len(candles)))
		}
		if len(signals) > 0 {
			signalsByTimeframe[tf] = signals
		}
	}

	if len(signalsByTimeframe) == 0 {
		reason := "нет данных ни по одному таймфрейму"
		if len(fetchFailures) > 0 {
			reason = fmt.Sprintf("%s (%s)", reason, fetchFailures[0])
		}
		return symbolOutcome{failure: &models.SymbolFailure{Symbol: symbol, Reason: reason}}
	}

	currentPrice, err := s.exchange.GetCurrentPrice(ctx, symbol)
	if err != nil {
		// Цена последней свечи достаточна для оценки
		logger.Debug("Текущая цена недоступна, используется последнее закрытие",
			zap.String("symbol", symbol), zap.Error(err))
		currentPrice = lastClose
	}

	zones, err := s.liqProvider.GetLiquidationZones(ctx, symbol, currentPrice)
	if err != nil {
		// Зоны ликвидаций — best effort
		logger.Debug("Зоны ликвидаций недоступны",
			zap.String("symbol", symbol), zap.Error(err))
		zones = nil
	}

	setup := s.scorer.Score(scoring.Input{
		Symbol:             symbol,
		SignalsByTimeframe: signalsByTimeframe,
		LiquidationZones:   zones,
		CurrentPrice:       currentPrice,
	})
	if setup == nil {
		return symbolOutcome{failure: &models.SymbolFailure{
			Symbol: symbol,
			Reason: "индикаторы не дали ни одного сигнала",
		}}
	}

	if len(fetchFailures) > 0 {
		setup.Metadata["timeframe_failures"] = fetchFailures
	}

	return symbolOutcome{setup: setup}
}

// fetchCandles получает свечи через кэш с TTL по классу таймфрейма
func (s *Scanner) fetchCandles(ctx context.Context, symbol, timeframe string) ([]models.Candle, error) {
	key := symbol + ":" + timeframe
	return s.candleCache.GetOrFetch(ctx, key, cache.ClassForTimeframe(timeframe),
		func(ctx context.Context) ([]models.Candle, error) {
			return s.exchange.GetKlines(ctx, symbol, timeframe, s.cfg.CandleLimit)
		})
}

// rankSetups отбрасывает нейтральные и слабые сетапы и сортирует остальные.
// Порядок детерминирован и не зависит от порядка завершения задач:
// оценка по убыванию, затем уверенность по убыванию, затем символ.
func rankSetups(setups []models.TradeSetup, minScore float64) []models.TradeSetup {
	ranked := make([]models.TradeSetup, 0, len(setups))
	for _, setup := range setups {
		if setup.Direction == models.DirectionNeutral || setup.Score < minScore {
			continue
		}
		ranked = append(ranked, setup)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	return ranked
}

package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Параметры индикаторов
const (
	rsiPeriod     = 14
	rsiOversold   = 30
	rsiOverbought = 70

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	bbPeriod = 20
	bbStdDev = 2.0
)

// Периоды скользящих средних
var emaPeriods = []int{20, 50, 200}

// Engine вычисляет сигналы технических индикаторов по свечам.
// Все вычисления чистые: одинаковый вход дает одинаковый набор сигналов,
// входные свечи не изменяются.
type Engine struct {
	indicators []indicator
}

// indicator закрытый набор видов индикаторов с единым интерфейсом расчета
type indicator struct {
	name       string
	minCandles int
	compute    func(s series) (value float64, direction models.Direction, strength float64)
}

type series struct {
	closes []float64
	highs  []float64
	lows   []float64
}

// NewEngine создает движок со стандартным набором индикаторов
func NewEngine() *Engine {
	return &Engine{
		indicators: []indicator{
			{name: "RSI", minCandles: rsiPeriod + 1, compute: computeRSI},
			{name: "MACD", minCandles: macdSlow + macdSignal, compute: computeMACD},
			{name: "EMA", minCandles: emaPeriods[len(emaPeriods)-1], compute: computeEMA},
			{name: "BollingerBands", minCandles: bbPeriod + 1, compute: computeBollinger},
		},
	}
}

// Compute возвращает сигналы всех индикаторов для таймфрейма.
// Индикаторы, которым не хватает свечей, пропускаются и возвращаются
// вторым значением: частичный результат, а не ошибка.
func (e *Engine) Compute(candles []models.Candle, timeframe string) ([]models.IndicatorSignal, []string) {
	s := series{
		closes: make([]float64, len(candles)),
		highs:  make([]float64, len(candles)),
		lows:   make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.closes[i] = c.Close
		s.highs[i] = c.High
		s.lows[i] = c.Low
	}

	signals := make([]models.IndicatorSignal, 0, len(e.indicators))
	var skipped []string

	for _, ind := range e.indicators {
		if len(candles) < ind.minCandles {
			skipped = append(skipped, ind.name)
			continue
		}
		value, direction, strength := ind.compute(s)
		signals = append(signals, models.IndicatorSignal{
			Name:      ind.name,
			Timeframe: timeframe,
			Value:     value,
			Direction: direction,
			Strength:  clamp01(strength),
		})
	}

	return signals, skipped
}

// computeRSI классифицирует перекупленность/перепроданность.
// Сила — нормированное расстояние от нейтральной зоны 30..70.
func computeRSI(s series) (float64, models.Direction, float64) {
	rsi := talib.Rsi(s.closes, rsiPeriod)
	last := rsi[len(rsi)-1]

	switch {
	case last < rsiOversold:
		return last, models.DirectionLong, (rsiOversold - last) / rsiOversold
	case last > rsiOverbought:
		return last, models.DirectionShort, (last - rsiOverbought) / (100 - rsiOverbought)
	default:
		return last, models.DirectionNeutral, 0
	}
}

// computeMACD использует знак гистограммы, сила — отношение гистограммы
// к линии MACD
func computeMACD(s series) (float64, models.Direction, float64) {
	macd, _, hist := talib.Macd(s.closes, macdFast, macdSlow, macdSignal)
	lastMACD := macd[len(macd)-1]
	lastHist := hist[len(hist)-1]

	if lastHist == 0 {
		return lastHist, models.DirectionNeutral, 0
	}

	strength := 0.5
	if lastMACD != 0 {
		strength = math.Min(1, math.Abs(lastHist)/math.Abs(lastMACD))
	}

	if lastHist > 0 {
		return lastHist, models.DirectionLong, strength
	}
	return lastHist, models.DirectionShort, strength
}

// computeEMA дает сигнал, только когда цена по одну сторону всех средних
func computeEMA(s series) (float64, models.Direction, float64) {
	price := s.closes[len(s.closes)-1]

	lowest := math.MaxFloat64
	highest := -math.MaxFloat64
	for _, period := range emaPeriods {
		ema := talib.Ema(s.closes, period)
		last := ema[len(ema)-1]
		lowest = math.Min(lowest, last)
		highest = math.Max(highest, last)
	}

	switch {
	case price > highest:
		return price, models.DirectionLong, math.Min(1, (price-highest)/highest*10)
	case price < lowest:
		return price, models.DirectionShort, math.Min(1, (lowest-price)/lowest*10)
	default:
		return price, models.DirectionNeutral, 0
	}
}

// computeBollinger дает сигнал только за пределами полосы
func computeBollinger(s series) (float64, models.Direction, float64) {
	upper, _, lower := talib.BBands(s.closes, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
	lastUpper := upper[len(upper)-1]
	lastLower := lower[len(lower)-1]
	price := s.closes[len(s.closes)-1]

	width := lastUpper - lastLower
	if width <= 0 {
		return price, models.DirectionNeutral, 0
	}

	switch {
	case price < lastLower:
		return price, models.DirectionLong, math.Min(1, (lastLower-price)/width*2)
	case price > lastUpper:
		return price, models.DirectionShort, math.Min(1, (price-lastUpper)/width*2)
	default:
		return price, models.DirectionNeutral, 0
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

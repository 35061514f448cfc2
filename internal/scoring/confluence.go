package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/internal/liquidation"
	"github.com/skalibog/mtfscan/pkg/models"
)

// Пороги для формирования обоснований
const (
	strongSignalThreshold = 0.6
	strongZoneThreshold   = 0.6
	maxSignalReasons      = 3
)

// Планирование сделки: стоп 2%, цели 2% и 4%
const (
	stopLossPercent   = 0.02
	takeProfitPercent = 0.02
)

// Input входные данные оценки одного символа
type Input struct {
	Symbol             string
	SignalsByTimeframe map[string][]models.IndicatorSignal
	LiquidationZones   []models.LiquidationZone
	CurrentPrice       float64
}

// Scorer сводит сигналы таймфреймов в одну оценку с обоснованием.
// Оценка детерминирована: одинаковый вход дает одинаковый результат,
// включая список причин. Фильтрация по min_score и NEUTRAL — дело
// оркестратора, не этого компонента.
type Scorer struct {
	timeframes []string
	weights    config.WeightsConfig
	liqScorer  *liquidation.Scorer
}

// NewScorer создает оценщик для сконфигурированных таймфреймов
// (от младшего к старшему)
func NewScorer(timeframes []string, weights config.WeightsConfig, liqScorer *liquidation.Scorer) *Scorer {
	return &Scorer{
		timeframes: timeframes,
		weights:    weights,
		liqScorer:  liqScorer,
	}
}

// Score оценивает символ. Возвращает nil, если ни один таймфрейм
// не дал сигналов.
func (s *Scorer) Score(in Input) *models.TradeSetup {
	allSignals := s.collectSignals(in.SignalsByTimeframe)
	if len(allSignals) == 0 {
		return nil
	}

	confluence := s.timeframeDirections(in.SignalsByTimeframe)
	direction := s.candidateDirection(confluence, allSignals)

	alignment := alignmentComponent(allSignals, direction)
	confluenceFraction := s.confluenceComponent(confluence, direction)
	liqSupport := s.liqScorer.Score(in.LiquidationZones, in.CurrentPrice, direction)
	trend := s.trendComponent(in.SignalsByTimeframe, direction)

	score := 100 * (alignment*s.weights.IndicatorAlignment +
		confluenceFraction*s.weights.TimeframeConfluence +
		liqSupport*s.weights.LiquidationSupport +
		trend*s.weights.TrendStrength)
	score = math.Max(0, math.Min(100, score))

	corroborating := 0
	for _, sig := range allSignals {
		if sig.Direction == direction && direction != models.DirectionNeutral {
			corroborating++
		}
	}
	confidence := math.Min(1, 0.6*confluenceFraction+math.Min(0.4, float64(corroborating)/10))

	setup := &models.TradeSetup{
		Symbol:              in.Symbol,
		Direction:           direction,
		Score:               score,
		Confidence:          confidence,
		TimeframeConfluence: confluence,
		IndicatorSignals:    allSignals,
		LiquidationZones:    in.LiquidationZones,
		Reasons: s.reasons(score, direction, allSignals, confluence,
			in.LiquidationZones),
		Metadata: map[string]interface{}{
			"indicator_alignment":  alignment,
			"timeframe_confluence": confluenceFraction,
			"liquidation_support":  liqSupport,
			"trend_strength":       trend,
			"signal_count":         len(allSignals),
		},
	}

	s.planExecution(setup, in.CurrentPrice)

	return setup
}

// collectSignals собирает сигналы в порядке сконфигурированных таймфреймов
func (s *Scorer) collectSignals(byTimeframe map[string][]models.IndicatorSignal) []models.IndicatorSignal {
	var all []models.IndicatorSignal
	for _, tf := range s.timeframes {
		all = append(all, byTimeframe[tf]...)
	}
	return all
}

// timeframeDirections агрегирует направление каждого таймфрейма взвешенным
// по силе большинством. Равенство сил дает NEUTRAL. Ключи — ровно
// сконфигурированные таймфреймы; непокрытые данными получают NEUTRAL.
func (s *Scorer) timeframeDirections(byTimeframe map[string][]models.IndicatorSignal) map[string]models.Direction {
	confluence := make(map[string]models.Direction, len(s.timeframes))
	for _, tf := range s.timeframes {
		confluence[tf] = dominantDirection(byTimeframe[tf])
	}
	return confluence
}

// dominantDirection возвращает направление с большей суммарной силой
func dominantDirection(signals []models.IndicatorSignal) models.Direction {
	var longStrength, shortStrength float64
	for _, sig := range signals {
		switch sig.Direction {
		case models.DirectionLong:
			longStrength += sig.Strength
		case models.DirectionShort:
			shortStrength += sig.Strength
		}
	}

	switch {
	case longStrength > shortStrength:
		return models.DirectionLong
	case shortStrength > longStrength:
		return models.DirectionShort
	default:
		return models.DirectionNeutral
	}
}

// candidateDirection выбирает направление сетапа по большинству таймфреймов.
// При равенстве голосов решает старший таймфрейм: он считается надежнее.
// Если и он нейтрален — суммарная сила всех сигналов, затем NEUTRAL.
func (s *Scorer) candidateDirection(confluence map[string]models.Direction, allSignals []models.IndicatorSignal) models.Direction {
	var longVotes, shortVotes int
	for _, tf := range s.timeframes {
		switch confluence[tf] {
		case models.DirectionLong:
			longVotes++
		case models.DirectionShort:
			shortVotes++
		}
	}

	switch {
	case longVotes > shortVotes:
		return models.DirectionLong
	case shortVotes > longVotes:
		return models.DirectionShort
	case longVotes == 0:
		return models.DirectionNeutral
	}

	// Голоса равны: смотрим на старший таймфрейм с ненейтральным направлением
	for i := len(s.timeframes) - 1; i >= 0; i-- {
		if d := confluence[s.timeframes[i]]; d != models.DirectionNeutral {
			return d
		}
	}

	return dominantDirection(allSignals)
}

// alignmentComponent — средняя сила согласных сигналов со штрафом
// за долю несогласных
func alignmentComponent(signals []models.IndicatorSignal, direction models.Direction) float64 {
	if direction == models.DirectionNeutral || len(signals) == 0 {
		return 0
	}

	var agreeStrength float64
	var agreeCount, disagreeCount int
	for _, sig := range signals {
		switch sig.Direction {
		case direction:
			agreeStrength += sig.Strength
			agreeCount++
		case models.DirectionNeutral:
		default:
			disagreeCount++
		}
	}

	if agreeCount == 0 {
		return 0
	}

	mean := agreeStrength / float64(agreeCount)
	penalty := 1 - float64(disagreeCount)/float64(len(signals))

	return mean * penalty
}

// confluenceComponent — доля сконфигурированных таймфреймов, согласных
// с направлением сетапа
func (s *Scorer) confluenceComponent(confluence map[string]models.Direction, direction models.Direction) float64 {
	if direction == models.DirectionNeutral || len(s.timeframes) == 0 {
		return 0
	}

	aligned := 0
	for _, tf := range s.timeframes {
		if confluence[tf] == direction {
			aligned++
		}
	}

	return float64(aligned) / float64(len(s.timeframes))
}

// trendComponent — сила трендового индикатора (EMA) на старшем таймфрейме,
// если он согласен с направлением сетапа
func (s *Scorer) trendComponent(byTimeframe map[string][]models.IndicatorSignal, direction models.Direction) float64 {
	if direction == models.DirectionNeutral {
		return 0
	}

	for i := len(s.timeframes) - 1; i >= 0; i-- {
		for _, sig := range byTimeframe[s.timeframes[i]] {
			if sig.Name != "EMA" {
				continue
			}
			if sig.Direction == direction {
				return sig.Strength
			}
			return 0
		}
	}

	return 0
}

// reasons формирует упорядоченный список обоснований из тех же входных
// данных, что и оценка
func (s *Scorer) reasons(score float64, direction models.Direction,
	signals []models.IndicatorSignal, confluence map[string]models.Direction,
	zones []models.LiquidationZone) []string {

	var reasons []string

	added := 0
	for _, sig := range signals {
		if added == maxSignalReasons {
			break
		}
		if sig.Strength <= strongSignalThreshold || sig.Direction != direction {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s за %s на %s (сила %.2f)",
			sig.Name, sig.Direction, sig.Timeframe, sig.Strength))
		added++
	}

	var aligned []string
	for _, tf := range s.timeframes {
		if confluence[tf] == direction && direction != models.DirectionNeutral {
			aligned = append(aligned, tf)
		}
	}
	if len(aligned) >= 2 {
		reasons = append(reasons, fmt.Sprintf("Совпадение таймфреймов: %s", strings.Join(aligned, ", ")))
	}

	strongZones := 0
	for _, zone := range zones {
		if zone.Side == direction && zone.Strength > strongZoneThreshold {
			strongZones++
		}
	}
	if strongZones > 0 {
		reasons = append(reasons, fmt.Sprintf("Сильных зон ликвидаций в поддержку: %d", strongZones))
	}

	switch {
	case score >= 70:
		reasons = append(reasons, fmt.Sprintf("Высокая суммарная оценка %.1f/100", score))
	case score >= 50:
		reasons = append(reasons, fmt.Sprintf("Умеренная суммарная оценка %.1f/100", score))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("Обнаружен сетап %s", direction))
	}

	return reasons
}

// planExecution заполняет план входа, стоп и цели от текущей цены
func (s *Scorer) planExecution(setup *models.TradeSetup, currentPrice float64) {
	if currentPrice <= 0 {
		return
	}

	setup.EntryPlan = []float64{currentPrice}

	switch setup.Direction {
	case models.DirectionLong:
		setup.StopLoss = currentPrice * (1 - stopLossPercent)
		setup.TakeProfits = []float64{
			currentPrice * (1 + takeProfitPercent),
			currentPrice * (1 + 2*takeProfitPercent),
		}
	case models.DirectionShort:
		setup.StopLoss = currentPrice * (1 + stopLossPercent)
		setup.TakeProfits = []float64{
			currentPrice * (1 - takeProfitPercent),
			currentPrice * (1 - 2*takeProfitPercent),
		}
	default:
		return
	}

	risk := math.Abs(currentPrice - setup.StopLoss)
	reward := math.Abs(setup.TakeProfits[0] - currentPrice)
	if risk > 0 {
		setup.RiskRewardRatio = reward / risk
	}
}

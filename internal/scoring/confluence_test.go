package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/internal/liquidation"
	"github.com/skalibog/mtfscan/pkg/models"
)

var testTimeframes = []string{"15m", "1h", "4h"}

func newTestScorer() *Scorer {
	weights := config.WeightsConfig{
		IndicatorAlignment:  0.35,
		TimeframeConfluence: 0.30,
		LiquidationSupport:  0.20,
		TrendStrength:       0.15,
	}
	return NewScorer(testTimeframes, weights, liquidation.NewScorer(5.0))
}

func signal(name, tf string, dir models.Direction, strength float64) models.IndicatorSignal {
	return models.IndicatorSignal{
		Name:      name,
		Timeframe: tf,
		Direction: dir,
		Strength:  strength,
	}
}

// strongLongInput — сетап с полным совпадением: все индикаторы на всех
// таймфреймах за LONG, зоны ликвидаций поддерживают
func strongLongInput() Input {
	byTF := make(map[string][]models.IndicatorSignal)
	for _, tf := range testTimeframes {
		byTF[tf] = []models.IndicatorSignal{
			signal("RSI", tf, models.DirectionLong, 0.9),
			signal("MACD", tf, models.DirectionLong, 0.9),
			signal("EMA", tf, models.DirectionLong, 0.9),
		}
	}
	return Input{
		Symbol:             "BTCUSDT",
		SignalsByTimeframe: byTF,
		CurrentPrice:       50000,
		LiquidationZones: []models.LiquidationZone{
			{PriceLevel: 49900, Strength: 0.9, Side: models.DirectionLong},
			{PriceLevel: 49700, Strength: 0.9, Side: models.DirectionLong},
			{PriceLevel: 49500, Strength: 0.9, Side: models.DirectionLong},
		},
	}
}

func TestScore_NoSignals(t *testing.T) {
	s := newTestScorer()

	setup := s.Score(Input{Symbol: "BTCUSDT", CurrentPrice: 50000})
	assert.Nil(t, setup, "без сигналов сетапа нет")
}

func TestScore_FullAlignmentHighScore(t *testing.T) {
	s := newTestScorer()

	setup := s.Score(strongLongInput())
	require.NotNil(t, setup)

	assert.Equal(t, models.DirectionLong, setup.Direction)
	assert.GreaterOrEqual(t, setup.Score, 70.0, "полное совпадение дает высокую оценку")
	assert.LessOrEqual(t, setup.Score, 100.0)
	assert.Greater(t, setup.Confidence, 0.5)
	assert.LessOrEqual(t, setup.Confidence, 1.0)
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer()

	first := s.Score(strongLongInput())
	second := s.Score(strongLongInput())

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Reasons, second.Reasons, "список причин детерминирован")
}

func TestScore_ConfluenceCoversAllTimeframes(t *testing.T) {
	s := newTestScorer()

	// Данные есть только по одному таймфрейму
	in := Input{
		Symbol: "ETHUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"1h": {signal("RSI", "1h", models.DirectionLong, 0.8)},
		},
		CurrentPrice: 3000,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)

	require.Len(t, setup.TimeframeConfluence, len(testTimeframes))
	assert.Equal(t, models.DirectionLong, setup.TimeframeConfluence["1h"])
	assert.Equal(t, models.DirectionNeutral, setup.TimeframeConfluence["15m"])
	assert.Equal(t, models.DirectionNeutral, setup.TimeframeConfluence["4h"])
}

func TestScore_PerTimeframeTieIsNeutral(t *testing.T) {
	s := newTestScorer()

	in := Input{
		Symbol: "ETHUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"1h": {
				signal("RSI", "1h", models.DirectionLong, 0.5),
				signal("MACD", "1h", models.DirectionShort, 0.5),
			},
		},
		CurrentPrice: 3000,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)
	assert.Equal(t, models.DirectionNeutral, setup.TimeframeConfluence["1h"],
		"равные силы противоположных направлений дают NEUTRAL")
	assert.Equal(t, models.DirectionNeutral, setup.Direction)
}

func TestScore_VoteTieResolvedByLargestTimeframe(t *testing.T) {
	s := newTestScorer()

	// 15m за LONG, 4h за SHORT, 1h нейтральный: голоса равны,
	// решает старший таймфрейм
	in := Input{
		Symbol: "SOLUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"15m": {signal("RSI", "15m", models.DirectionLong, 0.9)},
			"4h":  {signal("RSI", "4h", models.DirectionShort, 0.9)},
		},
		CurrentPrice: 150,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)
	assert.Equal(t, models.DirectionShort, setup.Direction)
}

func TestScore_MajorityWins(t *testing.T) {
	s := newTestScorer()

	in := Input{
		Symbol: "SOLUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"15m": {signal("RSI", "15m", models.DirectionShort, 0.7)},
			"1h":  {signal("RSI", "1h", models.DirectionShort, 0.7)},
			"4h":  {signal("RSI", "4h", models.DirectionLong, 0.9)},
		},
		CurrentPrice: 150,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)
	assert.Equal(t, models.DirectionShort, setup.Direction)
}

func TestScore_EmptyZonesScoreZeroSupport(t *testing.T) {
	s := newTestScorer()

	withZones := s.Score(strongLongInput())

	in := strongLongInput()
	in.LiquidationZones = nil
	withoutZones := s.Score(in)

	require.NotNil(t, withZones)
	require.NotNil(t, withoutZones)
	assert.Zero(t, withoutZones.Metadata["liquidation_support"])
	assert.Less(t, withoutZones.Score, withZones.Score)
}

func TestScore_DisagreementPenalized(t *testing.T) {
	s := newTestScorer()

	aligned := strongLongInput()

	mixed := strongLongInput()
	mixed.SignalsByTimeframe["15m"] = []models.IndicatorSignal{
		signal("RSI", "15m", models.DirectionShort, 0.9),
		signal("MACD", "15m", models.DirectionLong, 0.9),
		signal("EMA", "15m", models.DirectionLong, 0.9),
	}

	alignedSetup := s.Score(aligned)
	mixedSetup := s.Score(mixed)
	require.NotNil(t, alignedSetup)
	require.NotNil(t, mixedSetup)

	assert.Less(t, mixedSetup.Score, alignedSetup.Score)
}

func TestScore_ReasonsContent(t *testing.T) {
	s := newTestScorer()

	setup := s.Score(strongLongInput())
	require.NotNil(t, setup)
	require.NotEmpty(t, setup.Reasons)

	joined := ""
	for _, r := range setup.Reasons {
		joined += r + "\n"
	}
	assert.Contains(t, joined, "Совпадение таймфреймов")
	assert.Contains(t, joined, "зон ликвидаций")
}

func TestScore_ReasonsFallback(t *testing.T) {
	s := newTestScorer()

	// Один слабый сигнал: ни одна из содержательных причин не срабатывает
	in := Input{
		Symbol: "DOGEUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"15m": {signal("RSI", "15m", models.DirectionLong, 0.1)},
		},
		CurrentPrice: 0.1,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)
	require.NotEmpty(t, setup.Reasons, "хотя бы одна причина всегда есть")
}

func TestScore_ExecutionPlanLong(t *testing.T) {
	s := newTestScorer()

	setup := s.Score(strongLongInput())
	require.NotNil(t, setup)

	require.Equal(t, []float64{50000.0}, setup.EntryPlan)
	assert.InDelta(t, 49000, setup.StopLoss, 0.01)
	require.Len(t, setup.TakeProfits, 2)
	assert.InDelta(t, 51000, setup.TakeProfits[0], 0.01)
	assert.InDelta(t, 52000, setup.TakeProfits[1], 0.01)
	assert.InDelta(t, 1.0, setup.RiskRewardRatio, 0.01)
}

func TestScore_ExecutionPlanShort(t *testing.T) {
	s := newTestScorer()

	byTF := make(map[string][]models.IndicatorSignal)
	for _, tf := range testTimeframes {
		byTF[tf] = []models.IndicatorSignal{signal("RSI", tf, models.DirectionShort, 0.8)}
	}
	setup := s.Score(Input{
		Symbol:             "BTCUSDT",
		SignalsByTimeframe: byTF,
		CurrentPrice:       50000,
	})
	require.NotNil(t, setup)
	require.Equal(t, models.DirectionShort, setup.Direction)

	assert.InDelta(t, 51000, setup.StopLoss, 0.01)
	require.Len(t, setup.TakeProfits, 2)
	assert.InDelta(t, 49000, setup.TakeProfits[0], 0.01)
	assert.InDelta(t, 48000, setup.TakeProfits[1], 0.01)
}

func TestScore_NeutralSetupHasNoPlan(t *testing.T) {
	s := newTestScorer()

	in := Input{
		Symbol: "ETHUSDT",
		SignalsByTimeframe: map[string][]models.IndicatorSignal{
			"1h": {
				signal("RSI", "1h", models.DirectionLong, 0.5),
				signal("MACD", "1h", models.DirectionShort, 0.5),
			},
		},
		CurrentPrice: 3000,
	}

	setup := s.Score(in)
	require.NotNil(t, setup)
	require.Equal(t, models.DirectionNeutral, setup.Direction)
	assert.Zero(t, setup.StopLoss)
	assert.Empty(t, setup.TakeProfits)
	assert.Zero(t, setup.Score, "у нейтрального сетапа все компоненты нулевые")
}

package liquidation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/mtfscan/pkg/models"
)

func TestHeatmapProvider_Deterministic(t *testing.T) {
	p := NewHeatmapProvider(5.0)

	first, err := p.GetLiquidationZones(context.Background(), "BTCUSDT", 50000)
	require.NoError(t, err)
	second, err := p.GetLiquidationZones(context.Background(), "BTCUSDT", 50000)
	require.NoError(t, err)

	assert.Equal(t, first, second, "повторный запрос по символу дает те же зоны")
}

func TestHeatmapProvider_ZonesWithinRange(t *testing.T) {
	p := NewHeatmapProvider(5.0)

	zones, err := p.GetLiquidationZones(context.Background(), "ETHUSDT", 3000)
	require.NoError(t, err)
	require.NotEmpty(t, zones)

	for _, z := range zones {
		assert.InDelta(t, 3000, z.PriceLevel, 3000*0.05)
		assert.GreaterOrEqual(t, z.Strength, 0.0)
		assert.LessOrEqual(t, z.Strength, 1.0)
	}
}

func TestHeatmapProvider_SortedByPrice(t *testing.T) {
	p := NewHeatmapProvider(5.0)

	zones, err := p.GetLiquidationZones(context.Background(), "SOLUSDT", 150)
	require.NoError(t, err)

	for i := 1; i < len(zones); i++ {
		assert.LessOrEqual(t, zones[i-1].PriceLevel, zones[i].PriceLevel)
	}
}

func TestHeatmapProvider_InvalidPrice(t *testing.T) {
	p := NewHeatmapProvider(5.0)

	zones, err := p.GetLiquidationZones(context.Background(), "BTCUSDT", 0)
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestScore_EmptyZones(t *testing.T) {
	s := NewScorer(5.0)

	assert.Zero(t, s.Score(nil, 50000, models.DirectionLong))
	assert.Zero(t, s.Score([]models.LiquidationZone{}, 50000, models.DirectionShort))
}

func TestScore_NeutralDirection(t *testing.T) {
	s := NewScorer(5.0)
	zones := []models.LiquidationZone{
		{PriceLevel: 49500, Strength: 1.0, Side: models.DirectionLong},
	}

	assert.Zero(t, s.Score(zones, 50000, models.DirectionNeutral))
}

func TestScore_SupportiveZones(t *testing.T) {
	s := NewScorer(5.0)

	// LONG поддерживают зоны той же стороны под ценой
	zones := []models.LiquidationZone{
		{PriceLevel: 49800, Strength: 0.9, Side: models.DirectionLong},
		{PriceLevel: 49500, Strength: 0.8, Side: models.DirectionLong},
	}

	score := s.Score(zones, 50000, models.DirectionLong)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScore_WrongSideIgnored(t *testing.T) {
	s := NewScorer(5.0)

	// Зона над ценой не поддерживает LONG
	above := []models.LiquidationZone{
		{PriceLevel: 50500, Strength: 1.0, Side: models.DirectionLong},
	}
	assert.Zero(t, s.Score(above, 50000, models.DirectionLong))

	// Зона противоположной стороны игнорируется
	opposite := []models.LiquidationZone{
		{PriceLevel: 49500, Strength: 1.0, Side: models.DirectionShort},
	}
	assert.Zero(t, s.Score(opposite, 50000, models.DirectionLong))
}

func TestScore_OutOfBandIgnored(t *testing.T) {
	s := NewScorer(5.0)

	zones := []models.LiquidationZone{
		{PriceLevel: 40000, Strength: 1.0, Side: models.DirectionLong}, // -20%, вне диапазона
	}
	assert.Zero(t, s.Score(zones, 50000, models.DirectionLong))
}

func TestScore_CloserZonesWeighMore(t *testing.T) {
	s := NewScorer(5.0)

	near := []models.LiquidationZone{
		{PriceLevel: 49900, Strength: 0.5, Side: models.DirectionLong},
	}
	far := []models.LiquidationZone{
		{PriceLevel: 48000, Strength: 0.5, Side: models.DirectionLong},
	}

	assert.Greater(t, s.Score(near, 50000, models.DirectionLong), s.Score(far, 50000, models.DirectionLong))
}

func TestScore_Saturates(t *testing.T) {
	s := NewScorer(5.0)

	// Много сильных зон вплотную к цене сверху: оценка упирается в 1
	zones := make([]models.LiquidationZone, 10)
	for i := range zones {
		zones[i] = models.LiquidationZone{
			PriceLevel: 50001,
			Strength:   1.0,
			Side:       models.DirectionShort,
		}
	}

	assert.Equal(t, 1.0, s.Score(zones, 50000, models.DirectionShort))
}

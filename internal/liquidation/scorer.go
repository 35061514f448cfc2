package liquidation

import (
	"math"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Сколько сильных близких зон дают максимальную оценку
const saturationZones = 3

// Scorer оценивает поддержку направления зонами ликвидаций
type Scorer struct {
	rangePercent float64
}

// NewScorer создает оценщик с диапазоном поиска в процентах от цены
func NewScorer(rangePercent float64) *Scorer {
	if rangePercent <= 0 {
		rangePercent = 5.0
	}
	return &Scorer{rangePercent: rangePercent}
}

// Score возвращает силу поддержки направления в диапазоне 0..1.
// Учитываются зоны нужной стороны на благоприятной стороне цены внутри
// диапазона; вес зоны линейно затухает с удалением от цены.
// Пустой набор зон дает 0.
func (s *Scorer) Score(zones []models.LiquidationZone, currentPrice float64, direction models.Direction) float64 {
	if len(zones) == 0 || currentPrice <= 0 || direction == models.DirectionNeutral {
		return 0
	}

	band := s.rangePercent / 100
	total := 0.0

	for _, zone := range zones {
		if zone.Side != direction {
			continue
		}

		// Для LONG поддержка — зоны под ценой, для SHORT — над ценой
		if direction == models.DirectionLong && zone.PriceLevel > currentPrice {
			continue
		}
		if direction == models.DirectionShort && zone.PriceLevel < currentPrice {
			continue
		}

		distance := math.Abs(zone.PriceLevel-currentPrice) / currentPrice
		if distance > band {
			continue
		}

		decay := 1 - distance/band
		total += zone.Strength * decay
	}

	return math.Min(1, total/saturationZones)
}

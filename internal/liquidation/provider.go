package liquidation

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Provider порт источника данных о зонах ликвидаций.
// Отсутствие зон — нормальная ситуация, а не ошибка.
type Provider interface {
	GetLiquidationZones(ctx context.Context, symbol string, currentPrice float64) ([]models.LiquidationZone, error)
}

// HeatmapProvider синтезирует зоны ликвидаций вокруг текущей цены.
// Замена реального источника (Coinglass, Hyblock и т.п.); зоны
// детерминированы по символу, чтобы повторный скан давал тот же результат.
type HeatmapProvider struct {
	rangePercent float64
}

// NewHeatmapProvider создает провайдер с диапазоном поиска в процентах от цены
func NewHeatmapProvider(rangePercent float64) *HeatmapProvider {
	if rangePercent <= 0 {
		rangePercent = 5.0
	}
	return &HeatmapProvider{rangePercent: rangePercent}
}

// GetLiquidationZones возвращает зоны внутри диапазона, отсортированные по цене
func (p *HeatmapProvider) GetLiquidationZones(_ context.Context, symbol string, currentPrice float64) ([]models.LiquidationZone, error) {
	if currentPrice <= 0 {
		return nil, nil
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	numZones := 3 + rng.Intn(5)
	zones := make([]models.LiquidationZone, 0, numZones)
	band := p.rangePercent / 100

	for i := 0; i < numZones; i++ {
		offset := (rng.Float64()*2 - 1) * band
		side := models.DirectionLong
		if rng.Float64() < 0.5 {
			side = models.DirectionShort
		}
		zones = append(zones, models.LiquidationZone{
			PriceLevel: currentPrice * (1 + offset),
			Strength:   rng.Float64(),
			Side:       side,
		})
	}

	sort.Slice(zones, func(i, j int) bool {
		return zones[i].PriceLevel < zones[j].PriceLevel
	})

	return zones, nil
}

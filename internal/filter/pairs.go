package filter

import (
	"strings"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Распространенные стейблкоины
var stablecoins = map[string]struct{}{
	"USDT": {}, "USDC": {}, "BUSD": {}, "DAI": {}, "TUSD": {}, "USDP": {},
	"USDD": {}, "GUSD": {}, "FRAX": {}, "LUSD": {}, "USDK": {}, "USDJ": {},
	"HUSD": {}, "CUSD": {}, "UST": {}, "USTC": {}, "SUSD": {}, "DUSD": {},
	"OUSD": {}, "MUSD": {}, "RSV": {},
}

// PairFilter отбирает торговые пары по правилам исключения
type PairFilter struct {
	excludeStables bool
	customExclude  []string
}

// NewPairFilter создает фильтр пар
func NewPairFilter(excludeStables bool, customExclude []string) *PairFilter {
	normalized := make([]string, 0, len(customExclude))
	for _, e := range customExclude {
		e = strings.ToUpper(strings.TrimSpace(e))
		if e != "" {
			normalized = append(normalized, e)
		}
	}
	return &PairFilter{
		excludeStables: excludeStables,
		customExclude:  normalized,
	}
}

// IsStablecoinPair проверяет, что обе стороны пары — стейблкоины
func (f *PairFilter) IsStablecoinPair(symbol string) bool {
	symbol = strings.ToUpper(symbol)
	for quote := range stablecoins {
		if !strings.HasSuffix(symbol, quote) {
			continue
		}
		base := strings.TrimSuffix(symbol, quote)
		if _, ok := stablecoins[base]; ok {
			return true
		}
	}
	return false
}

// ShouldExclude проверяет правила исключения для символа
func (f *PairFilter) ShouldExclude(symbol string) bool {
	if f.excludeStables && f.IsStablecoinPair(symbol) {
		return true
	}
	upper := strings.ToUpper(symbol)
	for _, excluded := range f.customExclude {
		if strings.Contains(upper, excluded) {
			return true
		}
	}
	return false
}

// TopInstruments возвращает первые limit инструментов после фильтрации.
// Список предполагается отсортированным по обороту по убыванию.
func (f *PairFilter) TopInstruments(instruments []models.Instrument, limit int) []models.Instrument {
	top := make([]models.Instrument, 0, limit)
	for _, inst := range instruments {
		if f.ShouldExclude(inst.Symbol) {
			continue
		}
		top = append(top, inst)
		if len(top) == limit {
			break
		}
	}
	return top
}

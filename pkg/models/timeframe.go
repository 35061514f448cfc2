package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntervalDuration возвращает длительность таймфрейма ("15m", "1h", "4h",
// "1d", "1M"). Единица регистрозависима: "m" — минута, "M" — месяц, как в
// обозначениях Binance. Неизвестный формат считается ошибкой конфигурации.
func IntervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("неизвестный таймфрейм: %q", interval)
	}

	unit := interval[len(interval)-1]
	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("неизвестный таймфрейм: %q", interval)
	}

	switch unit {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case 'M':
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("неизвестный таймфрейм: %q", interval)
	}
}

// SortTimeframes сортирует таймфреймы от младшего к старшему.
// Нераспознанные значения остаются в конце в исходном порядке.
func SortTimeframes(timeframes []string) []string {
	sorted := make([]string, len(timeframes))
	copy(sorted, timeframes)

	durations := make(map[string]time.Duration, len(sorted))
	for _, tf := range sorted {
		if d, err := IntervalDuration(tf); err == nil {
			durations[tf] = d
		}
	}

	// Стабильная сортировка вставками: списки таймфреймов короткие
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			dj, okj := durations[sorted[j]]
			dp, okp := durations[sorted[j-1]]
			if okj && okp && dj < dp {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
				continue
			}
			break
		}
	}

	return sorted
}

// NormalizeTimeframes убирает пробелы, дубликаты и пустые значения,
// сохраняя порядок от младшего к старшему. Месячная единица "M" не
// приводится к нижнему регистру: "1M" и "1m" — разные таймфреймы.
func NormalizeTimeframes(timeframes []string) []string {
	seen := make(map[string]struct{}, len(timeframes))
	normalized := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		tf = normalizeInterval(tf)
		if tf == "" {
			continue
		}
		if _, ok := seen[tf]; ok {
			continue
		}
		seen[tf] = struct{}{}
		normalized = append(normalized, tf)
	}
	return SortTimeframes(normalized)
}

// normalizeInterval приводит таймфрейм к канонической записи,
// сохраняя месячную единицу
func normalizeInterval(tf string) string {
	tf = strings.TrimSpace(tf)
	if strings.HasSuffix(tf, "M") {
		return strings.ToLower(strings.TrimSuffix(tf, "M")) + "M"
	}
	return strings.ToLower(tf)
}

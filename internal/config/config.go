package config

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Exchange    ExchangeConfig    `yaml:"exchange"`
	Scan        ScanConfig        `yaml:"scan"`
	Cache       CacheConfig       `yaml:"cache"`
	Liquidation LiquidationConfig `yaml:"liquidation"`
	Storage     StorageConfig     `yaml:"storage"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Output      OutputConfig      `yaml:"output"`
	UI          UIConfig          `yaml:"ui"`
}

// ExchangeConfig содержит настройки подключения к бирже
type ExchangeConfig struct {
	APIKey            string  `yaml:"api_key"`
	APISecret         string  `yaml:"api_secret"`
	Testnet           bool    `yaml:"testnet"`
	QuoteCurrency     string  `yaml:"quote_currency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
}

// ScanConfig содержит настройки сканирования
type ScanConfig struct {
	Timeframes         []string      `yaml:"timeframes"`
	MinScore           float64       `yaml:"min_score"`
	MaxPairs           int           `yaml:"max_pairs"`
	MaxWorkers         int           `yaml:"max_workers"`
	TopSetupsLimit     int           `yaml:"top_setups_limit"`
	CandleLimit        int           `yaml:"candle_limit"`
	ExcludeStablecoins bool          `yaml:"exclude_stablecoins"`
	CustomExclude      []string      `yaml:"custom_exclude"`
	Weights            WeightsConfig `yaml:"weights"`
}

// WeightsConfig веса компонентов итоговой оценки
type WeightsConfig struct {
	IndicatorAlignment  float64 `yaml:"indicator_alignment"`
	TimeframeConfluence float64 `yaml:"timeframe_confluence"`
	LiquidationSupport  float64 `yaml:"liquidation_support"`
	TrendStrength       float64 `yaml:"trend_strength"`
}

// CacheConfig TTL-политика кэша по классам данных
type CacheConfig struct {
	ListingTTLSeconds int `yaml:"listing_ttl_seconds"`
	FastTTLSeconds    int `yaml:"fast_ttl_seconds"`
	SlowTTLSeconds    int `yaml:"slow_ttl_seconds"`
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"`
}

// LiquidationConfig настройки оценки зон ликвидаций
type LiquidationConfig struct {
	RangePercent float64 `yaml:"range_percent"`
}

// StorageConfig настройки хранения истории сканирований
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// TelegramConfig настройки уведомлений
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChatID    string `yaml:"chat_id"`
	MaxAlerts int    `yaml:"max_alerts"`
}

// OutputConfig настройки записи результатов
type OutputConfig struct {
	JSONDir string `yaml:"json_dir"`
}

// UIConfig настройки терминального интерфейса
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load загружает конфигурацию из файла и подставляет значения по умолчанию
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.Scan.Timeframes = models.NormalizeTimeframes(config.Scan.Timeframes)

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", config))
	logger.Info("Загружена конфигурация",
		zap.Strings("timeframes", config.Scan.Timeframes),
		zap.Int("max_pairs", config.Scan.MaxPairs),
		zap.Int("max_workers", config.Scan.MaxWorkers))

	return config, nil
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			QuoteCurrency:     "USDT",
			RequestsPerSecond: 10,
			Burst:             20,
			MaxRetries:        5,
		},
		Scan: ScanConfig{
			Timeframes:         []string{"15m", "1h", "4h"},
			MinScore:           50,
			MaxPairs:           50,
			MaxWorkers:         5,
			TopSetupsLimit:     10,
			CandleLimit:        200,
			ExcludeStablecoins: true,
			Weights: WeightsConfig{
				IndicatorAlignment:  0.35,
				TimeframeConfluence: 0.30,
				LiquidationSupport:  0.20,
				TrendStrength:       0.15,
			},
		},
		Cache: CacheConfig{
			ListingTTLSeconds: 300,
			FastTTLSeconds:    60,
			SlowTTLSeconds:    600,
			DefaultTTLSeconds: 300,
		},
		Liquidation: LiquidationConfig{
			RangePercent: 5.0,
		},
		Telegram: TelegramConfig{
			MaxAlerts: 5,
		},
	}
}

// Validate проверяет конфигурацию перед запуском сканирования.
// Все найденные проблемы собираются в одну ошибку.
func (c *Config) Validate() error {
	var errs error

	if len(c.Scan.Timeframes) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("не задан ни один таймфрейм"))
	}
	for _, tf := range c.Scan.Timeframes {
		if _, err := models.IntervalDuration(tf); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.Scan.MaxWorkers <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_workers должен быть положительным, получено %d", c.Scan.MaxWorkers))
	}
	if c.Scan.MaxPairs <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_pairs должен быть положительным, получено %d", c.Scan.MaxPairs))
	}
	if c.Scan.TopSetupsLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("top_setups_limit должен быть положительным, получено %d", c.Scan.TopSetupsLimit))
	}
	if c.Scan.MinScore < 0 || c.Scan.MinScore > 100 {
		errs = multierr.Append(errs, fmt.Errorf("min_score должен быть в диапазоне 0..100, получено %.2f", c.Scan.MinScore))
	}
	if c.Scan.CandleLimit < 50 {
		errs = multierr.Append(errs, fmt.Errorf("candle_limit должен быть не меньше 50, получено %d", c.Scan.CandleLimit))
	}

	w := c.Scan.Weights
	if w.IndicatorAlignment < 0 || w.TimeframeConfluence < 0 || w.LiquidationSupport < 0 || w.TrendStrength < 0 {
		errs = multierr.Append(errs, fmt.Errorf("веса компонентов не могут быть отрицательными"))
	}
	sum := w.IndicatorAlignment + w.TimeframeConfluence + w.LiquidationSupport + w.TrendStrength
	if math.Abs(sum-1.0) > 0.01 {
		errs = multierr.Append(errs, fmt.Errorf("сумма весов должна равняться 1.0, получено %.3f", sum))
	}

	if c.Cache.ListingTTLSeconds <= 0 || c.Cache.FastTTLSeconds <= 0 ||
		c.Cache.SlowTTLSeconds <= 0 || c.Cache.DefaultTTLSeconds <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("все TTL кэша должны быть положительными"))
	}

	if c.Liquidation.RangePercent <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("range_percent должен быть положительным, получено %.2f", c.Liquidation.RangePercent))
	}

	return errs
}

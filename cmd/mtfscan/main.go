package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/internal/exchange"
	"github.com/skalibog/mtfscan/internal/liquidation"
	"github.com/skalibog/mtfscan/internal/notify"
	"github.com/skalibog/mtfscan/internal/output"
	"github.com/skalibog/mtfscan/internal/scanner"
	"github.com/skalibog/mtfscan/internal/storage"
	"github.com/skalibog/mtfscan/internal/ui"
	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

func main() {
	logger.Init()
	defer logger.GetLogger().Sync()

	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	historySymbol := flag.String("history", "", "показать историю сетапов символа и выйти")
	historyLimit := flag.Int("history-limit", 10, "сколько последних сетапов показать")
	flag.Parse()

	// Проверяем наличие файла конфигурации
	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	// Создаем контекст с возможностью отмены через горутину
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Настраиваем обработку сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
	}()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Exchange)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	// Провайдер зон ликвидаций
	liqProvider := liquidation.NewHeatmapProvider(cfg.Liquidation.RangePercent)

	// Создаем сканер; невалидная конфигурация фатальна до начала работы
	scan, err := scanner.New(cfg, client, liqProvider)
	if err != nil {
		logger.Fatal("Ошибка инициализации сканера", zap.Error(err))
	}

	// Необязательное хранилище истории сканирований
	var store storage.Storage
	if cfg.Storage.Enabled {
		influx, err := storage.NewInfluxDBStorage(cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		defer influx.Close()
		store = influx
	}

	// Режим просмотра истории: печатаем последние сетапы и выходим
	if *historySymbol != "" {
		if store == nil {
			logger.Fatal("История недоступна: хранилище отключено в конфигурации")
		}
		printHistory(ctx, store, *historySymbol, *historyLimit)
		return
	}

	if cfg.UI.Enabled {
		runWithUI(ctx, cfg, scan, store)
		return
	}

	progress := func(completed, total int, symbol string) {
		logger.Info("Прогресс сканирования",
			zap.Int("completed", completed),
			zap.Int("total", total),
			zap.String("symbol", symbol))
	}

	result, err := scan.Scan(ctx, progress)
	if err != nil {
		logger.Fatal("Сканирование не удалось", zap.Error(err))
	}

	printSummary(result)
	outputResults(ctx, cfg, result, store)
}

// runWithUI запускает сканирование в горутине, UI блокирует основной поток
func runWithUI(ctx context.Context, cfg *config.Config, scan *scanner.Scanner, store storage.Storage) {
	scanUI := ui.NewScanUI()

	go func() {
		// Отложенный старт, чтобы UI успел подняться
		time.Sleep(200 * time.Millisecond)

		result, err := scan.Scan(ctx, scanUI.UpdateProgress)
		if err != nil {
			logger.Error("Сканирование не удалось", zap.Error(err))
			return
		}

		scanUI.ShowResult(result)
		outputResults(ctx, cfg, result, store)
	}()

	// Запускаем UI в основном потоке (блокирующий вызов)
	scanUI.Start()
}

// outputResults рассылает результат по настроенным каналам.
// Ошибки каналов не фатальны: результат уже получен.
func outputResults(ctx context.Context, cfg *config.Config, result *models.ScanResult, store storage.Storage) {
	if cfg.Output.JSONDir != "" {
		writer, err := output.NewJSONWriter(cfg.Output.JSONDir)
		if err != nil {
			logger.Error("Ошибка создания каталога результатов", zap.Error(err))
		} else if _, err := writer.Save(result); err != nil {
			logger.Error("Ошибка сохранения JSON", zap.Error(err))
		}
	}

	if store != nil {
		if err := store.SaveScanResult(ctx, result); err != nil {
			logger.Error("Ошибка сохранения в хранилище", zap.Error(err))
		}
	}

	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier := notify.NewTelegramNotifier(cfg.Telegram)

		if err := notifier.SendScanSummary(ctx, result); err != nil {
			logger.Error("Ошибка отправки сводки в Telegram", zap.Error(err))
		}

		maxAlerts := cfg.Telegram.MaxAlerts
		if maxAlerts > len(result.Setups) {
			maxAlerts = len(result.Setups)
		}
		for i := 0; i < maxAlerts; i++ {
			if err := notifier.SendSetupAlert(ctx, &result.Setups[i]); err != nil {
				logger.Error("Ошибка отправки алерта в Telegram",
					zap.String("symbol", result.Setups[i].Symbol), zap.Error(err))
			}
		}
	}
}

// printHistory печатает последние сохраненные сетапы символа
func printHistory(ctx context.Context, store storage.Storage, symbol string, limit int) {
	setups, err := store.GetSetupHistory(ctx, symbol, limit)
	if err != nil {
		logger.Fatal("Ошибка получения истории сетапов",
			zap.String("symbol", symbol), zap.Error(err))
	}

	if len(setups) == 0 {
		fmt.Printf("История сетапов %s пуста\n", symbol)
		return
	}

	fmt.Printf("Последние сетапы %s:\n", symbol)
	for i, setup := range setups {
		fmt.Printf("%d. %s — оценка %.1f/100, уверенность %.0f%%",
			i+1, setup.Direction, setup.Score, setup.Confidence*100)
		if savedAt, ok := setup.Metadata["saved_at"].(string); ok {
			fmt.Printf(" (%s)", savedAt)
		}
		fmt.Println()
		for _, reason := range setup.Reasons {
			fmt.Printf("   • %s\n", reason)
		}
	}
}

// printSummary печатает краткий итог в stdout
func printSummary(result *models.ScanResult) {
	fmt.Printf("Сканирование завершено: %s\n", result.Exchange)
	fmt.Printf("Пар проверено: %d\n", result.TotalPairsScanned)
	fmt.Printf("Сетапов найдено: %d\n", result.TotalSetupsFound)
	fmt.Printf("Пропущено символов: %d\n", len(result.SkippedSymbols))
	fmt.Printf("Время: %s\n", result.Elapsed.Round(time.Millisecond))

	for i, setup := range result.Setups {
		fmt.Printf("\n%d. %s — %s\n", i+1, setup.Symbol, setup.Direction)
		fmt.Printf("   Оценка: %.1f/100 | Уверенность: %.0f%%\n", setup.Score, setup.Confidence*100)
		if len(setup.Reasons) > 0 {
			fmt.Printf("   Причина: %s\n", setup.Reasons[0])
		}
	}
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/pkg/models"
)

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPI
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	queryAPI := client.QueryAPI(cfg.Organization)
	writeAPI := client.WriteAPI(cfg.Organization, cfg.Bucket)

	return &InfluxDBStorage{
		client:   client,
		queryAPI: queryAPI,
		writeAPI: writeAPI,
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.writeAPI.Flush()
	s.client.Close()
}

// SaveScanResult сохраняет итог сканирования и все сетапы
func (s *InfluxDBStorage) SaveScanResult(ctx context.Context, result *models.ScanResult) error {
	summary := influxdb2.NewPoint(
		"scans",
		map[string]string{
			"exchange": result.Exchange,
			"scan_id":  result.ScanID,
		},
		map[string]interface{}{
			"pairs_scanned": result.TotalPairsScanned,
			"setups_found":  result.TotalSetupsFound,
			"skipped":       len(result.SkippedSymbols),
			"elapsed_ms":    result.Elapsed.Milliseconds(),
			"state":         string(result.State),
		},
		result.StartedAt,
	)
	s.writeAPI.WritePoint(summary)

	for _, setup := range result.Setups {
		point := influxdb2.NewPoint(
			"setups",
			map[string]string{
				"symbol":    setup.Symbol,
				"direction": string(setup.Direction),
				"scan_id":   result.ScanID,
			},
			map[string]interface{}{
				"score":       setup.Score,
				"confidence":  setup.Confidence,
				"stop_loss":   setup.StopLoss,
				"risk_reward": setup.RiskRewardRatio,
				"reasons":     strings.Join(setup.Reasons, "; "),
			},
			result.StartedAt,
		)
		s.writeAPI.WritePoint(point)
	}

	s.writeAPI.Flush()

	return nil
}

// GetSetupHistory возвращает последние сетапы символа
func (s *InfluxDBStorage) GetSetupHistory(ctx context.Context, symbol string, limit int) ([]models.TradeSetup, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30d)
			|> filter(fn: (r) => r._measurement == "setups")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сетапов: %w", err)
	}

	var setups []models.TradeSetup
	for result.Next() {
		setups = append(setups, setupFromRecord(symbol, result.Record()))
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return setups, nil
}

// setupFromRecord восстанавливает сетап из сводной (pivot) строки Flux
func setupFromRecord(symbol string, record *query.FluxRecord) models.TradeSetup {
	score, _ := record.ValueByKey("score").(float64)
	confidence, _ := record.ValueByKey("confidence").(float64)
	stopLoss, _ := record.ValueByKey("stop_loss").(float64)
	riskReward, _ := record.ValueByKey("risk_reward").(float64)
	direction, _ := record.ValueByKey("direction").(string)
	reasons, _ := record.ValueByKey("reasons").(string)

	setup := models.TradeSetup{
		Symbol:          symbol,
		Direction:       models.Direction(direction),
		Score:           score,
		Confidence:      confidence,
		StopLoss:        stopLoss,
		RiskRewardRatio: riskReward,
		Metadata: map[string]interface{}{
			"saved_at": record.Time().Format(time.RFC3339),
		},
	}
	if reasons != "" {
		setup.Reasons = strings.Split(reasons, "; ")
	}

	return setup
}

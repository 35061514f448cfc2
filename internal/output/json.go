package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

// JSONWriter сохраняет результаты сканирования в JSON-файлы
type JSONWriter struct {
	dir string
}

// NewJSONWriter создает писатель результатов в каталог dir
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога результатов: %w", err)
	}
	return &JSONWriter{dir: dir}, nil
}

// Save записывает результат в файл с меткой времени и обновляет latest.json.
// Возвращает путь основного файла.
func (w *JSONWriter) Save(result *models.ScanResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации результата: %w", err)
	}

	name := fmt.Sprintf("scan_%s_%s.json", result.Exchange, result.StartedAt.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи результата: %w", err)
	}

	// latest.json перезаписывается каждым сканированием
	latest := filepath.Join(w.dir, "latest.json")
	if err := os.WriteFile(latest, data, 0644); err != nil {
		logger.Warn("Не удалось обновить latest.json", zap.Error(err))
	}

	logger.Info("Результат сохранен",
		zap.String("path", path),
		zap.Int("setups", len(result.Setups)),
		zap.Time("started_at", result.StartedAt))

	return path, nil
}

package storage

import (
	"context"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Storage интерфейс хранилища истории сканирований
type Storage interface {
	// SaveScanResult сохраняет итог сканирования и все сетапы
	SaveScanResult(ctx context.Context, result *models.ScanResult) error
	// GetSetupHistory возвращает последние сетапы символа
	GetSetupHistory(ctx context.Context, symbol string, limit int) ([]models.TradeSetup, error)
	// Close закрывает соединение с базой данных
	Close()
}

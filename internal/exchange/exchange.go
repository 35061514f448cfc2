package exchange

import (
	"context"
	"errors"

	"github.com/skalibog/mtfscan/pkg/models"
)

// ErrDataUnavailable биржа не смогла отдать данные (сеть, лимиты, сам обмен).
// Ошибка уровня символа: сканирование продолжается без него.
var ErrDataUnavailable = errors.New("рыночные данные недоступны")

// MarketData порт поставщика рыночных данных
type MarketData interface {
	// Name возвращает идентификатор биржи
	Name() string
	// ListInstruments возвращает инструменты, отсортированные по суточному
	// обороту по убыванию
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	// GetKlines возвращает последние свечи символа на таймфрейме
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	// GetCurrentPrice возвращает текущую цену символа
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

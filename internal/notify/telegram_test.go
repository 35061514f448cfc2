package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/pkg/models"
)

// newTestNotifier направляет нотификатор на тестовый сервер
func newTestNotifier(serverURL string) *TelegramNotifier {
	n := NewTelegramNotifier(config.TelegramConfig{
		BotToken: "test-token",
		ChatID:   "12345",
	})
	n.apiURL = serverURL
	return n
}

func TestSendScanSummary(t *testing.T) {
	var received telegramMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(telegramResponse{OK: true})
	}))
	defer server.Close()

	n := newTestNotifier(server.URL)

	result := &models.ScanResult{
		Exchange:          "binance-futures",
		TotalPairsScanned: 50,
		TotalSetupsFound:  3,
		SkippedSymbols:    []models.SymbolFailure{{Symbol: "BADUSDT", Reason: "нет данных"}},
		Elapsed:           42 * time.Second,
	}

	require.NoError(t, n.SendScanSummary(context.Background(), result))

	assert.Equal(t, "12345", received.ChatID)
	assert.Contains(t, received.Text, "binance-futures")
	assert.Contains(t, received.Text, "Пар проверено: 50")
	assert.Contains(t, received.Text, "Сетапов найдено: 3")
	assert.Contains(t, received.Text, "Пропущено символов: 1")
}

func TestSendSetupAlert(t *testing.T) {
	var received telegramMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(telegramResponse{OK: true})
	}))
	defer server.Close()

	n := newTestNotifier(server.URL)

	setup := &models.TradeSetup{
		Symbol:          "BTCUSDT",
		Direction:       models.DirectionShort,
		Score:           82.3,
		Confidence:      0.75,
		EntryPlan:       []float64{50000},
		StopLoss:        51000,
		TakeProfits:     []float64{49000, 48000},
		RiskRewardRatio: 1.0,
		Reasons:         []string{"Совпадение таймфреймов: 15m, 1h, 4h"},
	}

	require.NoError(t, n.SendSetupAlert(context.Background(), setup))

	assert.Contains(t, received.Text, "🔴")
	assert.Contains(t, received.Text, "BTCUSDT")
	assert.Contains(t, received.Text, "82.3")
	assert.Contains(t, received.Text, "Совпадение таймфреймов")
}

func TestSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(telegramResponse{
			OK: false, ErrorCode: 400, Description: "chat not found",
		})
	}))
	defer server.Close()

	n := newTestNotifier(server.URL)

	err := n.SendScanSummary(context.Background(), &models.ScanResult{Exchange: "binance-futures"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_ServerUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // сервер уже недоступен

	n := newTestNotifier(server.URL)

	err := n.SendScanSummary(context.Background(), &models.ScanResult{Exchange: "binance-futures"})
	assert.Error(t, err)
}

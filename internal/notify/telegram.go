package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/mtfscan/internal/config"
	"github.com/skalibog/mtfscan/pkg/logger"
	"github.com/skalibog/mtfscan/pkg/models"
)

// TelegramNotifier отправляет итоги сканирования через Telegram Bot API
type TelegramNotifier struct {
	cfg    config.TelegramConfig
	client *http.Client
	apiURL string
}

// telegramMessage тело запроса sendMessage
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// telegramResponse ответ Bot API
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegramNotifier создает нотификатор
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		apiURL: fmt.Sprintf("https://api.telegram.org/bot%s", cfg.BotToken),
	}
}

// SendScanSummary отправляет сводку сканирования
func (n *TelegramNotifier) SendScanSummary(ctx context.Context, result *models.ScanResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Сканирование %s завершено\n", result.Exchange)
	fmt.Fprintf(&b, "Пар проверено: %d\n", result.TotalPairsScanned)
	fmt.Fprintf(&b, "Сетапов найдено: %d\n", result.TotalSetupsFound)
	if len(result.SkippedSymbols) > 0 {
		fmt.Fprintf(&b, "Пропущено символов: %d\n", len(result.SkippedSymbols))
	}
	fmt.Fprintf(&b, "Время: %s", result.Elapsed.Round(time.Second))

	return n.send(ctx, b.String())
}

// SendSetupAlert отправляет алерт по одному сетапу
func (n *TelegramNotifier) SendSetupAlert(ctx context.Context, setup *models.TradeSetup) error {
	emoji := "🟢"
	if setup.Direction == models.DirectionShort {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s — %s\n", emoji, setup.Symbol, setup.Direction)
	fmt.Fprintf(&b, "Оценка: %.1f/100 | Уверенность: %.0f%%\n", setup.Score, setup.Confidence*100)
	if len(setup.EntryPlan) > 0 {
		fmt.Fprintf(&b, "Вход: %.6g\n", setup.EntryPlan[0])
	}
	if setup.StopLoss > 0 {
		fmt.Fprintf(&b, "Стоп: %.6g\n", setup.StopLoss)
	}
	if len(setup.TakeProfits) > 0 {
		targets := make([]string, len(setup.TakeProfits))
		for i, tp := range setup.TakeProfits {
			targets[i] = fmt.Sprintf("%.6g", tp)
		}
		fmt.Fprintf(&b, "Цели: %s\n", strings.Join(targets, ", "))
	}
	if setup.RiskRewardRatio > 0 {
		fmt.Fprintf(&b, "R:R: %.2f\n", setup.RiskRewardRatio)
	}
	for _, reason := range setup.Reasons {
		fmt.Fprintf(&b, "• %s\n", reason)
	}

	return n.send(ctx, b.String())
}

// send выполняет вызов sendMessage
func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(telegramMessage{
		ChatID: n.cfg.ChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %w", err)
	}
	defer resp.Body.Close()

	var apiResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("ошибка разбора ответа Telegram: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("Telegram вернул ошибку %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	logger.Debug("Сообщение отправлено в Telegram", zap.Int("length", len(text)))

	return nil
}

package ui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skalibog/mtfscan/pkg/models"
)

// Стили UI
var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(secondaryColor).
				Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
)

// ScanUI терминальный интерфейс сканирования: прогресс по символам,
// затем таблица лучших сетапов
type ScanUI struct {
	mu        sync.RWMutex
	completed int
	total     int
	current   string
	result    *models.ScanResult
	program   *tea.Program
	width     int
}

// Сообщения для обновления UI
type refreshMsg struct{}

// bubbleModel модель для bubbletea
type bubbleModel struct {
	ui *ScanUI
}

// NewScanUI создает интерфейс сканирования
func NewScanUI() *ScanUI {
	return &ScanUI{width: 120}
}

// Start запускает UI; вызов блокирующий. Поле program пишется под ui.mu:
// UpdateProgress и ShowResult читают его из горутины сканирования.
func (ui *ScanUI) Start(opts ...tea.ProgramOption) {
	model := bubbleModel{ui: ui}
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	ui.mu.Lock()
	ui.program = tea.NewProgram(model, opts...)
	program := ui.program
	ui.mu.Unlock()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Ошибка запуска UI: %v\n", err)
	}
}

// UpdateProgress сообщает о завершении очередного символа.
// Подходит как scanner.ProgressFunc.
func (ui *ScanUI) UpdateProgress(completed, total int, symbol string) {
	ui.mu.Lock()
	ui.completed = completed
	ui.total = total
	ui.current = symbol
	program := ui.program
	ui.mu.Unlock()

	if program != nil {
		program.Send(refreshMsg{})
	}
}

// ShowResult показывает итог завершенного сканирования
func (ui *ScanUI) ShowResult(result *models.ScanResult) {
	ui.mu.Lock()
	ui.result = result
	program := ui.program
	ui.mu.Unlock()

	if program != nil {
		program.Send(refreshMsg{})
	}
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return nil
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.ui.mu.Lock()
		m.ui.width = msg.Width
		m.ui.mu.Unlock()

	case refreshMsg:
		// Просто обновляем UI
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.mu.RLock()
	defer m.ui.mu.RUnlock()

	title := titleStyle.Render("MTFSCAN - Multi-Timeframe Confluence Scanner")
	progress := renderProgressSection(m.ui.completed, m.ui.total, m.ui.current)
	setups := renderSetupsSection(m.ui.result)
	footer := footerStyle.Render("Клавиши: Q - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			progress,
			"\n",
			setups,
			"\n",
			footer,
		),
	)
}

// renderProgressSection рисует полосу прогресса сканирования
func renderProgressSection(completed, total int, current string) string {
	header := sectionHeaderStyle.Render("ПРОГРЕСС")
	content := strings.Builder{}

	if total == 0 {
		content.WriteString("  Ожидание списка пар...\n")
	} else {
		barWidth := 40
		filled := completed * barWidth / total
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		content.WriteString(fmt.Sprintf("  [%s] %d/%d\n", bar, completed, total))
		if current != "" && completed < total {
			content.WriteString(fmt.Sprintf("  Проверяется: %s\n", current))
		}
	}

	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			content.String(),
		),
	)
}

// renderSetupsSection рисует таблицу найденных сетапов
func renderSetupsSection(result *models.ScanResult) string {
	header := sectionHeaderStyle.Render("СЕТАПЫ")
	content := strings.Builder{}

	if result == nil {
		content.WriteString("  Сканирование не завершено...\n")
	} else if len(result.Setups) == 0 {
		line := fmt.Sprintf("  Сетапов не найдено (пар проверено: %d, пропущено: %d)\n",
			result.TotalPairsScanned, len(result.SkippedSymbols))
		content.WriteString(line)
	} else {
		for i, setup := range result.Setups {
			direction := formatDirection(setup.Direction)
			line := fmt.Sprintf("  %2d. %-14s %s  %.1f/100  уверенность %.0f%%",
				i+1, setup.Symbol, direction, setup.Score, setup.Confidence*100)
			content.WriteString(line + "\n")
			if len(setup.Reasons) > 0 {
				content.WriteString(footerStyle.Render("      "+setup.Reasons[0]) + "\n")
			}
		}
	}

	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			content.String(),
		),
	)
}

// formatDirection подсвечивает направление сделки
func formatDirection(direction models.Direction) string {
	switch direction {
	case models.DirectionLong:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true).Render("LONG ")
	case models.DirectionShort:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true).Render("SHORT")
	default:
		return lipgloss.NewStyle().Foreground(warningColor).Render("NEUTR")
	}
}

package models

import (
	"time"
)

// Direction направление сделки
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Instrument представляет торговый инструмент с суточным оборотом
type Instrument struct {
	Symbol      string
	QuoteVolume float64
}

// IndicatorSignal представляет сигнал одного индикатора на одном таймфрейме
type IndicatorSignal struct {
	Name      string
	Timeframe string
	Value     float64
	Direction Direction
	Strength  float64 // 0..1
}

// LiquidationZone представляет зону ликвидаций
type LiquidationZone struct {
	PriceLevel float64
	Strength   float64 // 0..1
	Side       Direction
}

// TradeSetup представляет оцененную торговую возможность
type TradeSetup struct {
	Symbol              string
	Direction           Direction
	Score               float64 // 0..100
	Confidence          float64 // 0..1
	EntryPlan           []float64
	StopLoss            float64
	TakeProfits         []float64
	RiskRewardRatio     float64
	TimeframeConfluence map[string]Direction
	IndicatorSignals    []IndicatorSignal
	LiquidationZones    []LiquidationZone
	Reasons             []string
	Metadata            map[string]interface{}
}

// ScanState состояние сканирования
type ScanState string

const (
	ScanPending       ScanState = "PENDING"
	ScanFetchingPairs ScanState = "FETCHING_PAIRS"
	ScanScanning      ScanState = "SCANNING"
	ScanRanking       ScanState = "RANKING"
	ScanDone          ScanState = "DONE"
	ScanFailed        ScanState = "FAILED"
)

// SymbolFailure причина пропуска символа при сканировании
type SymbolFailure struct {
	Symbol string
	Reason string
}

// ScanResult представляет результат полного сканирования
type ScanResult struct {
	ScanID            string
	Exchange          string
	StartedAt         time.Time
	Elapsed           time.Duration
	State             ScanState
	TotalPairsScanned int
	TotalSetupsFound  int
	Setups            []TradeSetup
	SkippedSymbols    []SymbolFailure
	Metadata          map[string]interface{}
}

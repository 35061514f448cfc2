package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/mtfscan/pkg/models"
)

func sampleResult() *models.ScanResult {
	return &models.ScanResult{
		ScanID:            "test-scan",
		Exchange:          "binance-futures",
		StartedAt:         time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		State:             models.ScanDone,
		TotalPairsScanned: 2,
		TotalSetupsFound:  1,
		Setups: []models.TradeSetup{
			{Symbol: "BTCUSDT", Direction: models.DirectionLong, Score: 75.5},
		},
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONWriter(dir)
	require.NoError(t, err)

	path, err := w.Save(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scan_binance-futures_20260826_120000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var restored models.ScanResult
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "test-scan", restored.ScanID)
	require.Len(t, restored.Setups, 1)
	assert.Equal(t, models.DirectionLong, restored.Setups[0].Direction)
}

func TestSave_UpdatesLatest(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONWriter(dir)
	require.NoError(t, err)

	_, err = w.Save(sampleResult())
	require.NoError(t, err)

	second := sampleResult()
	second.ScanID = "второй"
	second.StartedAt = second.StartedAt.Add(time.Hour)
	_, err = w.Save(second)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "latest.json"))
	require.NoError(t, err)

	var restored models.ScanResult
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "второй", restored.ScanID, "latest.json указывает на последний скан")
}

func TestNewJSONWriter_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")

	_, err := NewJSONWriter(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

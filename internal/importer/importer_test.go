package importer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"popflow/pkg/contracts/domain"
)

func workbookBytes(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestReadWithChineseHeaders(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"城市", "年份", "常住人口", "增减"},
		{"广州", 2023, 1882.70, 9.29},
		{"深圳市", 2023, 1766.18, 12.83},
	})

	obs, err := Read(buf, discard())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "广州市", obs[0].City, "bare city name gains the 市 suffix")
	assert.Equal(t, 2023, obs[0].Year)
	assert.InDelta(t, 1882.70, obs[0].Population, 1e-9)
	assert.InDelta(t, 9.29, obs[0].ChangeAmount, 1e-9)
	assert.Equal(t, domain.SourceUploaded, obs[0].Source)
	assert.Equal(t, "深圳市", obs[1].City)
}

func TestReadWithEnglishHeaders(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"City", "Year", "Population", "Change"},
		{"珠海市", "2022年", "249.80万人", "-1.20"},
	})

	obs, err := Read(buf, discard())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "珠海市", obs[0].City)
	assert.Equal(t, 2022, obs[0].Year)
	assert.InDelta(t, 249.80, obs[0].Population, 1e-9)
	assert.InDelta(t, -1.20, obs[0].ChangeAmount, 1e-9)
	assert.Equal(t, domain.DirectionDecrease, obs[0].Direction)
}

func TestReadPositionalFallback(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"佛山市", 2023, 955.23, 6.50},
		{"东莞市", 2023, 1048.53, 2.00},
	})

	obs, err := Read(buf, discard())
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "佛山市", obs[0].City)
}

func TestReadSkipsInvalidRows(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"城市", "年份", "人口", "变化"},
		{"广州市", 2023, 1882.70, 9.29},
		{"", 2023, 100.0, 0},
		{"中山市", "not-a-year", 443.11, 0},
		{"惠州市", 2023, -5.0, 0},
	})

	obs, err := Read(buf, discard())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "广州市", obs[0].City)
}

func TestReadRejectsEmptyWorkbook(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{{"notes"}, {"nothing useful"}})

	_, err := Read(buf, discard())
	assert.Error(t, err)
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "广州市", NormalizeCity("广州"))
	assert.Equal(t, "广州市", NormalizeCity(" 广州市 "))
	assert.Equal(t, "", NormalizeCity("   "))
}

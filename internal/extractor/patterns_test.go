package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popflow/pkg/contracts/domain"
)

func TestMatchAbsoluteChange(t *testing.T) {
	tests := []struct {
		name       string
		segment    string
		wantCity   string
		wantPop    float64
		wantChange float64
		wantNone   bool
	}{
		{
			name:       "increase",
			segment:    "广州市常住人口1867.66万人，比上年增加7.03万人",
			wantCity:   "广州市",
			wantPop:    1867.66,
			wantChange: 7.03,
		},
		{
			name:       "decrease is negative",
			segment:    "汕头市常住人口554.19万人，比上年减少1.97万人",
			wantCity:   "汕头市",
			wantPop:    554.19,
			wantChange: -1.97,
		},
		{
			name:     "no comma clause",
			segment:  "广州市常住人口1867.66万人",
			wantNone: true,
		},
		{
			name:     "latin city token rejected",
			segment:  "Guangzhou市常住人口1867.66万人，比上年增加7.03万人",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := matchAbsoluteChange(tt.segment, 2023)
			if tt.wantNone {
				assert.Empty(t, obs)
				return
			}
			require.Len(t, obs, 1)
			assert.Equal(t, tt.wantCity, obs[0].City)
			assert.InDelta(t, tt.wantPop, obs[0].Population, 1e-9)
			assert.InDelta(t, tt.wantChange, obs[0].ChangeAmount, 1e-9)
			assert.Equal(t, 2023, obs[0].Year)
		})
	}
}

func TestMatchPercentChange(t *testing.T) {
	obs := matchPercentChange("深圳市人口1766.18万人，同比增长0.4%", 2023)
	require.Len(t, obs, 1)
	assert.Equal(t, "深圳市", obs[0].City)
	assert.InDelta(t, 1766.18, obs[0].Population, 1e-9)
	// Percentage is converted to an absolute 万人 figure.
	assert.InDelta(t, 1766.18*0.4/100, obs[0].ChangeAmount, 1e-9)
	assert.Equal(t, domain.DirectionIncrease, obs[0].Direction)

	obs = matchPercentChange("汕头市人口554.19万人，同比下降0.35%", 2023)
	require.Len(t, obs, 1)
	assert.Negative(t, obs[0].ChangeAmount)
	assert.Equal(t, domain.DirectionDecrease, obs[0].Direction)
}

func TestMatchBareFigure(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		wantPop float64
	}{
		{"wan unit kept", "佛山市 961.54万人", 961.54},
		{"qian unit scaled", "某某市 500千人", 50},
		{"bare persons scaled", "某某市 30000人", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := matchBareFigure(tt.segment, 2022)
			require.Len(t, obs, 1)
			assert.InDelta(t, tt.wantPop, obs[0].Population, 1e-9)
			assert.Zero(t, obs[0].ChangeAmount, "bare figures carry no change data")
		})
	}
}

func TestExtractObservationsPatternPriority(t *testing.T) {
	// This segment matches both pattern 1 and pattern 3; pattern 1's
	// captures must win.
	text := "广州市常住人口1867.66万人，比上年增加7.03万人"
	obs := ExtractObservations(text, 2023)
	require.Len(t, obs, 1)
	assert.InDelta(t, 7.03, obs[0].ChangeAmount, 1e-9)
	assert.InDelta(t, 1867.66, obs[0].Population, 1e-9)
}

func TestExtractObservationsMultipleSegments(t *testing.T) {
	text := "2023年广东省国民经济和社会发展统计公报。广州市常住人口1882.70万人，比上年增加9.29万人。佛山市 961.54万人。"
	obs := ExtractObservations(text, 2025)
	require.Len(t, obs, 2)
	assert.Equal(t, "广州市", obs[0].City)
	assert.Equal(t, "佛山市", obs[1].City)
	// Year comes from the 统计 phrasing, not the fallback.
	assert.Equal(t, 2023, obs[0].Year)
}

func TestExtractObservationsUnmatchedYieldsNothing(t *testing.T) {
	assert.Empty(t, ExtractObservations("今年天气很好，没有数据。", 2023))
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback int
		want     int
	}{
		{"census phrasing", "2020年第七次全国人口普查结果", 2025, 2020},
		{"statistics phrasing", "2022年国民经济和社会发展统计公报", 2025, 2022},
		{"no year uses fallback", "常住人口数据", 2025, 2025},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYear(tt.text, tt.fallback))
		})
	}
}

func TestYearSources(t *testing.T) {
	urls := YearSources("http://stats.gd.gov.cn/tjsj/tjfx/{year}/", 2021, 2023)
	assert.Equal(t, []string{
		"http://stats.gd.gov.cn/tjsj/tjfx/2023/",
		"http://stats.gd.gov.cn/tjsj/tjfx/2022/",
		"http://stats.gd.gov.cn/tjsj/tjfx/2021/",
	}, urls)
}

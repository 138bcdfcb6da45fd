package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "popflow/internal/errors"
)

const bulletinHTML = `<html><head><title>统计公报</title><style>body{}</style></head>
<body>
<nav>首页 > 统计数据 > 统计公报</nav>
<div class="TRS_Editor">
<p>2023年广州市国民经济和社会发展统计公报。</p>
<p>广州市常住人口1882.70万人，比上年增加9.29万人。深圳市常住人口1766.18万人，比上年增加12.83万人。</p>
</div>
<footer>版权所有</footer>
<script>console.log("tracker")</script>
</body></html>`

func TestExtractTextPrefersContentContainer(t *testing.T) {
	text, err := ExtractText(bulletinHTML)
	require.NoError(t, err)

	assert.Contains(t, text, "常住人口1882.70万人")
	assert.NotContains(t, text, "tracker", "scripts are stripped")
	assert.NotContains(t, text, "首页", "navigation chrome outside the container is dropped")
}

func TestExtractTextFallsBackToBody(t *testing.T) {
	html := `<html><body><table><tr><td>广州市</td><td>1882.70万人</td></tr></table>` +
		strings.Repeat("<p>流动人口统计数据表。</p>", 5) + `</body></html>`
	text, err := ExtractText(html)
	require.NoError(t, err)
	assert.Contains(t, text, "广州市")
}

func TestExtractTextEmptyDocument(t *testing.T) {
	_, err := ExtractText("<html><body></body></html>")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestHasPopulationContent(t *testing.T) {
	assert.True(t, HasPopulationContent("全市常住人口1882.70万人"))
	assert.True(t, HasPopulationContent("迁入人数上升"))
	assert.False(t, HasPopulationContent("地区生产总值增长5.0%"))
}

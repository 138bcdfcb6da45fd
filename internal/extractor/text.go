package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "popflow/internal/errors"
)

// contentSelectors are the containers government CMS templates put bulletin
// prose in, tried most-specific first. TRS_Editor is the editor div used by
// most *.gov.cn statistics sites.
var contentSelectors = []string{
	".TRS_Editor",
	"article",
	".article-content",
	"#content",
	".content",
	"main",
}

// ExtractText turns raw page HTML into analyzable prose. The primary pass
// selects the content-bearing block and strips boilerplate; when that yields
// nothing useful the whole document text is used as a fallback. Both passes
// failing returns ErrParse.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}

	if text := extractStructured(doc); text != "" {
		return text, nil
	}
	if text := extractFallback(doc); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("%w: no text content", apperrors.ErrParse)
}

// extractStructured is the boilerplate-removal pass: pick the first known
// content container holding a meaningful amount of text.
func extractStructured(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		node.Find("script, style, nav, header, footer").Remove()
		text := normalizeWhitespace(node.Text())
		// Short blocks are navigation chrome, not bulletin prose.
		if len([]rune(text)) >= 50 {
			return text
		}
	}
	return ""
}

// extractFallback is the generic markup pass: full document text with
// non-content elements stripped.
func extractFallback(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	body.Find("script, style, noscript").Remove()
	return normalizeWhitespace(body.Text())
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// populationKeywords gate extraction: pages without any of these terms are
// skipped entirely.
var populationKeywords = []string{"人口", "常住人口", "流动人口", "迁入", "迁出"}

// HasPopulationContent reports whether the text mentions population at all.
func HasPopulationContent(text string) bool {
	for _, kw := range populationKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

package flows

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReportMarkdown(t *testing.T) {
	md := RenderReportMarkdown(sampleReport())

	assert.Contains(t, md, "# 노트북 비교 보고서")
	assert.Contains(t, md, "총 2개 제품 비교")
	assert.Contains(t, md, "## 우선순위")
	assert.Contains(t, md, "1. 무게")
	assert.Contains(t, md, "2. 배터리")
	assert.Contains(t, md, "## LG 그램 17")
	assert.Contains(t, md, "## 맥북 에어 15")
	assert.Contains(t, md, "| 무게 | 95 | 1,350g |")
	assert.Contains(t, md, "**강점**")
	assert.Contains(t, md, "- 가볍다")
	assert.Contains(t, md, "## 종합평")
	assert.Contains(t, md, "## 추천")

	// 무게 is the top priority, so the lighter laptop renders first.
	assert.Less(t,
		strings.Index(md, "## LG 그램 17"),
		strings.Index(md, "## 맥북 에어 15"))
}

func TestRenderReportMarkdownPriorityChangesOrder(t *testing.T) {
	report := sampleReport()
	report.UserPriorities = map[string]int{"배터리": 1, "무게": 2}

	md := RenderReportMarkdown(report)
	assert.Less(t,
		strings.Index(md, "## 맥북 에어 15"),
		strings.Index(md, "## LG 그램 17"))
}

func TestRenderReportHTML(t *testing.T) {
	out := RenderReportHTML(sampleReport())

	assert.Contains(t, out, "노트북 비교 보고서</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>1,350g</td>")
	assert.Contains(t, out, "<li>가볍다</li>")
}

func TestRankProducts(t *testing.T) {
	report := ComparisonReport{
		UserPriorities: map[string]int{"a": 1, "b": 2},
		Products: []ProductComparison{
			{ProductName: "balanced", CriteriaScores: map[string]float64{"a": 70, "b": 70}},
			{ProductName: "a-heavy", CriteriaScores: map[string]float64{"a": 90, "b": 40}},
			{ProductName: "unranked-only", CriteriaScores: map[string]float64{"c": 100}},
		},
	}

	ranked := rankProducts(report)
	require.Len(t, ranked, 3)
	// a-heavy: 90 + 20 = 110, balanced: 70 + 35 = 105, unranked-only: 50.
	assert.Equal(t, "a-heavy", ranked[0].ProductName)
	assert.Equal(t, "balanced", ranked[1].ProductName)
	assert.Equal(t, "unranked-only", ranked[2].ProductName)

	// Input order is untouched.
	assert.Equal(t, "balanced", report.Products[0].ProductName)
}

func TestRankProductsStableWithoutScores(t *testing.T) {
	report := ComparisonReport{
		Products: []ProductComparison{
			{ProductName: "first"},
			{ProductName: "second"},
		},
	}
	ranked := rankProducts(report)
	assert.Equal(t, "first", ranked[0].ProductName)
	assert.Equal(t, "second", ranked[1].ProductName)
}

func TestPrioritiesInOrder(t *testing.T) {
	order := prioritiesInOrder(map[string]int{"배터리": 2, "무게": 1, "가격": 2})
	assert.Equal(t, []string{"무게", "가격", "배터리"}, order)
}

func TestScoresInOrder(t *testing.T) {
	order := scoresInOrder(map[string]float64{"a": 50, "b": 90, "c": 90})
	assert.Equal(t, []string{"b", "c", "a"}, order)
}

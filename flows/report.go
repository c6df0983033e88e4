package flows

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderReportMarkdown renders a comparison report as markdown, products
// ordered by their priority-weighted score.
func RenderReportMarkdown(report ComparisonReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s 비교 보고서\n\n", report.Category)
	fmt.Fprintf(&b, "총 %d개 제품 비교\n\n", report.TotalProducts)

	if len(report.UserPriorities) > 0 {
		b.WriteString("## 우선순위\n\n")
		for _, criterion := range prioritiesInOrder(report.UserPriorities) {
			fmt.Fprintf(&b, "%d. %s\n", report.UserPriorities[criterion], criterion)
		}
		b.WriteString("\n")
	}

	for _, p := range rankProducts(report) {
		fmt.Fprintf(&b, "## %s\n\n", p.ProductName)

		if len(p.CriteriaScores) > 0 {
			b.WriteString("| 기준 | 점수 | 스펙 |\n|---|---|---|\n")
			for _, criterion := range scoresInOrder(p.CriteriaScores) {
				fmt.Fprintf(&b, "| %s | %.0f | %s |\n",
					criterion, p.CriteriaScores[criterion], p.CriteriaSpecs[criterion])
			}
			b.WriteString("\n")
		}
		if len(p.Strengths) > 0 {
			b.WriteString("**강점**\n\n")
			for _, s := range p.Strengths {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
		if len(p.Weaknesses) > 0 {
			b.WriteString("**약점**\n\n")
			for _, w := range p.Weaknesses {
				fmt.Fprintf(&b, "- %s\n", w)
			}
			b.WriteString("\n")
		}
	}

	if report.Summary != "" {
		fmt.Fprintf(&b, "## 종합평\n\n%s\n\n", report.Summary)
	}
	if report.Recommendation != "" {
		fmt.Fprintf(&b, "## 추천\n\n%s\n", report.Recommendation)
	}
	return b.String()
}

// RenderReportHTML renders a comparison report as an HTML fragment for the
// extension panel.
func RenderReportHTML(report ComparisonReport) string {
	md := RenderReportMarkdown(report)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}

// rankProducts orders products by priority-weighted score, best first.
// Lower priority rank means higher importance, so rank r contributes
// weight 1/r.
func rankProducts(report ComparisonReport) []ProductComparison {
	ranked := make([]ProductComparison, len(report.Products))
	copy(ranked, report.Products)

	weight := func(criterion string) float64 {
		if rank, ok := report.UserPriorities[criterion]; ok && rank > 0 {
			return 1 / float64(rank)
		}
		return 0.5
	}
	score := func(p ProductComparison) float64 {
		total := 0.0
		for criterion, s := range p.CriteriaScores {
			total += s * weight(criterion)
		}
		return total
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}

func prioritiesInOrder(priorities map[string]int) []string {
	criteria := make([]string, 0, len(priorities))
	for c := range priorities {
		criteria = append(criteria, c)
	}
	sort.Slice(criteria, func(i, j int) bool {
		if priorities[criteria[i]] != priorities[criteria[j]] {
			return priorities[criteria[i]] < priorities[criteria[j]]
		}
		return criteria[i] < criteria[j]
	})
	return criteria
}

func scoresInOrder(scores map[string]float64) []string {
	criteria := make([]string, 0, len(scores))
	for c := range scores {
		criteria = append(criteria, c)
	}
	sort.Slice(criteria, func(i, j int) bool {
		if scores[criteria[i]] != scores[criteria[j]] {
			return scores[criteria[i]] > scores[criteria[j]]
		}
		return criteria[i] < criteria[j]
	})
	return criteria
}

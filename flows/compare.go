package flows

import (
	"context"

	"github.com/shopscout/agent/graph"
	"github.com/shopscout/agent/log"
)

// Compare node names.
const (
	NodeCollectCriteria   = "collect_user_criteria"
	NodeAnalyzeProducts   = "analyze_products"
	NodeCollectPriorities = "collect_user_priorities"
	NodeGenerateReport    = "generate_report"
)

// CompareDeps are the collaborators of the compare workflow.
type CompareDeps struct {
	Invoker ModelInvoker
	Logger  log.Logger
}

func (d *CompareDeps) fill() {
	if d.Logger == nil {
		d.Logger = log.GetDefaultLogger()
	}
}

// NewCompareGraph builds the human-in-the-loop product comparison workflow:
//
//	collect_user_criteria -> analyze_products -> collect_user_priorities ->
//	generate_report
//
// The two collect nodes are interrupt points. The first run pauses until the
// caller injects user_criteria; after criteria extraction the session pauses
// again until user_priorities arrives, then the report is generated.
func NewCompareGraph(deps CompareDeps) *graph.StateGraph {
	deps.fill()
	c := &compareFlow{deps: deps}

	g := graph.NewStateGraph()
	g.AddNode(NodeCollectCriteria, "waits for the user's criteria keywords", c.collectCriteria)
	g.AddNode(NodeAnalyzeProducts, "extracts comparable criteria from the products", c.analyzeProducts)
	g.AddNode(NodeCollectPriorities, "waits for the user's priority ranking", c.collectPriorities)
	g.AddNode(NodeGenerateReport, "generates the final comparison report", c.generateReport)

	g.SetEntryPoint(NodeCollectCriteria)
	g.AddEdge(NodeCollectCriteria, NodeAnalyzeProducts)
	g.AddEdge(NodeAnalyzeProducts, NodeCollectPriorities)
	g.AddEdge(NodeCollectPriorities, NodeGenerateReport)
	g.AddEdge(NodeGenerateReport, graph.END)

	g.AddInterruptBefore(NodeCollectCriteria, KeyUserCriteria)
	g.AddInterruptBefore(NodeCollectPriorities, KeyUserPriorities)
	return g
}

// NewQuickCompareGraph builds the single-pause variant used when the client
// collects criteria and priorities in one form:
//
//	collect_user_criteria -> analyze_products -> generate_report
//
// Priorities follow the order of the submitted criteria.
func NewQuickCompareGraph(deps CompareDeps) *graph.StateGraph {
	deps.fill()
	c := &compareFlow{deps: deps, rankByOrder: true}

	g := graph.NewStateGraph()
	g.AddNode(NodeCollectCriteria, "waits for the user's ordered criteria", c.collectCriteria)
	g.AddNode(NodeAnalyzeProducts, "extracts comparable criteria from the products", c.analyzeProducts)
	g.AddNode(NodeGenerateReport, "generates the final comparison report", c.generateReport)

	g.SetEntryPoint(NodeCollectCriteria)
	g.AddEdge(NodeCollectCriteria, NodeAnalyzeProducts)
	g.AddEdge(NodeAnalyzeProducts, NodeGenerateReport)
	g.AddEdge(NodeGenerateReport, graph.END)

	g.AddInterruptBefore(NodeCollectCriteria, KeyUserCriteria)
	return g
}

type compareFlow struct {
	deps        CompareDeps
	rankByOrder bool
}

// collectCriteria only observes the injected input; the injection itself
// happens through the engine before the node resumes.
func (c *compareFlow) collectCriteria(ctx context.Context, state graph.State) (graph.State, error) {
	criteria := state.StringSlice(KeyUserCriteria)
	if len(criteria) == 0 {
		c.deps.Logger.Warn("no user criteria provided")
		return nil, nil
	}
	c.deps.Logger.Info("user criteria: %v", criteria)

	if c.rankByOrder {
		priorities := make(map[string]int, len(criteria))
		for i, criterion := range criteria {
			priorities[criterion] = i + 1
		}
		return graph.State{KeyUserPriorities: priorities}, nil
	}
	return nil, nil
}

func (c *compareFlow) analyzeProducts(ctx context.Context, state graph.State) (graph.State, error) {
	products, err := productsFromState(state)
	if err != nil || len(products) == 0 {
		c.deps.Logger.Error("no products to analyze")
		return graph.State{KeyExtractedCriteria: []string{}}, nil
	}
	userCriteria := state.StringSlice(KeyUserCriteria)

	var result extractedCriteria
	messages := buildAnalyzeCriteriaMessages(state.String(KeyCategory), userCriteria, products)
	if err := c.deps.Invoker.Invoke(ctx, messages, &result); err != nil {
		c.deps.Logger.Error("criteria extraction failed, falling back to user criteria: %v", err)
		return graph.State{KeyExtractedCriteria: userCriteria}, nil
	}

	c.deps.Logger.Info("extracted %d comparison criteria", len(result.Criteria))
	return graph.State{KeyExtractedCriteria: result.Criteria}, nil
}

func (c *compareFlow) collectPriorities(ctx context.Context, state graph.State) (graph.State, error) {
	priorities := state.IntMap(KeyUserPriorities)
	if len(priorities) == 0 {
		c.deps.Logger.Warn("no user priorities provided")
	} else {
		c.deps.Logger.Info("user priorities for %d criteria", len(priorities))
	}
	return nil, nil
}

func (c *compareFlow) generateReport(ctx context.Context, state graph.State) (graph.State, error) {
	category := state.String(KeyCategory)
	priorities := state.IntMap(KeyUserPriorities)
	products, err := productsFromState(state)
	if err != nil {
		products = nil
	}

	if len(products) == 0 || len(priorities) == 0 {
		c.deps.Logger.Error("insufficient data for report generation")
		return graph.State{KeyComparisonReport: fallbackReport(state)}, nil
	}

	var report ComparisonReport
	messages := buildGenerateReportMessages(category, priorities, products)
	if err := c.deps.Invoker.Invoke(ctx, messages, &report); err != nil {
		c.deps.Logger.Error("report generation failed, using fallback: %v", err)
		return graph.State{KeyComparisonReport: fallbackReport(state)}, nil
	}

	c.deps.Logger.Info("comparison report generated for %d products", len(report.Products))
	return graph.State{KeyComparisonReport: report}, nil
}

// fallbackReport echoes the session's inputs so the client can still render
// something actionable after a failure.
func fallbackReport(state graph.State) ComparisonReport {
	products, _ := productsFromState(state)
	category := state.String(KeyCategory)
	if category == "" {
		category = "Unknown"
	}
	return ComparisonReport{
		Category:       category,
		TotalProducts:  len(products),
		UserCriteria:   state.StringSlice(KeyUserCriteria),
		UserPriorities: state.IntMap(KeyUserPriorities),
		Products:       []ProductComparison{},
		Summary:        msgReportFailed,
		Recommendation: msgNoRecommend,
	}
}

func productsFromState(state graph.State) ([]ProductAnalysis, error) {
	v, ok := state[KeyProducts]
	if !ok || v == nil {
		return nil, nil
	}
	if typed, ok := v.([]ProductAnalysis); ok {
		return typed, nil
	}
	var out []ProductAnalysis
	err := graph.Reencode(v, &out)
	return out, err
}

// ReportFromState decodes the final report out of a session state.
func ReportFromState(state graph.State) (ComparisonReport, error) {
	var report ComparisonReport
	v, ok := state[KeyComparisonReport]
	if !ok || v == nil {
		return report, nil
	}
	if typed, ok := v.(ComparisonReport); ok {
		return typed, nil
	}
	err := graph.Reencode(v, &report)
	return report, err
}

// AnalysisFromState decodes the product analysis out of a session state.
func AnalysisFromState(state graph.State) (ProductAnalysis, error) {
	var analysis ProductAnalysis
	v, ok := state[KeyProductAnalysis]
	if !ok || v == nil {
		return analysis, nil
	}
	if typed, ok := v.(ProductAnalysis); ok {
		return typed, nil
	}
	err := graph.Reencode(v, &analysis)
	return analysis, err
}

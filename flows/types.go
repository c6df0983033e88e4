// Package flows defines the product workflows: summarizing a product page,
// comparing products with human-in-the-loop input, and chatting over
// collected product data. Each workflow is a graph.StateGraph built from the
// shared engine, with all state stored under wire-stable JSON keys so
// sessions survive durable checkpoint stores.
package flows

import (
	"context"

	"github.com/shopscout/agent/llm"
)

// State field keys shared by the workflows.
const (
	KeyURL             = "url"
	KeyTitle           = "title"
	KeyHTMLBody        = "html_body"
	KeyParsedContent   = "parsed_content"
	KeyImages          = "images"
	KeyValidImages     = "valid_images"
	KeyIsValidPage     = "is_valid_page"
	KeyValidationError = "validation_error"
	KeyProductAnalysis = "product_analysis"

	KeyCategory          = "category"
	KeyProducts          = "products"
	KeyUserCriteria      = "user_criteria"
	KeyExtractedCriteria = "extracted_criteria"
	KeyUserPriorities    = "user_priorities"
	KeyComparisonReport  = "comparison_report"

	KeyMessages = "messages"
	KeySources  = "sources"
)

// User-facing error messages. Fixed strings so clients can match on them.
const (
	msgNoProductInfo  = "제품 정보를 찾을 수 없습니다"
	msgParseFailed    = "페이지 파싱 중 오류가 발생했습니다"
	msgValidateFailed = "페이지 검증 중 오류가 발생했습니다"
	msgDomainFailed   = "도메인 파서 처리 중 오류가 발생했습니다"
	msgChatFailed     = "죄송합니다. 응답 생성 중 오류가 발생했습니다. 다시 시도해 주세요."
	msgReportFailed   = "Report generation failed. Please try again."
	msgNoRecommend    = "Unable to generate recommendation at this time."
	msgChatNoQuestion = "무엇이든 물어보세요!"
)

// ModelInvoker is the slice of llm.Invoker the workflows use.
type ModelInvoker interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
	GenerateStream(ctx context.Context, messages []llm.Message, fn func(chunk string) error) (string, error)
	Invoke(ctx context.Context, messages []llm.Message, out llm.Schema) error
}

// ImageReader is the slice of ocr.Batch the workflows use.
type ImageReader interface {
	Process(ctx context.Context, imageURLs []string) (map[string]string, error)
}

// ProductAnalysis is the structured result of analyzing one product page.
// String fields fall back to "unknown" and lists to empty when the page does
// not carry the information.
type ProductAnalysis struct {
	ProductName           string   `json:"product_name"`
	Summary               string   `json:"summary"`
	Price                 string   `json:"price"`
	KeyFeatures           []string `json:"key_features"`
	Pros                  []string `json:"pros"`
	Cons                  []string `json:"cons"`
	RecommendedFor        string   `json:"recommended_for"`
	RecommendationReasons []string `json:"recommendation_reasons"`
	NotRecommendedReasons []string `json:"not_recommended_reasons"`
}

// RequiredFields implements llm.Schema.
func (ProductAnalysis) RequiredFields() []string {
	return []string{"product_name", "summary", "price"}
}

// DefaultProductAnalysis is the deterministic fallback when analysis cannot
// run or fails.
func DefaultProductAnalysis() ProductAnalysis {
	return ProductAnalysis{
		ProductName:           "unknown",
		Summary:               "unknown",
		Price:                 "unknown",
		KeyFeatures:           []string{},
		Pros:                  []string{},
		Cons:                  []string{},
		RecommendedFor:        "unknown",
		RecommendationReasons: []string{},
		NotRecommendedReasons: []string{},
	}
}

// ParsedContent is the output of the HTML parsing step. Generic pages carry
// Texts; domain parsed pages carry the structured fields instead.
type ParsedContent struct {
	DomainType  string      `json:"domain_type"`
	Texts       []PageText  `json:"texts,omitempty"`
	ProductName string      `json:"product_name,omitempty"`
	Price       string      `json:"price,omitempty"`
	Description []PageText  `json:"description_texts,omitempty"`
	Images      []PageImage `json:"description_images,omitempty"`
}

// PageText mirrors page.Text under the workflow's JSON keys.
type PageText struct {
	Content  string `json:"content"`
	TagName  string `json:"tag_name"`
	Position int    `json:"position"`
}

// PageImage mirrors page.Image under the workflow's JSON keys.
type PageImage struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Position  int    `json:"position"`
	OCRResult string `json:"ocr_result"`
}

// validationResult is the structured verdict on whether a page is a single
// product detail page.
type validationResult struct {
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message"`
}

func (validationResult) RequiredFields() []string {
	return []string{"is_valid"}
}

// filteredImageIndices is the structured answer of the image filter step.
type filteredImageIndices struct {
	SelectedIndices []int `json:"selected_indices"`
}

func (filteredImageIndices) RequiredFields() []string {
	return []string{"selected_indices"}
}

// extractedCriteria is the structured answer of the criteria extraction
// step.
type extractedCriteria struct {
	Criteria []string `json:"criteria"`
}

func (extractedCriteria) RequiredFields() []string {
	return []string{"criteria"}
}

// ProductComparison scores one product in the final report.
type ProductComparison struct {
	ProductName    string             `json:"product_name"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	CriteriaSpecs  map[string]string  `json:"criteria_specs"`
	Strengths      []string           `json:"strengths"`
	Weaknesses     []string           `json:"weaknesses"`
}

// ComparisonReport is the final ranked comparison across products.
type ComparisonReport struct {
	Category       string              `json:"category"`
	TotalProducts  int                 `json:"total_products"`
	UserCriteria   []string            `json:"user_criteria"`
	UserPriorities map[string]int      `json:"user_priorities"`
	Products       []ProductComparison `json:"products"`
	Summary        string              `json:"summary"`
	Recommendation string              `json:"recommendation"`
}

// RequiredFields implements llm.Schema.
func (ComparisonReport) RequiredFields() []string {
	return []string{"category", "products", "summary", "recommendation"}
}

// ProductContext is the per-product context handed to the chat workflow.
type ProductContext struct {
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	RawContent  string `json:"raw_content"`
}

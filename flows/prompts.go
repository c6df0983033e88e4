package flows

import (
	"fmt"
	"strings"

	"github.com/shopscout/agent/llm"
)

// Prompt size limits for the chat context.
const (
	maxContentPerProduct = 100_000
	maxTotalContent      = 200_000
)

const validatePageSystemPrompt = `당신은 웹 페이지 콘텐츠를 분석하여, 해당 페이지가 단일 제품 상세 페이지인지 판단하는 전문가입니다.

입력으로 페이지의 URL, 제목, 그리고 추출된 텍스트 목록(CSV)이 주어집니다.

판단 기준:
- 적합 (is_valid: true): 메인 제품이 명확한 상세 정보 페이지. 제품명, 가격, 설명 중 최소 하나 이상 포함. 추천/연관 상품이 함께 있어도 메인 제품이 명확하면 적합.
- 부적합 (is_valid: false): 여러 제품이 동등하게 나열된 리스팅 페이지, 검색 결과 페이지, 카테고리 페이지, 장바구니/결제 페이지, 제품 정보가 거의 없는 페이지.

부적합한 경우 error_message에 사용자에게 전달할 한국어 에러 메시지를 넣으세요:
- 여러 제품 나열: "여러 제품이 나열된 페이지입니다. 특정 제품을 선택해주세요"
- 검색 결과: "검색 결과 페이지입니다. 개별 제품 페이지로 이동해주세요"
- 카테고리: "카테고리 페이지입니다. 특정 제품을 선택해주세요"
- 정보 부족: "제품 정보를 찾을 수 없습니다"
- 장바구니/결제: "장바구니 또는 결제 페이지입니다. 제품 상세 페이지로 이동해주세요"

JSON으로만 응답하세요: {"is_valid": boolean, "error_message": "string"}`

const filterImagesSystemPrompt = `당신은 제품 페이지의 이미지 목록에서 상품 정보로 유용한 이미지만 선별하는 전문가입니다.

각 이미지의 인덱스, 대체 텍스트(alt), OCR로 추출된 텍스트가 주어집니다.

선별 기준:
- 선택: 제품 사진, 스펙 표, 상세 설명 이미지, 사이즈/구성 안내
- 제외: 로고, 아이콘, 배너, 이벤트/쿠폰 안내, 배송 정책, 다른 상품 추천

JSON으로만 응답하세요: {"selected_indices": [number]}`

const analyzeProductSystemPrompt = `당신은 제품 페이지의 텍스트와 이미지 정보를 분석하여 구조화된 제품 분석을 작성하는 전문가입니다.

규칙:
- 제공된 정보만 사용하고 추측하지 마세요.
- 문자열 필드에 정보가 없으면 "unknown"을 넣으세요.
- 목록 필드에 정보가 없으면 빈 배열을 넣으세요.
- 가격은 통화 기호를 포함하세요.

JSON으로만 응답하세요:
{"product_name": string, "summary": string, "price": string,
 "key_features": [string], "pros": [string], "cons": [string],
 "recommended_for": string, "recommendation_reasons": [string],
 "not_recommended_reasons": [string]}`

const analyzeCriteriaSystemPrompt = `당신은 제품 비교 전문가입니다. 사용자가 중요하게 생각하는 기준과 제품 데이터를 바탕으로, 제공된 제품들에서 실제로 비교 가능한 모든 기준을 추출하세요.

규칙:
- 사용자 기준을 우선 반영하되, 제품 데이터에서 확인 가능한 기준만 포함하세요.
- 제품 데이터에 없는 기준은 제외하세요.
- 기준 이름은 짧은 한국어 명사구로 작성하세요.

JSON으로만 응답하세요: {"criteria": [string]}`

const generateReportSystemPrompt = `당신은 제품 비교 보고서를 작성하는 전문가입니다. 사용자의 우선순위와 제품 데이터를 바탕으로 맞춤형 비교 보고서를 작성하세요.

규칙:
- criteria_scores는 기준별 0-100 점수입니다. 우선순위가 높은 기준일수록 엄격하게 평가하세요.
- criteria_specs에는 기준별 실제 스펙 값을 넣으세요 (예: "무게: 1.4kg").
- strengths/weaknesses는 제품 데이터에 근거한 사실만 담으세요.
- summary는 전체 비교 결과 요약, recommendation은 우선순위를 반영한 최종 추천입니다.

JSON으로만 응답하세요:
{"category": string, "total_products": number, "user_criteria": [string],
 "user_priorities": {string: number},
 "products": [{"product_name": string, "criteria_scores": {string: number},
   "criteria_specs": {string: string}, "strengths": [string], "weaknesses": [string]}],
 "summary": string, "recommendation": string}`

const chatSystemPromptTemplate = `# 제품 비교 어시스턴트

## 컨텍스트
카테고리: %s
비교 제품: %s

## 제품 정보
%s

## 응답 원칙
- 제공된 제품 정보에서 직접 답변하고, 정보가 없으면 "해당 정보 없음"이라고 말한 뒤 대안을 제시하세요.
- 핵심부터 답하세요. 인사말과 수식어는 금지합니다.
- 구체적 수치를 포함하고, 여러 항목 비교에는 리스트나 표를 사용하세요.
- 객관적 사실과 수치에 근거하고, 일방적 추천 대신 장단점을 균형 있게 제시하세요.
- 단순 질문에는 1-2줄로 답하세요.`

func buildValidatePageMessages(url, title string, texts []PageText) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", url)
	fmt.Fprintf(&b, "Title: %s\n\n", title)
	b.WriteString("texts (content,tag_name,position):\n")
	for _, t := range texts {
		fmt.Fprintf(&b, "%q,%s,%d\n", t.Content, t.TagName, t.Position)
	}
	return []llm.Message{
		llm.System(validatePageSystemPrompt),
		llm.User(b.String()),
	}
}

func buildFilterImagesMessages(images []PageImage) []llm.Message {
	var b strings.Builder
	b.WriteString("images:\n")
	for i, img := range images {
		fmt.Fprintf(&b, "- index: %d\n  alt: %q\n  ocr_result: %q\n", i, img.Alt, img.OCRResult)
	}
	return []llm.Message{
		llm.System(filterImagesSystemPrompt),
		llm.User(b.String()),
	}
}

func buildAnalyzeProductMessages(texts []PageText, images []PageImage) []llm.Message {
	var b strings.Builder
	b.WriteString("## 페이지 텍스트\n")
	for _, t := range texts {
		fmt.Fprintf(&b, "[%s] %s\n", t.TagName, t.Content)
	}
	b.WriteString("\n## 이미지에서 추출된 텍스트\n")
	for _, img := range images {
		if img.OCRResult == "" {
			continue
		}
		fmt.Fprintf(&b, "- (alt: %s) %s\n", img.Alt, img.OCRResult)
	}
	return []llm.Message{
		llm.System(analyzeProductSystemPrompt),
		llm.User(b.String()),
	}
}

func buildAnalyzeCriteriaMessages(category string, userCriteria []string, products []ProductAnalysis) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "카테고리: %s\n", category)
	fmt.Fprintf(&b, "사용자 기준: %s\n\n", strings.Join(userCriteria, ", "))
	b.WriteString("제품 데이터:\n")
	writeProducts(&b, products)
	return []llm.Message{
		llm.System(analyzeCriteriaSystemPrompt),
		llm.User(b.String()),
	}
}

func buildGenerateReportMessages(category string, priorities map[string]int, products []ProductAnalysis) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "카테고리: %s\n\n", category)
	b.WriteString("사용자 우선순위 (낮을수록 중요):\n")
	for criterion, rank := range priorities {
		fmt.Fprintf(&b, "- %d. %s\n", rank, criterion)
	}
	b.WriteString("\n제품 데이터:\n")
	writeProducts(&b, products)
	return []llm.Message{
		llm.System(generateReportSystemPrompt),
		llm.User(b.String()),
	}
}

func writeProducts(b *strings.Builder, products []ProductAnalysis) {
	for _, p := range products {
		fmt.Fprintf(b, "\n### %s\n", p.ProductName)
		fmt.Fprintf(b, "- 요약: %s\n", p.Summary)
		fmt.Fprintf(b, "- 가격: %s\n", p.Price)
		if len(p.KeyFeatures) > 0 {
			fmt.Fprintf(b, "- 주요 특징: %s\n", strings.Join(p.KeyFeatures, "; "))
		}
		if len(p.Pros) > 0 {
			fmt.Fprintf(b, "- 장점: %s\n", strings.Join(p.Pros, "; "))
		}
		if len(p.Cons) > 0 {
			fmt.Fprintf(b, "- 단점: %s\n", strings.Join(p.Cons, "; "))
		}
	}
}

func buildChatSystemPrompt(category string, products []ProductContext) string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.ProductName)
	}
	return fmt.Sprintf(chatSystemPromptTemplate,
		category, strings.Join(names, ", "), formatProductContext(products))
}

func formatProductContext(products []ProductContext) string {
	sections := make([]string, 0, len(products))
	for _, p := range products {
		raw := p.RawContent
		if len(raw) > maxContentPerProduct {
			raw = raw[:maxContentPerProduct] + "\n... (truncated)"
		}
		price := p.Price
		if price == "" {
			price = "정보 없음"
		}
		sections = append(sections, fmt.Sprintf("### %s\n- 가격: %s\n- 상세 정보:\n%s",
			p.ProductName, price, raw))
	}

	combined := strings.Join(sections, "\n\n")
	if len(combined) > maxTotalContent {
		combined = combined[:maxTotalContent] + "\n\n... (content truncated due to size limit)"
	}
	return combined
}

// WelcomeMessage is the assistant's opening message for a chat session.
func WelcomeMessage(category string) string {
	return fmt.Sprintf(`%s 제품에 대해 궁금한 점이 있으면 물어보세요.

질문 예시:
- 가격 비교해줘
- 차이점이 뭐야?
- 어떤 제품이 더 나아?`, category)
}

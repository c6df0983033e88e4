package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopscout/agent/graph"
	"github.com/shopscout/agent/log"
	"github.com/shopscout/agent/page"
)

// Summarize node names.
const (
	NodeRoute          = "route"
	NodeDomainParser   = "domain_parser"
	NodeParseContent   = "parse_content"
	NodeValidatePage   = "validate_page"
	NodeOCR            = "ocr"
	NodeFilterImages   = "filter_images"
	NodeAnalyzeProduct = "analyze_product"
)

// minHTMLLength rejects captures that cannot contain a product page.
const minHTMLLength = 100

// minValidationTexts is the smallest text count worth sending to the
// validator. Below it the page is invalid without an LLM call.
const minValidationTexts = 3

// SummarizeDeps are the collaborators of the summarize workflow.
type SummarizeDeps struct {
	Invoker   ModelInvoker
	OCR       ImageReader
	Extractor *page.Extractor
	Registry  *ParserRegistry
	Logger    log.Logger
}

func (d *SummarizeDeps) fill() {
	if d.Extractor == nil {
		// Price tags and model numbers are short, so no length floor here.
		d.Extractor = page.NewExtractor(page.WithMinTextLength(1))
	}
	if d.Registry == nil {
		d.Registry = DefaultParserRegistry()
	}
	if d.Logger == nil {
		d.Logger = log.GetDefaultLogger()
	}
}

// NewSummarizeGraph builds the product page summarize workflow:
//
//	route -> {domain_parser | parse_content -> validate_page} -> ocr ->
//	filter_images -> analyze_product
//
// Pages that fail parsing or validation short-circuit to END with
// is_valid_page false and a user-facing Korean validation_error. Later
// stages degrade per node instead of failing the run: OCR failures leave
// images without text, filter failures pass all images through, and
// analysis failures produce the all-unknown default analysis.
func NewSummarizeGraph(deps SummarizeDeps) *graph.StateGraph {
	deps.fill()
	s := &summarizeFlow{deps: deps}

	g := graph.NewStateGraph()
	g.AddNode(NodeRoute, "picks the parsing path for the page URL",
		func(ctx context.Context, state graph.State) (graph.State, error) {
			return nil, nil
		})
	g.AddNode(NodeDomainParser, "shop-specific structured parsing", s.domainParser)
	g.AddNode(NodeParseContent, "generic text and image extraction", s.parseContent)
	g.AddNode(NodeValidatePage, "single product page validation", s.validatePage)
	g.AddNode(NodeOCR, "extracts text from product images", s.runOCR)
	g.AddNode(NodeFilterImages, "keeps only product information images", s.filterImages)
	g.AddNode(NodeAnalyzeProduct, "structured product analysis", s.analyzeProduct)

	g.SetEntryPoint(NodeRoute)
	g.AddConditionalEdges(NodeRoute, s.routeByDomain, map[string]string{
		"domain_specific": NodeDomainParser,
		"generic":         NodeParseContent,
	})
	g.AddEdge(NodeParseContent, NodeValidatePage)
	g.AddConditionalEdges(NodeValidatePage, continueIfValid, map[string]string{
		"continue": NodeOCR,
		"end":      graph.END,
	})
	g.AddConditionalEdges(NodeDomainParser, continueIfValid, map[string]string{
		"continue": NodeOCR,
		"end":      graph.END,
	})
	g.AddEdge(NodeOCR, NodeFilterImages)
	g.AddEdge(NodeFilterImages, NodeAnalyzeProduct)
	g.AddEdge(NodeAnalyzeProduct, graph.END)
	return g
}

type summarizeFlow struct {
	deps SummarizeDeps
}

func (s *summarizeFlow) routeByDomain(ctx context.Context, state graph.State) string {
	if _, ok := s.deps.Registry.Find(state.String(KeyURL)); ok {
		return "domain_specific"
	}
	return "generic"
}

func continueIfValid(ctx context.Context, state graph.State) string {
	if state.Bool(KeyIsValidPage) {
		return "continue"
	}
	return "end"
}

func (s *summarizeFlow) domainParser(ctx context.Context, state graph.State) (graph.State, error) {
	pageURL := state.String(KeyURL)
	parser, ok := s.deps.Registry.Find(pageURL)
	if !ok {
		return invalidPage(msgDomainFailed), nil
	}

	parsed, err := parser.Parse(pageURL, state.String(KeyTitle), state.String(KeyHTMLBody))
	if err != nil {
		s.deps.Logger.Error("domain parser %s failed for %s: %v", parser.DomainType(), pageURL, err)
		return invalidPage(msgDomainFailed), nil
	}

	s.deps.Logger.Info("domain parser %s: name=%q price=%q texts=%d images=%d",
		parsed.DomainType, parsed.ProductName, parsed.Price,
		len(parsed.Description), len(parsed.Images))

	// A matched shop page counts as validated.
	return graph.State{
		KeyIsValidPage:     true,
		KeyValidationError: "",
		KeyParsedContent:   parsed,
		KeyImages:          parsed.Images,
	}, nil
}

func (s *summarizeFlow) parseContent(ctx context.Context, state graph.State) (graph.State, error) {
	pageURL := state.String(KeyURL)
	htmlBody := state.String(KeyHTMLBody)

	if len(strings.TrimSpace(htmlBody)) < minHTMLLength {
		s.deps.Logger.Warn("html body too short for %s, marking invalid", pageURL)
		return invalidPage(msgNoProductInfo), nil
	}

	texts, err := s.deps.Extractor.ExtractTexts(htmlBody)
	if err != nil {
		s.deps.Logger.Error("text extraction failed for %s: %v", pageURL, err)
		return invalidPage(msgParseFailed), nil
	}
	images, err := s.deps.Extractor.ExtractImages(htmlBody, pageURL)
	if err != nil {
		s.deps.Logger.Error("image extraction failed for %s: %v", pageURL, err)
		return invalidPage(msgParseFailed), nil
	}

	s.deps.Logger.Info("parsed %s: %d texts, %d images", pageURL, len(texts), len(images))

	return graph.State{
		KeyParsedContent: ParsedContent{
			DomainType: "generic",
			Texts:      pageTexts(texts),
		},
		KeyImages: pageImages(images),
	}, nil
}

func (s *summarizeFlow) validatePage(ctx context.Context, state graph.State) (graph.State, error) {
	parsed, err := parsedContentFromState(state)
	if err != nil {
		return invalidPage(msgValidateFailed), nil
	}

	if len(parsed.Texts) < minValidationTexts {
		s.deps.Logger.Warn("too few texts on %s, marking invalid", state.String(KeyURL))
		return invalidPage(msgNoProductInfo), nil
	}

	var result validationResult
	messages := buildValidatePageMessages(state.String(KeyURL), state.String(KeyTitle), parsed.Texts)
	if err := s.deps.Invoker.Invoke(ctx, messages, &result); err != nil {
		s.deps.Logger.Error("page validation failed: %v", err)
		return invalidPage(msgValidateFailed), nil
	}

	if !result.IsValid {
		message := result.ErrorMessage
		if message == "" {
			message = msgNoProductInfo
		}
		return invalidPage(message), nil
	}
	return graph.State{KeyIsValidPage: true, KeyValidationError: ""}, nil
}

func (s *summarizeFlow) runOCR(ctx context.Context, state graph.State) (graph.State, error) {
	images, err := imagesFromState(state, KeyImages)
	if err != nil {
		return nil, fmt.Errorf("reading images: %w", err)
	}
	if len(images) == 0 {
		return graph.State{KeyImages: []PageImage{}}, nil
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.Src)
	}

	texts, err := s.deps.OCR.Process(ctx, urls)
	if err != nil {
		// Provider errors degrade to images without text; only a dead
		// context aborts the run.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ocr batch: %w", err)
		}
		s.deps.Logger.Error("ocr batch failed, keeping images without text: %v", err)
		return graph.State{KeyImages: images}, nil
	}

	extracted, chars := 0, 0
	for i := range images {
		images[i].OCRResult = texts[images[i].Src]
		if images[i].OCRResult != "" {
			extracted++
			chars += len(images[i].OCRResult)
		}
	}
	s.deps.Logger.Info("ocr: %d/%d images yielded text (%d chars)", extracted, len(images), chars)

	return graph.State{KeyImages: images}, nil
}

func (s *summarizeFlow) filterImages(ctx context.Context, state graph.State) (graph.State, error) {
	images, err := imagesFromState(state, KeyImages)
	if err != nil {
		return nil, fmt.Errorf("reading images: %w", err)
	}
	if len(images) == 0 {
		return graph.State{KeyValidImages: []PageImage{}}, nil
	}

	var result filteredImageIndices
	if err := s.deps.Invoker.Invoke(ctx, buildFilterImagesMessages(images), &result); err != nil {
		s.deps.Logger.Error("image filter failed, passing all images through: %v", err)
		return graph.State{KeyValidImages: images}, nil
	}

	// The model occasionally invents indices; keep only real ones.
	valid := make([]PageImage, 0, len(result.SelectedIndices))
	for _, idx := range result.SelectedIndices {
		if idx >= 0 && idx < len(images) {
			valid = append(valid, images[idx])
		}
	}
	s.deps.Logger.Info("image filter: %d/%d images selected", len(valid), len(images))

	return graph.State{KeyValidImages: valid}, nil
}

func (s *summarizeFlow) analyzeProduct(ctx context.Context, state graph.State) (graph.State, error) {
	parsed, err := parsedContentFromState(state)
	if err != nil {
		return graph.State{KeyProductAnalysis: DefaultProductAnalysis()}, nil
	}
	images, err := imagesFromState(state, KeyImages)
	if err != nil {
		images = nil
	}

	texts := parsed.Texts
	if parsed.DomainType != "generic" {
		texts = nil
		if parsed.ProductName != "" {
			texts = append(texts, PageText{Content: "제품명: " + parsed.ProductName, TagName: "h1", Position: 0})
		}
		if parsed.Price != "" {
			texts = append(texts, PageText{Content: "가격: " + parsed.Price, TagName: "h2", Position: 100})
		}
		texts = append(texts, parsed.Description...)
	}

	if len(texts) == 0 && len(images) == 0 {
		s.deps.Logger.Warn("no analyzable data, returning default analysis")
		return graph.State{KeyProductAnalysis: DefaultProductAnalysis()}, nil
	}

	var analysis ProductAnalysis
	if err := s.deps.Invoker.Invoke(ctx, buildAnalyzeProductMessages(texts, images), &analysis); err != nil {
		s.deps.Logger.Error("product analysis failed, returning default: %v", err)
		return graph.State{KeyProductAnalysis: DefaultProductAnalysis()}, nil
	}
	return graph.State{KeyProductAnalysis: analysis}, nil
}

func invalidPage(message string) graph.State {
	return graph.State{
		KeyIsValidPage:     false,
		KeyValidationError: message,
	}
}

func pageTexts(texts []page.Text) []PageText {
	out := make([]PageText, 0, len(texts))
	for _, t := range texts {
		out = append(out, PageText{Content: t.Content, TagName: t.TagName, Position: t.Position})
	}
	return out
}

func pageImages(images []page.Image) []PageImage {
	out := make([]PageImage, 0, len(images))
	for _, img := range images {
		out = append(out, PageImage{Src: img.Src, Alt: img.Alt, Position: img.Position})
	}
	return out
}

func parsedContentFromState(state graph.State) (ParsedContent, error) {
	var parsed ParsedContent
	v, ok := state[KeyParsedContent]
	if !ok || v == nil {
		return parsed, nil
	}
	if typed, ok := v.(ParsedContent); ok {
		return typed, nil
	}
	err := graph.Reencode(v, &parsed)
	return parsed, err
}

func imagesFromState(state graph.State, key string) ([]PageImage, error) {
	v, ok := state[key]
	if !ok || v == nil {
		return nil, nil
	}
	if typed, ok := v.([]PageImage); ok {
		return typed, nil
	}
	var out []PageImage
	err := graph.Reencode(v, &out)
	return out, err
}

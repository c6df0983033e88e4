package page

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultMinTextLength drops fragments shorter than this after cleaning.
const DefaultMinTextLength = 10

// excludeSelector matches elements (and ancestors) whose content is page
// chrome rather than product information.
const excludeSelector = `nav, header, footer,` +
	` [role="navigation"], [role="banner"], [role="contentinfo"],` +
	` .advertisement, .ad, .ads,` +
	` .sidebar, .menu, .navigation,` +
	` #cookie-notice, #cookie-banner`

var whitespaceRe = regexp.MustCompile(`\s+`)

// Extractor pulls texts and images out of captured HTML. The zero value is
// not usable; use NewExtractor.
type Extractor struct {
	minTextLength int
	policy        *bluemonday.Policy
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinTextLength overrides the minimum fragment length.
func WithMinTextLength(n int) ExtractorOption {
	return func(e *Extractor) { e.minTextLength = n }
}

// NewExtractor creates an extractor with a sanitizer policy that keeps page
// structure, image sources and the attributes the exclusion rules need,
// while scripts, styles and event handlers are stripped.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("nav", "header", "footer", "main", "section", "article",
		"aside", "span", "div", "picture", "source", "figure", "figcaption")
	policy.AllowAttrs("class", "id", "role").Globally()
	policy.AllowAttrs("src", "srcset", "alt", "width", "height",
		"data-src", "data-lazy-src", "data-original").OnElements("img", "source")

	e := &Extractor{
		minTextLength: DefaultMinTextLength,
		policy:        policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractTexts returns the cleaned text fragments of leaf elements in DOM
// order, deduplicated by content.
func (e *Extractor) ExtractTexts(htmlBody string) ([]Text, error) {
	doc, err := e.parse(htmlBody)
	if err != nil {
		return nil, err
	}

	var texts []Text
	seen := make(map[string]bool)
	position := 0

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if excluded(s) {
			return
		}

		cleaned := cleanText(s.Text())
		if !e.validText(cleaned) || seen[cleaned] {
			return
		}
		seen[cleaned] = true

		texts = append(texts, Text{
			Content:  cleaned,
			TagName:  goquery.NodeName(s),
			Position: position,
		})
		position += 100
	})

	return texts, nil
}

// ExtractImages returns image references from img and picture elements with
// relative sources resolved against baseURL and duplicates dropped.
func (e *Extractor) ExtractImages(htmlBody, baseURL string) ([]Image, error) {
	doc, err := e.parse(htmlBody)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(baseURL)
	var images []Image
	seen := make(map[string]bool)
	position := 0

	add := func(src, alt string, width, height int) {
		absolute := resolveURL(base, src)
		if absolute == "" || seen[absolute] {
			return
		}
		seen[absolute] = true
		images = append(images, Image{
			Src:      absolute,
			Alt:      alt,
			Width:    width,
			Height:   height,
			Position: position,
		})
		position += 100
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if excluded(s) {
			return
		}
		alt := s.AttrOr("alt", "")
		width := intAttr(s, "width")
		height := intAttr(s, "height")
		for _, src := range imageSources(s) {
			add(src, alt, width, height)
		}
	})

	doc.Find("picture").Each(func(_ int, s *goquery.Selection) {
		if excluded(s) {
			return
		}
		alt := s.Find("img").AttrOr("alt", "")
		s.Find("source").Each(func(_ int, source *goquery.Selection) {
			for _, src := range parseSrcset(source.AttrOr("srcset", "")) {
				add(src, alt, 0, 0)
			}
		})
	})

	return images, nil
}

func (e *Extractor) parse(htmlBody string) (*goquery.Document, error) {
	sanitized := e.policy.Sanitize(htmlBody)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

func (e *Extractor) validText(cleaned string) bool {
	if len([]rune(cleaned)) < e.minTextLength {
		return false
	}

	digitsOnly := true
	anyAlnum := false
	for _, r := range cleaned {
		if !unicode.IsDigit(r) {
			digitsOnly = false
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			anyAlnum = true
		}
	}
	return !digitsOnly && anyAlnum
}

// excluded reports whether the element or an ancestor matches the chrome
// exclusion rules. Closest includes the element itself.
func excluded(s *goquery.Selection) bool {
	return s.Closest(excludeSelector).Length() > 0
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// imageSources collects every candidate source of an img element: src,
// srcset entries, and the common lazy loading attributes.
func imageSources(s *goquery.Selection) []string {
	var sources []string
	if src := s.AttrOr("src", ""); src != "" {
		sources = append(sources, src)
	}
	sources = append(sources, parseSrcset(s.AttrOr("srcset", ""))...)
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
		if v := s.AttrOr(attr, ""); v != "" {
			sources = append(sources, v)
		}
	}
	return sources
}

func parseSrcset(srcset string) []string {
	var out []string
	for _, entry := range strings.Split(srcset, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		out = append(out, strings.Fields(entry)[0])
	}
	return out
}

func resolveURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func intAttr(s *goquery.Selection, name string) int {
	n, _ := strconv.Atoi(s.AttrOr(name, ""))
	return n
}

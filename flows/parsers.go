package flows

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DomainParser parses product pages of one specific shop without an LLM.
// Parsed pages skip the generic extraction and validation path entirely.
type DomainParser interface {
	// DomainType identifies the parser in parsed content.
	DomainType() string

	// CanParse reports whether this parser handles the URL.
	CanParse(pageURL string) bool

	// Parse extracts structured product content from the page.
	Parse(pageURL, title, htmlBody string) (ParsedContent, error)
}

// ParserRegistry resolves the domain parser for a URL. Parsers are tried in
// registration order; no match means the generic path.
type ParserRegistry struct {
	parsers []DomainParser
}

// NewParserRegistry creates a registry with the given parsers.
func NewParserRegistry(parsers ...DomainParser) *ParserRegistry {
	return &ParserRegistry{parsers: parsers}
}

// DefaultParserRegistry returns the registry with all built-in shop parsers.
func DefaultParserRegistry() *ParserRegistry {
	return NewParserRegistry(
		&CoupangParser{},
		&NaverStoreParser{domainType: "naver_smartstore", host: "smartstore.naver.com"},
		&NaverStoreParser{domainType: "naver_brand", host: "brand.naver.com"},
	)
}

// Register appends a parser.
func (r *ParserRegistry) Register(p DomainParser) {
	r.parsers = append(r.parsers, p)
}

// Find returns the parser for the URL, or false when only the generic path
// applies.
func (r *ParserRegistry) Find(pageURL string) (DomainParser, bool) {
	for _, p := range r.parsers {
		if p.CanParse(pageURL) {
			return p, true
		}
	}
	return nil, false
}

// reviewMinLength filters navigation fragments out of review extraction.
const reviewMinLength = 20

// CoupangParser parses coupang.com product detail pages.
type CoupangParser struct{}

func (*CoupangParser) DomainType() string { return "coupang" }

func (*CoupangParser) CanParse(pageURL string) bool {
	return strings.Contains(pageURL, "coupang.com") && strings.Contains(pageURL, "/vp/products")
}

func (p *CoupangParser) Parse(pageURL, title, htmlBody string) (ParsedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ParsedContent{}, err
	}

	name := strings.TrimSpace(doc.Find("h1.product-title").First().Text())
	if name == "" {
		name = title
	}

	price := strings.TrimSpace(doc.Find("div.final-price-amount").First().Text())
	if price == "" {
		price = strings.TrimSpace(doc.Find("div.price-amount").First().Text())
	}

	var reviews []PageText
	seen := make(map[string]bool)
	doc.Find("span.twc-bg-white").Each(func(_ int, s *goquery.Selection) {
		text := collapseWhitespace(s.Text())
		if len([]rune(text)) <= reviewMinLength || seen[text] {
			return
		}
		seen[text] = true
		reviews = append(reviews, PageText{
			Content:  text,
			TagName:  "review",
			Position: len(reviews),
		})
	})

	return ParsedContent{
		DomainType:  p.DomainType(),
		ProductName: name,
		Price:       price,
		Description: reviews,
		Images:      containerImages(doc.Find("div.product-detail-content"), pageURL),
	}, nil
}

// NaverStoreParser parses Naver smartstore and brand store product pages,
// which share the same markup.
type NaverStoreParser struct {
	domainType string
	host       string
}

var naverPriceRe = regexp.MustCompile(`>(\d{1,3}(?:,\d{3})+|\d+)</span><span[^>]*>원<`)

func (p *NaverStoreParser) DomainType() string { return p.domainType }

func (p *NaverStoreParser) CanParse(pageURL string) bool {
	return strings.Contains(pageURL, p.host)
}

func (p *NaverStoreParser) Parse(pageURL, title, htmlBody string) (ParsedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ParsedContent{}, err
	}

	name := strings.TrimSpace(doc.Find("#content h3").First().Text())
	if len([]rune(name)) <= 5 {
		// The page title carries "product : store"; keep the product part.
		if idx := strings.Index(title, " : "); idx > 0 {
			name = strings.TrimSpace(title[:idx])
		} else {
			name = title
		}
	}

	price := ""
	if m := naverPriceRe.FindStringSubmatch(htmlBody); m != nil {
		price = m[1] + "원"
	}

	var reviews []PageText
	seen := make(map[string]bool)
	doc.Find("#REVIEW li").Each(func(_ int, item *goquery.Selection) {
		// Each review item nests deeply; the longest leaf block is the body.
		longest := ""
		item.Find("div, span").Each(func(_ int, el *goquery.Selection) {
			if el.Find("div, span").Length() > 0 {
				return
			}
			text := collapseWhitespace(el.Text())
			if len(text) > len(longest) {
				longest = text
			}
		})
		if len([]rune(longest)) <= reviewMinLength || seen[longest] ||
			strings.Contains(longest, "점수화하여 정렬") {
			return
		}
		seen[longest] = true
		reviews = append(reviews, PageText{
			Content:  longest,
			TagName:  "review",
			Position: len(reviews),
		})
	})

	return ParsedContent{
		DomainType:  p.domainType,
		ProductName: name,
		Price:       price,
		Description: reviews,
		Images:      containerImages(doc.Find("#INTRODUCE"), pageURL),
	}, nil
}

func containerImages(container *goquery.Selection, baseURL string) []PageImage {
	base, _ := url.Parse(baseURL)
	var images []PageImage
	seen := make(map[string]bool)

	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			src = img.AttrOr("data-src", "")
		}
		if src == "" || strings.HasPrefix(src, "data:") || seen[src] {
			return
		}
		seen[src] = true

		absolute := src
		if base != nil {
			if ref, err := url.Parse(src); err == nil {
				absolute = base.ResolveReference(ref).String()
			}
		}
		images = append(images, PageImage{
			Src:      absolute,
			Alt:      img.AttrOr("alt", ""),
			Position: len(images),
		})
	})
	return images
}

var wsRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

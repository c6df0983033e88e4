package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultOCRSpaceEndpoint is the public OCR.Space parse endpoint.
const DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

// OCRSpace is a client for the OCR.Space image parsing API.
type OCRSpace struct {
	apiKey            string
	endpoint          string
	language          string
	engine            int
	detectOrientation bool
	isTable           bool
	scale             bool
	httpClient        *http.Client
}

// OCRSpaceOption configures an OCRSpace client.
type OCRSpaceOption func(*OCRSpace)

// WithOCRSpaceEndpoint overrides the API endpoint.
func WithOCRSpaceEndpoint(endpoint string) OCRSpaceOption {
	return func(c *OCRSpace) { c.endpoint = endpoint }
}

// WithOCRSpaceLanguage sets the recognition language code.
func WithOCRSpaceLanguage(lang string) OCRSpaceOption {
	return func(c *OCRSpace) { c.language = lang }
}

// WithOCRSpaceEngine selects the OCR engine (engine 2 handles mixed
// language product images better).
func WithOCRSpaceEngine(engine int) OCRSpaceOption {
	return func(c *OCRSpace) { c.engine = engine }
}

// WithOCRSpaceTableMode enables table-aware parsing.
func WithOCRSpaceTableMode(on bool) OCRSpaceOption {
	return func(c *OCRSpace) { c.isTable = on }
}

// WithOCRSpaceDetectOrientation enables orientation detection.
func WithOCRSpaceDetectOrientation(on bool) OCRSpaceOption {
	return func(c *OCRSpace) { c.detectOrientation = on }
}

// WithOCRSpaceScale enables upscaling of low resolution images.
func WithOCRSpaceScale(on bool) OCRSpaceOption {
	return func(c *OCRSpace) { c.scale = on }
}

// WithOCRSpaceHTTPClient sets the HTTP client.
func WithOCRSpaceHTTPClient(client *http.Client) OCRSpaceOption {
	return func(c *OCRSpace) { c.httpClient = client }
}

// NewOCRSpace creates an OCR.Space client.
func NewOCRSpace(apiKey string, opts ...OCRSpaceOption) *OCRSpace {
	c := &OCRSpace{
		apiKey:            apiKey,
		endpoint:          DefaultOCRSpaceEndpoint,
		language:          "kor",
		engine:            2,
		detectOrientation: true,
		scale:             true,
		httpClient:        http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// Perform implements Service.
func (c *OCRSpace) Perform(ctx context.Context, imageURL string) (string, error) {
	form := url.Values{
		"apikey":            {c.apiKey},
		"url":               {imageURL},
		"language":          {c.language},
		"OCREngine":         {strconv.Itoa(c.engine)},
		"isOverlayRequired": {"false"},
		"detectOrientation": {strconv.FormatBool(c.detectOrientation)},
		"scale":             {strconv.FormatBool(c.scale)},
		"isTable":           {strconv.FormatBool(c.isTable)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("ocrspace request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocrspace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocrspace returned status %d", resp.StatusCode)
	}

	var parsed ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ocrspace response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("ocrspace processing error: %s", errorMessageText(parsed.ErrorMessage))
	}

	texts := make([]string, 0, len(parsed.ParsedResults))
	for _, r := range parsed.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// errorMessageText flattens the API's error field, which is sometimes a
// string and sometimes an array of strings.
func errorMessageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(raw)
}

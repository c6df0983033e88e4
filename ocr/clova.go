package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// clovaFormats lists image formats the Clova OCR API accepts.
var clovaFormats = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"bmp":  true,
	"pdf":  true,
	"tif":  true,
	"tiff": true,
}

// Clova is a client for the Naver Clova OCR general API (V2).
type Clova struct {
	secretKey  string
	invokeURL  string
	lang       string
	httpClient *http.Client
}

// ClovaOption configures a Clova client.
type ClovaOption func(*Clova)

// WithClovaLang sets the recognition language.
func WithClovaLang(lang string) ClovaOption {
	return func(c *Clova) { c.lang = lang }
}

// WithClovaHTTPClient sets the HTTP client.
func WithClovaHTTPClient(client *http.Client) ClovaOption {
	return func(c *Clova) { c.httpClient = client }
}

// NewClova creates a Clova OCR client for the given invoke URL.
func NewClova(secretKey, invokeURL string, opts ...ClovaOption) *Clova {
	c := &Clova{
		secretKey:  secretKey,
		invokeURL:  invokeURL,
		lang:       "ko",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type clovaRequest struct {
	Version   string       `json:"version"`
	RequestID string       `json:"requestId"`
	Timestamp int64        `json:"timestamp"`
	Lang      string       `json:"lang"`
	Images    []clovaImage `json:"images"`
}

type clovaImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

type clovaResponse struct {
	Images []struct {
		InferResult string `json:"inferResult"`
		Message     string `json:"message"`
		Fields      []struct {
			InferText string `json:"inferText"`
		} `json:"fields"`
	} `json:"images"`
}

// Perform implements Service. Images in a format Clova does not accept
// produce "" without an error, so callers treat them like images with no
// readable text.
func (c *Clova) Perform(ctx context.Context, imageURL string) (string, error) {
	format := imageFormat(imageURL)
	if !clovaFormats[format] {
		return "", nil
	}

	body, err := json.Marshal(clovaRequest{
		Version:   "V2",
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Lang:      c.lang,
		Images: []clovaImage{{
			Format: format,
			Name:   "product_image",
			URL:    imageURL,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("clova request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("clova request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("clova request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("clova returned status %d", resp.StatusCode)
	}

	var parsed clovaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("clova response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return "", fmt.Errorf("clova returned no image results")
	}

	img := parsed.Images[0]
	if strings.EqualFold(img.InferResult, "ERROR") {
		return "", fmt.Errorf("clova inference error: %s", img.Message)
	}

	words := make([]string, 0, len(img.Fields))
	for _, f := range img.Fields {
		if f.InferText != "" {
			words = append(words, f.InferText)
		}
	}
	return strings.Join(words, " "), nil
}

package ocr

import (
	"net/http"
	"time"

	"github.com/shopscout/agent/config"
	"github.com/shopscout/agent/log"
)

// New builds the configured OCR batch processor. Missing credentials are a
// configuration error surfaced immediately, not at first request.
func New(settings config.OCRSettings, httpSettings config.HTTPSettings, logger log.Logger) (*Batch, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(httpSettings.TimeoutSeconds) * time.Second,
	}

	var service Service
	switch settings.Provider {
	case "ocrspace":
		if settings.APIKey == "" {
			return nil, config.NewError("ocrspace api key not set", map[string]any{
				"env": "OCR_API_KEY",
			})
		}
		service = NewOCRSpace(settings.APIKey,
			WithOCRSpaceEndpoint(settings.Endpoint),
			WithOCRSpaceLanguage(settings.Language),
			WithOCRSpaceEngine(settings.Engine),
			WithOCRSpaceDetectOrientation(settings.DetectOrientation),
			WithOCRSpaceTableMode(settings.IsTable),
			WithOCRSpaceScale(settings.Scale),
			WithOCRSpaceHTTPClient(httpClient),
		)
	case "clova":
		if settings.ClovaSecretKey == "" || settings.ClovaInvokeURL == "" {
			return nil, config.NewError("clova credentials not set", map[string]any{
				"env": []string{"CLOVA_SECRET_KEY", "CLOVA_INVOKE_URL"},
			})
		}
		service = NewClova(settings.ClovaSecretKey, settings.ClovaInvokeURL,
			WithClovaLang(settings.ClovaLang),
			WithClovaHTTPClient(httpClient),
		)
	default:
		return nil, config.NewError("unknown ocr provider", map[string]any{
			"provider": settings.Provider,
		})
	}

	return NewBatch(service,
		WithMaxConcurrent(settings.MaxConcurrent),
		WithMaxRetries(httpSettings.MaxRetries-1),
		WithLogger(logger),
	), nil
}

// Package config holds the runtime settings for the agent.
//
// Settings come from three layers, later layers winning: built-in defaults,
// an optional YAML file, and environment variables for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Error is a configuration error. It is fatal: callers fail fast and never
// retry it.
type Error struct {
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s | details: %v", e.Message, e.Details)
	}
	return e.Message
}

// NewError creates a configuration error.
func NewError(message string, details map[string]any) *Error {
	return &Error{Message: message, Details: details}
}

// LLMSettings configures the structured LLM invoker.
type LLMSettings struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// TimeoutSeconds bounds a single LLM call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// APIKey is taken from OPENAI_API_KEY, never from the YAML file.
	APIKey string `yaml:"-"`
	// BaseURL overrides the provider endpoint (for gateways and tests).
	BaseURL string `yaml:"base_url"`
}

// OCRSettings configures the OCR client.
type OCRSettings struct {
	// Provider selects the backend: "ocrspace" or "clova".
	Provider string `yaml:"provider"`

	// OCR.space settings. APIKey is taken from OCR_API_KEY.
	APIKey            string `yaml:"-"`
	Endpoint          string `yaml:"endpoint"`
	Language          string `yaml:"language"`
	Engine            int    `yaml:"engine"`
	DetectOrientation bool   `yaml:"detect_orientation"`
	IsTable           bool   `yaml:"is_table"`
	Scale             bool   `yaml:"scale"`

	// Clova settings. SecretKey is taken from CLOVA_SECRET_KEY.
	ClovaSecretKey string `yaml:"-"`
	ClovaInvokeURL string `yaml:"clova_invoke_url"`
	ClovaLang      string `yaml:"clova_lang"`

	// MaxConcurrent bounds in-flight OCR requests. This limit is shared by
	// all batches on one client, not per session.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// HTTPSettings configures outbound HTTP behavior for service clients.
type HTTPSettings struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `yaml:"level"`
}

// Settings is the root configuration record.
type Settings struct {
	LLM  LLMSettings  `yaml:"llm"`
	OCR  OCRSettings  `yaml:"ocr"`
	HTTP HTTPSettings `yaml:"http"`
	Log  LogSettings  `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Provider:       "openai",
			Model:          "gpt-4o",
			Temperature:    0.7,
			MaxTokens:      2048,
			TimeoutSeconds: 60,
		},
		OCR: OCRSettings{
			Provider:          "ocrspace",
			Endpoint:          "https://api.ocr.space/parse/image",
			Language:          "auto",
			Engine:            2,
			DetectOrientation: true,
			IsTable:           true,
			Scale:             false,
			ClovaLang:         "ko",
			MaxConcurrent:     5,
		},
		HTTP: HTTPSettings{
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// Load reads settings from the YAML file at path, layered over the defaults,
// then applies environment overrides. An empty path skips the file layer.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewError("failed to read config file", map[string]any{
				"path": path, "error": err.Error(),
			})
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, NewError("failed to parse config file", map[string]any{
				"path": path, "error": err.Error(),
			})
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.LLM.APIKey = v
	}
	if v := os.Getenv("OCR_API_KEY"); v != "" {
		s.OCR.APIKey = v
	}
	if v := os.Getenv("CLOVA_SECRET_KEY"); v != "" {
		s.OCR.ClovaSecretKey = v
	}
	if v := os.Getenv("CLOVA_INVOKE_URL"); v != "" {
		s.OCR.ClovaInvokeURL = v
	}
	if v := os.Getenv("OCR_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.OCR.MaxConcurrent = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
}

// Validate checks structural settings. Provider credentials are checked by
// the client factories on first use, so that unused providers do not need
// keys configured.
func (s *Settings) Validate() error {
	if s.LLM.Provider == "" || s.LLM.Model == "" {
		return NewError("llm provider and model must be set", map[string]any{
			"provider": s.LLM.Provider, "model": s.LLM.Model,
		})
	}
	if s.OCR.MaxConcurrent <= 0 {
		return NewError("invalid OCR concurrency setting", map[string]any{
			"value": s.OCR.MaxConcurrent,
		})
	}
	if s.HTTP.MaxRetries < 1 {
		return NewError("http max_retries must be at least 1", map[string]any{
			"value": s.HTTP.MaxRetries,
		})
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := Default()
	assert.Equal(t, "openai", s.LLM.Provider)
	assert.Equal(t, 5, s.OCR.MaxConcurrent)
	assert.Equal(t, 3, s.HTTP.MaxRetries)
	assert.NoError(t, s.Validate())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o-mini
  temperature: 0.3
ocr:
  provider: clova
  max_concurrent: 8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("OCR_API_KEY", "test-key")
	t.Setenv("CLOVA_SECRET_KEY", "clova-secret")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", s.LLM.Model)
	assert.Equal(t, 0.3, s.LLM.Temperature)
	assert.Equal(t, "clova", s.OCR.Provider)
	assert.Equal(t, 8, s.OCR.MaxConcurrent)
	assert.Equal(t, "test-key", s.OCR.APIKey)
	assert.Equal(t, "clova-secret", s.OCR.ClovaSecretKey)
	assert.Equal(t, "debug", s.Log.Level)
	// Defaults survive for fields the file does not mention.
	assert.Equal(t, 30, s.HTTP.TimeoutSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	s := Default()
	s.OCR.MaxConcurrent = 0
	err := s.Validate()
	require.Error(t, err)
	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "concurrency")
}

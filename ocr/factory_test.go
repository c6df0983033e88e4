package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopscout/agent/config"
	"github.com/shopscout/agent/log"
)

func TestNewOCRSpaceFromSettings(t *testing.T) {
	settings := config.Default().OCR
	settings.APIKey = "key"

	batch, err := New(settings, config.Default().HTTP, &log.NoOpLogger{})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.IsType(t, &OCRSpace{}, batch.service)
}

func TestNewClovaFromSettings(t *testing.T) {
	settings := config.Default().OCR
	settings.Provider = "clova"
	settings.ClovaSecretKey = "secret"
	settings.ClovaInvokeURL = "https://clovaocr.example.com/general"

	batch, err := New(settings, config.Default().HTTP, &log.NoOpLogger{})
	require.NoError(t, err)
	assert.IsType(t, &Clova{}, batch.service)
}

func TestNewMissingCredentials(t *testing.T) {
	t.Run("ocrspace without key", func(t *testing.T) {
		settings := config.Default().OCR
		_, err := New(settings, config.Default().HTTP, &log.NoOpLogger{})
		var cfgErr *config.Error
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("clova without invoke url", func(t *testing.T) {
		settings := config.Default().OCR
		settings.Provider = "clova"
		settings.ClovaSecretKey = "secret"
		_, err := New(settings, config.Default().HTTP, &log.NoOpLogger{})
		var cfgErr *config.Error
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestNewUnknownProvider(t *testing.T) {
	settings := config.Default().OCR
	settings.Provider = "tesseract"
	_, err := New(settings, config.Default().HTTP, &log.NoOpLogger{})
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "tesseract")
}

package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOCRSpacePerform(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"ParsedResults": [
				{"ParsedText": "갤럭시북4 프로  "},
				{"ParsedText": "1.56kg"}
			],
			"IsErroredOnProcessing": false
		}`)
	}))
	defer server.Close()

	client := NewOCRSpace("test-key",
		WithOCRSpaceEndpoint(server.URL),
		WithOCRSpaceLanguage("kor"),
		WithOCRSpaceEngine(2),
		WithOCRSpaceTableMode(true),
	)

	text, err := client.Perform(context.Background(), "https://cdn.example.com/spec.jpg")
	require.NoError(t, err)
	assert.Equal(t, "갤럭시북4 프로\n1.56kg", text)

	assert.Equal(t, "test-key", gotForm.Get("apikey"))
	assert.Equal(t, "https://cdn.example.com/spec.jpg", gotForm.Get("url"))
	assert.Equal(t, "kor", gotForm.Get("language"))
	assert.Equal(t, "2", gotForm.Get("OCREngine"))
	assert.Equal(t, "true", gotForm.Get("isTable"))
	assert.Equal(t, "false", gotForm.Get("isOverlayRequired"))
}

func TestOCRSpaceProcessingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"ParsedResults": [],
			"IsErroredOnProcessing": true,
			"ErrorMessage": ["Timed out waiting for results"]
		}`)
	}))
	defer server.Close()

	client := NewOCRSpace("test-key", WithOCRSpaceEndpoint(server.URL))
	_, err := client.Perform(context.Background(), "https://cdn.example.com/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timed out")
}

func TestOCRSpaceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewOCRSpace("bad-key", WithOCRSpaceEndpoint(server.URL))
	_, err := client.Perform(context.Background(), "https://cdn.example.com/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestErrorMessageText(t *testing.T) {
	assert.Equal(t, "oops", errorMessageText([]byte(`"oops"`)))
	assert.Equal(t, "a; b", errorMessageText([]byte(`["a","b"]`)))
	assert.Equal(t, "unknown error", errorMessageText(nil))
}

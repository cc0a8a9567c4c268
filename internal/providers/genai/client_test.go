package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.Config{
		GenAIBaseURL: srv.URL,
		GenAIAPIKey:  "test-key",
		GenAIModel:   "gemini-3-pro-image-preview",
	}, zap.NewNop())
}

func pngBase64() string {
	return base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
}

func TestGenerateSnakeCaseInlineData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload, "contents")
		assert.Contains(t, payload, "generationConfig")

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inline_data":{"mime_type":"image/png","data":"` + pngBase64() + `"}}
		]}}]}`))
	})

	image, err := client.Generate(context.Background(), GenerateRequest{
		Prompt:      "a fox",
		AspectRatio: "16:9",
		Resolution:  "1K",
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.Mime)
	assert.Equal(t, []byte("fake-png-bytes"), image.Bytes)
}

func TestGenerateCamelCaseInlineData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"inlineData":{"mimeType":"image/webp","data":"` + pngBase64() + `"}}
		]}}]}`))
	})

	image, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox"})
	require.NoError(t, err)
	assert.Equal(t, "image/webp", image.Mime)
}

func TestGenerateTopLevelImageFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"imageBase64":"` + pngBase64() + `"}`))
	})

	image, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox"})
	require.NoError(t, err)
	// Missing mime defaults to png.
	assert.Equal(t, "image/png", image.Mime)
}

func TestGenerateTextOnlyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, no image"}]}}]}`))
	})

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox"})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestGenerateQuotaError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"pre_consume_token_quota_failed"}}`))
	})

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := NewClient(config.Config{GenAIBaseURL: "http://unused"}, zap.NewNop())

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateSendsInputImage(t *testing.T) {
	var parts []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Contents, 1)
		parts = payload.Contents[0].Parts

		_, _ = w.Write([]byte(`{"imageBase64":"` + pngBase64() + `"}`))
	})

	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "remove background",
		InputImage: &InlineImage{
			Bytes: []byte("input-jpeg"),
			Mime:  "image/jpeg",
		},
	})
	require.NoError(t, err)

	require.Len(t, parts, 2)
	inline, ok := parts[1]["inline_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", inline["mime_type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("input-jpeg")), inline["data"])
}

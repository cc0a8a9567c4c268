package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pixelmint/pixelmint/internal/config"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.GenAITimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GenAIBaseURL, "/"),
		apiKey:     cfg.GenAIAPIKey,
		model:      cfg.GenAIModel,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("genai.client"),
	}
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents []struct {
		Role  string        `json:"role"`
		Parts []contentPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		ImageConfig        struct {
			AspectRatio string `json:"aspectRatio,omitempty"`
			ImageSize   string `json:"imageSize,omitempty"`
		} `json:"imageConfig"`
	} `json:"generationConfig"`
}

// responsePart tolerates both snake_case and camelCase inline data keys; the
// upstream gateway is not consistent between model versions.
type responsePart struct {
	Text        string      `json:"text,omitempty"`
	InlineData  *inlineData `json:"inline_data,omitempty"`
	InlineData2 *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Image, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload := generateContentRequest{}
	parts := []contentPart{{Text: req.Prompt}}
	if req.InputImage != nil {
		parts = append(parts, contentPart{InlineData: &inlineData{
			MimeType: req.InputImage.Mime,
			Data:     base64.StdEncoding.EncodeToString(req.InputImage.Bytes),
		}})
	}
	payload.Contents = append(payload.Contents, struct {
		Role  string        `json:"role"`
		Parts []contentPart `json:"parts"`
	}{Role: "user", Parts: parts})
	payload.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	payload.GenerationConfig.ImageConfig.AspectRatio = req.AspectRatio
	payload.GenerationConfig.ImageConfig.ImageSize = req.Resolution

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, friendlyError(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("generation call failed",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(raw)),
		)
		return nil, friendlyError(string(raw))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}

	return extractImage(decoded)
}

// extractImage walks the known response shapes in order: candidate parts with
// snake_case inline data, camelCase inline data, then the flat top-level
// imageBase64 fallback some gateways produce.
func extractImage(decoded generateContentResponse) (*Image, error) {
	if len(decoded.Candidates) > 0 {
		for _, part := range decoded.Candidates[0].Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return decodeInline(part.InlineData.Data, part.InlineData.MimeType)
			}
			if part.InlineData2 != nil && part.InlineData2.Data != "" {
				return decodeInline(part.InlineData2.Data, part.InlineData2.MimeType)
			}
		}
	}
	if decoded.ImageBase64 != "" {
		return decodeInline(decoded.ImageBase64, decoded.MimeType)
	}
	return nil, ErrNoImage
}

func decodeInline(data, mime string) (*Image, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode inline image: %w", err)
	}
	if mime == "" {
		mime = "image/png"
	}
	return &Image{Bytes: raw, Mime: mime}, nil
}

// friendlyError maps raw provider failures onto short, user-presentable
// reasons; the raw text ends up in logs, not in the task row.
func friendlyError(raw string) error {
	switch {
	case strings.Contains(raw, "token quota is not enough"),
		strings.Contains(raw, "pre_consume_token_quota_failed"):
		return fmt.Errorf("provider quota exhausted, try again later")
	case strings.Contains(raw, "Failed to fetch"),
		strings.Contains(raw, "NetworkError"),
		strings.Contains(raw, "connection refused"):
		return fmt.Errorf("network error reaching generation provider")
	case strings.Contains(raw, "aborted"),
		strings.Contains(raw, "timeout"),
		strings.Contains(raw, "deadline exceeded"):
		return fmt.Errorf("generation request timed out")
	default:
		return fmt.Errorf("generation failed")
	}
}

package gateway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pixelmint/pixelmint/internal/config"
	"go.uber.org/zap"
)

// CreatePaymentRequest is an outbound payment creation.
type CreatePaymentRequest struct {
	TradeOrderID string
	TotalFee     string
	Title        string
}

// Client talks to the hosted-checkout payment provider. All requests and
// notifications are authenticated with an MD5 signature over the sorted
// parameter set.
type Client struct {
	appID     string
	appSecret string
	apiURL    string
	notifyURL string
	returnURL string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		appID:     cfg.PayAppID,
		appSecret: cfg.PayAppSecret,
		apiURL:    cfg.PayAPIURL,
		notifyURL: cfg.PayNotifyURL,
		returnURL: cfg.PayReturnURL,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log.Named("payment.gateway"),
	}
}

// AppSecret exposes the shared secret for notification verification.
func (c *Client) AppSecret() string { return c.appSecret }

// CreatePayment registers an order with the provider and returns the hosted
// checkout URL the buyer should be redirected to.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (string, error) {
	params := map[string]string{
		"version":        "1.1",
		"appid":          c.appID,
		"trade_order_id": req.TradeOrderID,
		"total_fee":      req.TotalFee,
		"title":          req.Title,
		"time":           strconv.FormatInt(time.Now().Unix(), 10),
		"notify_url":     c.notifyURL,
		"return_url":     c.returnURL,
		"callback_url":   c.returnURL,
		"nonce_str":      strconv.FormatInt(time.Now().UnixNano(), 10),
	}
	params["hash"] = Sign(params, c.appSecret)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("payment response: %w", err)
	}

	var payload struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("payment response decode: %w", err)
	}
	if payload.ErrCode != 0 {
		c.log.Warn("payment creation rejected",
			zap.Int("errcode", payload.ErrCode),
			zap.String("errmsg", payload.ErrMsg),
		)
		return "", fmt.Errorf("payment provider error %d: %s", payload.ErrCode, payload.ErrMsg)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("payment provider returned no checkout url")
	}
	return payload.URL, nil
}

// Sign computes the provider signature: parameters sorted by key, empty
// values and the hash field itself skipped, joined as k=v with &, the shared
// secret appended, MD5 hex digest of the result.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "hash" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString(secret)

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// ParseNotification normalizes a webhook delivery into a flat parameter map.
// The provider documents form-encoded bodies but has been observed sending
// JSON, so both are accepted; JSON values are stringified.
func ParseNotification(body []byte, contentType string) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("empty notification body")
	}

	if strings.Contains(contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
			params := make(map[string]string, len(raw))
			for k, v := range raw {
				params[k] = stringify(v)
			}
			return params, nil
		}
		// Fall through to form parsing when the JSON turned out malformed.
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse notification: %w", err)
	}
	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	return params, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers arrive as float64; integral values must not grow a
		// trailing ".000000" or the signature check breaks.
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

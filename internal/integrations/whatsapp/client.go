package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"carevo-bot/internal/domain"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultVersion    = "v22.0"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 4
	defaultBackoff    = time.Second
	audioMimeType     = "audio/ogg"
)

// errMalformedResponse marks a 2xx response whose body is not JSON. Retried
// like a transport failure.
var errMalformedResponse = errors.New("whatsapp: malformed response body")

type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx Graph API responses. These are never retried.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("whatsapp: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// outgoingMessage merges the recipient metadata into a reply.
type outgoingMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	domain.OutboundMessage
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Client talks to the WhatsApp Cloud API send and media endpoints.
type Client struct {
	baseURL       string
	version       string
	phoneNumberID string
	recipient     string
	httpClient    *http.Client
	getter        TokenGetter
	paramPrefix   string
	limiter       *rate.Limiter
	maxRetries    uint
	backoff       time.Duration

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithVersion(version string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(version); v != "" {
			c.version = v
		}
	}
}

// WithRecipient sends every message to waID instead of the sender. Used with
// test numbers that may only message an allow-listed recipient.
func WithRecipient(waID string) Option {
	return func(c *Client) {
		c.recipient = strings.TrimSpace(waID)
	}
}

// WithRateLimit throttles outbound calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry sets the first backoff interval and how many retries follow the first attempt.
func WithRetry(initial time.Duration, maxRetries uint) Option {
	return func(c *Client) {
		c.backoff = initial
		c.maxRetries = maxRetries
	}
}

// NewClient creates a Client. The access token is read from SSM on first use.
func NewClient(ps TokenGetter, paramPrefix, phoneNumberID string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("whatsapp: token getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("whatsapp: parameter prefix must not be empty")
	}
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if phoneNumberID == "" {
		return nil, errors.New("whatsapp: phone number id must not be empty")
	}
	c := &Client{
		baseURL:       defaultBaseURL,
		version:       defaultVersion,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		getter:        ps,
		paramPrefix:   paramPrefix,
		maxRetries:    defaultMaxRetries,
		backoff:       defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = c.getter.GetToken(ctx, c.paramPrefix+"/whatsapp-token")
		if c.tokenErr != nil {
			c.tokenErr = fmt.Errorf("whatsapp: fetch access token: %w", c.tokenErr)
		}
	})
	return c.token, c.tokenErr
}

func (c *Client) endpoint(resource string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/%s/%s/%s", base, c.version, c.phoneNumberID, resource)
}

// SendMessage delivers msg to the sender (or the configured recipient override)
// and returns the platform message id.
func (c *Client) SendMessage(ctx context.Context, to string, msg domain.OutboundMessage) (string, error) {
	if c.recipient != "" {
		to = c.recipient
	}
	if strings.TrimSpace(to) == "" {
		return "", errors.New("whatsapp: recipient must not be empty")
	}
	token, err := c.resolveToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(outgoingMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		OutboundMessage:  msg,
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal message: %w", err)
	}

	url := c.endpoint("messages")
	raw, err := c.do(ctx, url, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: send %s message: %w", msg.Type, err)
	}

	var payload sendResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("whatsapp: decode send response: %w", err)
	}
	if len(payload.Messages) == 0 {
		return "", nil
	}
	return payload.Messages[0].ID, nil
}

// UploadAudioFile uploads a local Ogg/Opus file and returns its media id.
func (c *Client) UploadAudioFile(ctx context.Context, path string) (string, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("whatsapp: upload %s: %w", path, err)
	}

	url := c.endpoint("media")
	raw, err := c.do(ctx, url, func() (*http.Request, error) {
		body, contentType, err := multipartAudio(path)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: upload %s: %w", filepath.Base(path), err)
	}

	var payload uploadResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("whatsapp: decode upload response: %w", err)
	}
	if payload.ID == "" {
		return "", errors.New("whatsapp: upload response has no media id")
	}
	return payload.ID, nil
}

// multipartAudio builds the media upload form: the file part and messaging_product.
func multipartAudio(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", audioMimeType)
	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("write audio bytes: %w", err)
	}
	if err := w.WriteField("type", audioMimeType); err != nil {
		return nil, "", fmt.Errorf("write type field: %w", err)
	}
	if err := w.WriteField("messaging_product", "whatsapp"); err != nil {
		return nil, "", fmt.Errorf("write messaging_product field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

// do runs one logical call. Transport failures (timeouts, resets, unreadable
// or non-JSON 2xx bodies) are retried with exponential backoff; any non-2xx
// response is returned at once as *HTTPStatusError.
func (c *Client) do(ctx context.Context, url string, build func() (*http.Request, error)) ([]byte, error) {
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		res, err := httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer func() { _ = res.Body.Close() }()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			return nil, backoff.Permanent(&HTTPStatusError{
				StatusCode: res.StatusCode,
				URL:        url,
				Body:       string(buf),
			})
		}
		buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		if !json.Valid(buf) {
			return nil, errMalformedResponse
		}
		return buf, nil
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     c.backoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("whatsapp request failed, retrying", "url", url, "attempt", attempt, "retry_in", next, "err", err)
		}),
	)
}

// Package backend talks to the SecondEye inference service over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secondeye/secondeye/internal/failure"
	"github.com/secondeye/secondeye/internal/formdata"
	"github.com/secondeye/secondeye/internal/interaction"
	"github.com/secondeye/secondeye/internal/version"
)

const (
	processEndpoint = "/process"
	healthEndpoint  = "/health"

	// DefaultTimeout bounds every request when no client is supplied.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept for the user message.
	maxErrorBody = 64 << 10
)

// Health is the decoded GET /health payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// OK reports whether the service declared itself healthy.
func (h Health) OK() bool {
	return strings.EqualFold(h.Status, "ok")
}

// Client uploads interactions and fetches answer audio.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	boundary  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout replaces the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBoundary fixes the multipart boundary generator.
func WithBoundary(fn func() string) Option {
	return func(c *Client) {
		c.boundary = fn
	}
}

// New returns a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: version.UserAgent(),
		boundary:  func() string { return "secondeye-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type requestIDKey struct{}

// WithRequestID attaches an interaction ID sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the interaction ID attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Upload sends req to POST /process and decodes the typed response.
func (c *Client) Upload(ctx context.Context, req interaction.Request) (interaction.Response, error) {
	boundary := c.boundary()
	body, err := formdata.EncodeRequest(boundary, req)
	if err != nil {
		return interaction.Response{}, failure.Encoding("encode request", err)
	}

	if req.ID != "" {
		ctx = WithRequestID(ctx, req.ID)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.baseURL+processEndpoint, bytes.NewReader(body))
	if err != nil {
		return interaction.Response{}, failure.Network("upload", err)
	}
	httpReq.Header.Set("Content-Type", formdata.ContentType(boundary))
	httpReq.Header.Set("Accept", "application/json")

	payload, err := c.do(httpReq, "upload")
	if err != nil {
		return interaction.Response{}, err
	}

	resp, err := decodeResponse(payload)
	if err != nil {
		return interaction.Response{}, failure.Decode("decode response", err)
	}
	return resp, nil
}

// requiredFields are always sent by /process; a body without them is not an answer.
var requiredFields = []string{"intent", "action_taken", "response_text", "audio_output"}

func decodeResponse(payload []byte) (interaction.Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return interaction.Response{}, err
	}
	if fields == nil {
		return interaction.Response{}, errors.New("response is not a JSON object")
	}
	for _, key := range requiredFields {
		raw, ok := fields[key]
		if !ok {
			return interaction.Response{}, fmt.Errorf("response missing %q", key)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return interaction.Response{}, fmt.Errorf("response field %q is null", key)
		}
	}

	var resp interaction.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return interaction.Response{}, err
	}
	return resp, nil
}

// ResolveAudio returns the answer audio, preferring the inline payload.
// An invalid inline payload fails without falling back to audio_output.
func (c *Client) ResolveAudio(ctx context.Context, resp interaction.Response) ([]byte, error) {
	if resp.HasInlineAudio() {
		audio, err := base64.StdEncoding.DecodeString(strings.TrimSpace(resp.AudioBase64))
		if err != nil {
			return nil, failure.Decode("decode inline audio", err)
		}
		if len(audio) == 0 {
			return nil, failure.Decode("decode inline audio", errors.New("inline audio is empty"))
		}
		return audio, nil
	}

	ref := strings.TrimSpace(resp.AudioOutput)
	if ref == "" {
		return nil, failure.Decode("resolve audio", errors.New("response has neither audio_base64 nor audio_output"))
	}

	httpReq, err := c.newRequest(ctx, http.MethodGet, c.AudioURL(ref), nil)
	if err != nil {
		return nil, failure.Network("fetch audio", err)
	}
	audio, err := c.do(httpReq, "fetch audio")
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, failure.Decode("fetch audio", errors.New("audio body is empty"))
	}
	return audio, nil
}

// AudioURL resolves an audio_output reference. Absolute http(s) URLs are
// returned unchanged; anything else is joined to the base URL.
func (c *Client) AudioURL(ref string) string {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}
	return c.baseURL + "/" + strings.Trim(ref, "/")
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, c.baseURL+healthEndpoint, nil)
	if err != nil {
		return Health{}, failure.Network("health", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	payload, err := c.do(httpReq, "health")
	if err != nil {
		return Health{}, err
	}

	var health Health
	if err := json.Unmarshal(payload, &health); err != nil {
		return Health{}, failure.Decode("decode health", err)
	}
	return health, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.New("backend base URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failure.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, failure.Backend(op, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Network(op, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

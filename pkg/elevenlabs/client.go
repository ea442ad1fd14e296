// Package elevenlabs wraps the ElevenLabs Conversational AI REST endpoints
// used after and before a voice interview.
package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/interview-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1/convai"
	errorBodyLimit = 200
)

// ErrInvalidSignedURL is returned when the provider hands back something
// other than a websocket URL.
var ErrInvalidSignedURL = eris.New("elevenlabs: signed url is not a websocket url")

// Client defines the ElevenLabs operations used by this application.
type Client interface {
	// GetConversation returns the raw conversation document. Its shape varies
	// by provider version; callers normalize it.
	GetConversation(ctx context.Context, conversationID string) (map[string]any, error)
	// GetSignedURL returns a websocket URL for starting a session with agentID.
	GetSignedURL(ctx context.Context, agentID string) (string, error)
	// AudioURL returns the recording location for a conversation.
	AudioURL(conversationID string) string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an ElevenLabs client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GetConversation(ctx context.Context, conversationID string) (map[string]any, error) {
	body, err := c.get(ctx, "/conversations/"+url.PathEscape(conversationID))
	if err != nil {
		return nil, eris.Wrapf(err, "elevenlabs: get conversation %s", conversationID)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrapf(err, "elevenlabs: decode conversation %s", conversationID)
	}
	return doc, nil
}

func (c *httpClient) GetSignedURL(ctx context.Context, agentID string) (string, error) {
	body, err := c.get(ctx, "/conversation/get-signed-url?agent_id="+url.QueryEscape(agentID))
	if err != nil {
		return "", eris.Wrap(err, "elevenlabs: get signed url")
	}

	var out struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "elevenlabs: decode signed url")
	}
	if !IsWebsocketURL(out.SignedURL) {
		return "", ErrInvalidSignedURL
	}
	return out.SignedURL, nil
}

func (c *httpClient) AudioURL(conversationID string) string {
	return c.baseURL + "/conversations/" + url.PathEscape(conversationID) + "/audio"
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}
	if err := resilience.CheckStatus("elevenlabs", resp.StatusCode, body, errorBodyLimit); err != nil {
		return nil, err
	}
	return body, nil
}

// IsWebsocketURL reports whether u uses the ws or wss scheme.
func IsWebsocketURL(u string) bool {
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}

// WithInactivityTimeout appends the inactivity_timeout query parameter,
// joining with "?" or "&" as needed.
func WithInactivityTimeout(signedURL string, secs int) string {
	sep := "?"
	if strings.Contains(signedURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sinactivity_timeout=%d", signedURL, sep, secs)
}

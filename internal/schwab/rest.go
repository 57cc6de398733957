package schwab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Default endpoints.
const (
	DefaultAPIBaseURL  = "https://api.schwabapi.com"
	DefaultTokenURL    = "https://api.schwabapi.com/v1/oauth/token"
	defaultTokenExpiry = 30 * time.Minute
	defaultTimeout     = 30 * time.Second
)

// APIError represents a non-2xx reply from the REST API.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("schwab api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client talks to the Schwab trader REST API and refreshes the OAuth token
// cached at tokenPath. It is the authenticated handle from which a streaming
// session is opened.
type Client struct {
	appKey      string
	appSecret   string
	callbackURL string
	tokenPath   string

	baseURL    string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	token *Token
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithTokenURL overrides the OAuth token endpoint (tests).
func WithTokenURL(u string) ClientOption {
	return func(c *Client) { c.tokenURL = u }
}

// NewClient creates a REST client. Authenticate must succeed before any
// other call.
func NewClient(appKey, appSecret, callbackURL, tokenPath string, opts ...ClientOption) *Client {
	c := &Client{
		appKey:      appKey,
		appSecret:   appSecret,
		callbackURL: callbackURL,
		tokenPath:   tokenPath,
		baseURL:     DefaultAPIBaseURL,
		tokenURL:    DefaultTokenURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Authenticate loads the cached token and refreshes it if expired. Missing
// credentials are a precondition failure, not a transport error.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.appKey == "" || c.appSecret == "" {
		return ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		token, err := c.loadToken()
		if err != nil {
			return err
		}
		c.token = token
	}

	if !c.token.Expired() {
		return nil
	}

	refreshed, err := c.refreshToken(ctx, c.token.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	c.token = refreshed

	if err := c.saveToken(refreshed); err != nil {
		// Still authenticated; the next process start refreshes again.
		c.logger.Warn("failed to persist refreshed token", "path", c.tokenPath, "error", err)
	}

	c.logger.Info("token refreshed", "expires_at", refreshed.ExpiresAt)
	return nil
}

// AccountNumbers returns the accounts visible to the credential set.
func (c *Client) AccountNumbers(ctx context.Context) ([]Account, error) {
	body, err := c.get(ctx, "/trader/v1/accounts/accountNumbers")
	if err != nil {
		return nil, fmt.Errorf("account numbers: %w", err)
	}

	var accounts []Account
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("parse account numbers: %w", err)
	}
	return accounts, nil
}

// userPreference fetches the streamer connection info.
func (c *Client) userPreference(ctx context.Context) (*StreamerInfo, error) {
	body, err := c.get(ctx, "/trader/v1/userPreference")
	if err != nil {
		return nil, fmt.Errorf("user preference: %w", err)
	}

	var prefs userPreferenceResponse
	if err := json.Unmarshal(body, &prefs); err != nil {
		return nil, fmt.Errorf("parse user preference: %w", err)
	}
	if len(prefs.StreamerInfo) == 0 {
		return nil, fmt.Errorf("user preference has no streamer info")
	}
	return &prefs.StreamerInfo[0], nil
}

// accessToken returns the current access token.
func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

// get performs an authenticated GET against the API base.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// refreshToken exchanges the refresh token for a new access token.
func (c *Client) refreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.appKey + ":" + c.appSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}

	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if expiresIn == 0 {
		expiresIn = defaultTokenExpiry
	}
	// The endpoint may rotate the refresh token; keep the old one if not.
	if tr.RefreshToken == "" {
		tr.RefreshToken = refreshToken
	}

	return &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(expiresIn),
	}, nil
}

// loadToken reads the cached token file.
func (c *Client) loadToken() (*Token, error) {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, c.tokenPath)
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file has no refresh_token", ErrNoToken)
	}
	return &token, nil
}

// saveToken writes the token file with owner-only permissions.
func (c *Client) saveToken(token *Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, data, 0600)
}

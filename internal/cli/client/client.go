package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ts-platform/portal/internal/cli/auth"
	"github.com/ts-platform/portal/internal/cli/progress"
)

const (
	DefaultBaseURL = "http://localhost:4000/api"
	DefaultTimeout = 30 * time.Second

	refreshPath = "/auth/refresh"
)

// ErrNotAuthenticated is returned when an operation needs stored credentials and there are none
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'tsp login' first")

// CredentialStore is the token storage the client reads and updates
type CredentialStore interface {
	Tokens() (auth.Tokens, bool)
	SetTokens(tokens auth.Tokens) error
	ClearTokens() error
	ClearSession() error
}

// Client represents an authenticated HTTP client for the portal API
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
	progress   *progress.Broadcaster
	logger     zerolog.Logger

	// refreshes holds at most one in-flight exchange per refresh token
	refreshes singleflight.Group

	failureMu sync.Mutex
	failure   failedRefresh
}

// failedRefresh is the last pair whose exchange was rejected
type failedRefresh struct {
	tokens auth.Tokens
	err    error
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithStore sets where tokens are read from and persisted to
func WithStore(store CredentialStore) Option {
	return func(c *Client) { c.store = store }
}

// WithProgress sets the broadcaster that counts in-flight requests
func WithProgress(broadcaster *progress.Broadcaster) Option {
	return func(c *Client) { c.progress = broadcaster }
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new API client
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		progress:   progress.New(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = auth.NewStore(nil, c.logger)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the API root all paths are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Progress returns the broadcaster counting this client's in-flight requests
func (c *Client) Progress() *progress.Broadcaster {
	return c.progress
}

// Request describes one API call. Body is kept as bytes so the call can be replayed.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string

	// Anonymous requests carry no credentials and never trigger a refresh
	Anonymous bool
}

// NewJSONRequest builds a request whose body is payload encoded as JSON
func NewJSONRequest(method, path string, payload any) (*Request, error) {
	req := &Request{Method: method, Path: path}
	if payload == nil {
		return req, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.Body = data
	req.ContentType = "application/json"
	return req, nil
}

// Do sends req with the stored access token and decodes the response into out.
// A 401 triggers one coordinated token refresh and a single retry.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	var token string
	if !req.Anonymous {
		token = c.accessToken()
	}

	body, err := c.send(ctx, req, token)
	if err == nil {
		return decode(body, out)
	}
	if req.Anonymous || !IsUnauthorized(err) {
		return err
	}

	fresh, err := c.recover(ctx, token, err)
	if err != nil {
		return err
	}

	c.logger.Debug().Str("method", req.Method).Str("path", req.Path).Msg("Retrying request with refreshed token")
	body, err = c.send(ctx, req, fresh)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	req, err := NewJSONRequest(http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	return c.Do(ctx, req, out)
}

// Put sends a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, payload, out any) error {
	req, err := NewJSONRequest(http.MethodPut, path, payload)
	if err != nil {
		return err
	}
	return c.Do(ctx, req, out)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, nil)
}

// Refresh exchanges the stored refresh token for a new pair
func (c *Client) Refresh(ctx context.Context) (auth.Tokens, error) {
	tokens, ok := c.store.Tokens()
	if !ok {
		return auth.Tokens{}, ErrNotAuthenticated
	}
	return c.refresh(ctx, tokens)
}

func (c *Client) accessToken() string {
	tokens, ok := c.store.Tokens()
	if !ok {
		return ""
	}
	return tokens.AccessToken
}

// recover handles a 401 for a request sent with usedToken and returns the token to retry with
func (c *Client) recover(ctx context.Context, usedToken string, cause error) (string, error) {
	tokens, ok := c.store.Tokens()
	if !ok {
		// The pair this request used may have been cleared by a refresh that failed meanwhile
		if err := c.failureFor(func(failed auth.Tokens) bool { return failed.AccessToken == usedToken }); err != nil {
			return "", err
		}
		if err := c.store.ClearTokens(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear stored tokens")
		}
		return "", cause
	}

	// Another caller already rotated the pair after this request went out
	if tokens.AccessToken != usedToken {
		return tokens.AccessToken, nil
	}

	fresh, err := c.refresh(ctx, tokens)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

func (c *Client) refresh(ctx context.Context, current auth.Tokens) (auth.Tokens, error) {
	value, err, shared := c.refreshes.Do(current.RefreshToken, func() (any, error) {
		// A flight that finished just before this one may already have replaced or cleared the pair
		latest, ok := c.store.Tokens()
		if !ok {
			if err := c.failureFor(func(failed auth.Tokens) bool { return failed == current }); err != nil {
				return auth.Tokens{}, err
			}
			return auth.Tokens{}, &RefreshError{Err: ErrNotAuthenticated}
		}
		if latest != current {
			return latest, nil
		}

		// Followers share this call, so the leader's cancellation must not abort it
		return c.exchange(context.WithoutCancel(ctx), current)
	})
	if shared {
		c.logger.Debug().Msg("Token refresh shared with concurrent requests")
	}
	if err != nil {
		return auth.Tokens{}, err
	}
	return value.(auth.Tokens), nil
}

// failureFor returns the last refresh failure if its pair matches
func (c *Client) failureFor(match func(auth.Tokens) bool) error {
	c.failureMu.Lock()
	defer c.failureMu.Unlock()
	if c.failure.err == nil || !match(c.failure.tokens) {
		return nil
	}
	return c.failure.err
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// exchange calls the refresh endpoint and persists the new pair.
// Any failure ends the session.
func (c *Client) exchange(ctx context.Context, current auth.Tokens) (auth.Tokens, error) {
	tokens, err := c.postRefresh(ctx, current)
	if err != nil {
		if clearErr := errors.Join(c.store.ClearTokens(), c.store.ClearSession()); clearErr != nil {
			c.logger.Warn().Err(clearErr).Msg("Failed to clear credentials after refresh failure")
		}
		c.logger.Info().Err(err).Msg("Session refresh failed, credentials cleared")
		refreshErr := &RefreshError{Err: err}
		c.failureMu.Lock()
		c.failure = failedRefresh{tokens: current, err: refreshErr}
		c.failureMu.Unlock()
		return auth.Tokens{}, refreshErr
	}

	if err := c.store.SetTokens(tokens); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist refreshed tokens")
	}
	c.logger.Debug().Msg("Access token refreshed")
	return tokens, nil
}

func (c *Client) postRefresh(ctx context.Context, current auth.Tokens) (auth.Tokens, error) {
	jsonData, err := json.Marshal(refreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(jsonData))
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", ulid.Make().String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return auth.Tokens{}, newError(http.MethodPost, refreshPath, resp.StatusCode, body)
	}

	var refreshed refreshResponse
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return auth.Tokens{}, errors.New("refresh response did not include an access token")
	}

	next := auth.Tokens{AccessToken: refreshed.AccessToken, RefreshToken: refreshed.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	return next, nil
}

// send performs one dispatch of req. The progress counter brackets the whole exchange.
func (c *Client) send(ctx context.Context, req *Request, token string) ([]byte, error) {
	c.progress.Increment()
	defer c.progress.Decrement()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if len(req.Body) > 0 {
		reader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", ulid.Make().String())
	if token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(req.Method, req.Path, resp.StatusCode, body)
	}
	return body, nil
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

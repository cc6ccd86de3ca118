// Package client is the Go SDK for the file vault API. A Client carries its
// own session state (user, access token, refresh token) rather than mutating
// any global HTTP client, and its lifecycle is owned by whoever constructs it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/filevault/filevault/analysis"
	"github.com/filevault/filevault/auth"
	"github.com/filevault/filevault/files"
	"github.com/filevault/filevault/security"
	"github.com/filevault/filevault/users"
	"github.com/pkg/errors"
)

var (
	NotAuthenticatedErr = errors.New("not authenticated")
	NoRefreshTokenErr   = errors.New("no refresh token available")
)

// APIError is a non-2xx response from the server, carrying the
// human-readable message the server returned.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client talks to the file vault API and manages the session: login,
// registration, logout, profile, and silent token refresh. All session
// transitions are atomic - a failed call leaves the previous session intact.
type Client struct {
	baseURL    string
	store      Store
	httpClient *http.Client

	mu        sync.RWMutex // guards session
	session   Session
	refreshMu sync.Mutex // serializes silent refreshes
}

type Option func(*Client)

// WithStore sets the session persistence backend.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithBaseTransport sets the transport the client wraps with its
// token-attaching, refresh-on-401 behaviour.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport.(*authTransport).base = rt
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		store:   NewMemoryStore(),
	}
	c.httpClient = &http.Client{
		Transport: &authTransport{client: c, base: http.DefaultTransport},
		Timeout:   30 * time.Second,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Restore loads a persisted session without any network round trip. It
// returns true when an authenticated session was restored.
func (c *Client) Restore() (bool, error) {
	stored, err := c.store.Load()
	if err != nil {
		return false, errors.Wrap(err, "[Client.Restore] load session")
	}
	if stored == nil || stored.Token == "" || stored.User == nil {
		return false, nil
	}

	c.mu.Lock()
	c.session = *stored
	c.session.IsAuthenticated = true
	c.mu.Unlock()
	return true, nil
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Token
}

// Login authenticates with the server and installs the returned session.
// On failure the prior session is left untouched.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var credentials auth.Credentials
	if err := c.post(ctx, "/auth/login", body, &credentials); err != nil {
		return err
	}
	return c.installSession(&credentials)
}

// Register creates a new account and installs the returned session.
// On failure the prior session is left untouched.
func (c *Client) Register(ctx context.Context, params auth.RegisterParams) error {
	var credentials auth.Credentials
	if err := c.post(ctx, "/auth/register", params, &credentials); err != nil {
		return err
	}
	return c.installSession(&credentials)
}

// Logout tells the server to revoke the tokens and clears the session.
// The local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.session.RefreshToken
	authenticated := c.session.IsAuthenticated
	c.mu.RUnlock()

	if authenticated {
		body := map[string]string{"refresh_token": refreshToken}
		_ = c.post(ctx, "/auth/logout", body, nil)
	}
	return c.clearSession()
}

// Refresh silently exchanges the stored refresh token for a new token pair.
// With no refresh token at hand it logs out immediately, without a network
// call. A failed exchange is terminal: the session is cleared and the error
// propagated.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	refreshToken := c.session.RefreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		_ = c.clearSession()
		return NoRefreshTokenErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", nil)
	if err != nil {
		return errors.Wrap(err, "[Client.Refresh] build request")
	}
	// The refresh token itself is the bearer credential here.
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	var credentials auth.Credentials
	if err := c.send(req, &credentials); err != nil {
		_ = c.clearSession()
		return errors.Wrap(err, "token refresh failed")
	}
	return c.installSession(&credentials)
}

// Profile fetches the authenticated user's profile and updates the session
// copy.
func (c *Client) Profile(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := c.get(ctx, "/user/profile", &user); err != nil {
		return nil, err
	}
	c.updateUser(&user)
	return &user, nil
}

// UpdateProfile applies profile changes and updates the session copy.
func (c *Client) UpdateProfile(ctx context.Context, update auth.ProfileUpdate) (*users.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, "/user/profile", update)
	if err != nil {
		return nil, err
	}
	var user users.User
	if err := c.send(req, &user); err != nil {
		return nil, err
	}
	c.updateUser(&user)
	return &user, nil
}

// ListFiles lists the user's files, optionally filtered by a name search.
func (c *Client) ListFiles(ctx context.Context, search string) ([]*files.File, error) {
	path := "/files"
	if search != "" {
		path += "?search=" + search
	}
	var resp struct {
		Files []*files.File `json:"files"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Threats lists the active security alerts for the user.
func (c *Client) Threats(ctx context.Context) ([]security.Threat, error) {
	var resp struct {
		Threats []security.Threat `json:"threats"`
	}
	if err := c.get(ctx, "/security/threats", &resp); err != nil {
		return nil, err
	}
	return resp.Threats, nil
}

// Insights fetches the aggregated file statistics for the user.
func (c *Client) Insights(ctx context.Context) (*analysis.Insights, error) {
	var resp struct {
		Insights *analysis.Insights `json:"insights"`
	}
	if err := c.get(ctx, "/ai/insights", &resp); err != nil {
		return nil, err
	}
	return resp.Insights, nil
}

// installSession atomically replaces the session and persists it.
func (c *Client) installSession(credentials *auth.Credentials) error {
	if credentials.User == nil || credentials.Tokens == nil {
		return errors.New("[Client.installSession] incomplete credentials in response")
	}

	session := Session{
		User:            credentials.User,
		Token:           credentials.Tokens.AccessToken,
		RefreshToken:    credentials.Tokens.RefreshToken,
		IsAuthenticated: true,
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if err := c.store.Save(&session); err != nil {
		return errors.Wrap(err, "[Client.installSession] persist session")
	}
	return nil
}

// clearSession wipes the session and its persisted copy.
func (c *Client) clearSession() error {
	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return errors.Wrap(err, "[Client.clearSession] clear store")
	}
	return nil
}

func (c *Client) updateUser(user *users.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.IsAuthenticated {
		return
	}
	c.session.User = user
	session := c.session
	_ = c.store.Save(&session)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "[Client.get] build request")
	}
	return c.send(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newJSONRequest] marshal body")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newJSONRequest] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Client.send] do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client.send] decode response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.ErrorCode = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}

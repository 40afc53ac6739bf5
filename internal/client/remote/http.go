package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
)

// HTTPClient talks JSON to the farmledger server. The bearer token is set on
// login and attached to every authenticated request.
type HTTPClient struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient returns a client for the server at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Logout drops the bearer token so subsequent calls are unauthenticated.
func (c *HTTPClient) Logout() {
	c.setToken("")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.getToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return c.do(ctx, http.MethodPost, "/api/user/register",
		registerRequest{Username: username, Salt: salt, Verifier: verifier}, nil)
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var out struct {
		Salt []byte `json:"salt"`
	}
	path := "/api/user/salt?username=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Salt, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) error {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.do(ctx, http.MethodPost, "/api/user/login",
		loginRequest{Username: username, Verifier: verifier}, &out)
	if err != nil {
		return err
	}
	c.setToken(out.AccessToken)
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

type batchWriteRequest struct {
	Entries []BatchEntry `json:"entries"`
}

func (c *HTTPClient) BatchWrite(ctx context.Context, entries []BatchEntry) error {
	return c.do(ctx, http.MethodPost, "/api/sync/batch", batchWriteRequest{Entries: entries}, nil)
}

func (c *HTTPClient) QueryRecent(ctx context.Context, col models.Collection, limit int, after *time.Time) ([]models.RemoteDocument, error) {
	path := "/api/sync/" + url.PathEscape(col.String()) + "?limit=" + strconv.Itoa(limit)
	if after != nil {
		path += "&after=" + url.QueryEscape(after.UTC().Format(time.RFC3339Nano))
	}

	var out struct {
		Documents []models.RemoteDocument `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *HTTPClient) DeleteCollection(ctx context.Context, col models.Collection) error {
	return c.do(ctx, http.MethodDelete, "/api/data/"+url.PathEscape(col.String()), nil, nil)
}

func (c *HTTPClient) DeleteUserData(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/data", nil, nil)
}

func (c *HTTPClient) PutSettings(ctx context.Context, settings map[string]string) error {
	return c.do(ctx, http.MethodPut, "/api/settings", settings, nil)
}

func (c *HTTPClient) GetSettings(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) PresignBackup(ctx context.Context) (string, string, error) {
	var out struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/backup/presign", nil, &out); err != nil {
		return "", "", err
	}
	return out.Key, out.URL, nil
}

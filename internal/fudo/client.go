// Package fudo is a client for the external POS ledger and its delivery
// integration endpoint.
package fudo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBody       = 2048
)

// ClientDeps wires a Client.
type ClientDeps struct {
	BaseURL     string
	AuthURL     string
	Credentials Credentials
	HTTPClient  *http.Client
	Tokens      TokenCache
	Logger      *zap.Logger
	Clock       func() time.Time
}

// Client issues authenticated calls. Clients derived with WithCredentials share
// the token cache and transport.
type Client struct {
	baseURL string
	authURL string
	creds   Credentials
	http    *http.Client
	tokens  TokenCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient validates deps and returns a ready client.
func NewClient(deps ClientDeps) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	authURL := strings.TrimSpace(deps.AuthURL)
	if baseURL == "" {
		return nil, errors.New("fudo client: base url is required")
	}
	if authURL == "" {
		return nil, errors.New("fudo client: auth url is required")
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenCache(clock)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		authURL: authURL,
		creds:   deps.Credentials,
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
		now:     clock,
	}, nil
}

// WithCredentials returns a client acting for another account.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

type authRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

type authResponse struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	identity := c.creds.Identity()
	if cached, ok := c.tokens.Get(identity); ok {
		return cached.Value, nil
	}
	if strings.TrimSpace(c.creds.APIKey) == "" || strings.TrimSpace(c.creds.APISecret) == "" {
		return "", ErrMissingCredentials
	}

	body, err := json.Marshal(authRequest{APIKey: c.creds.APIKey, APISecret: c.creds.APISecret})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", &APIError{Method: http.MethodPost, Path: "auth", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("fudo: auth response without token")
	}

	token := Token{Value: out.Token}
	if out.Exp > 0 {
		token.ExpiresAt = time.Unix(out.Exp, 0)
	}
	c.tokens.Set(identity, token)
	c.logger.Debug("fudo token refreshed", zap.String("identity", maskIdentity(identity)), zap.Time("expires_at", token.ExpiresAt))
	return token.Value, nil
}

// do sends one API call. A 401 invalidates the cached token and the call is
// retried exactly once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("create %s %s: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("call %s %s: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_ = readErrorBody(resp.Body)
			resp.Body.Close()
			c.tokens.Invalidate(c.creds.Identity())
			c.logger.Info("fudo token rejected, refreshing", zap.String("path", path))
			continue
		}

		err = decodeResponse(resp, method, path, out)
		resp.Body.Close()
		return err
	}
}

func decodeResponse(resp *http.Response, method, path string, out any) error {
	if resp.StatusCode/100 != 2 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}

func maskIdentity(identity string) string {
	if len(identity) <= 4 {
		return "****"
	}
	return identity[:4] + "****"
}

// Package httprpc calls the backend's session procedures over PostgREST-style HTTP RPC
// (POST {base}/rest/v1/rpc/{procedure}).
package httprpc

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

	"staff-dashboard/internal/backend"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Client implements backend.Client over HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

var _ backend.Client = (*Client)(nil)

// NewClient returns a client for baseURL. A zero timeout selects the default (10s).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// StaffLogin calls staff_login(phone, pin).
func (c *Client) StaffLogin(ctx context.Context, phone, pin string) (*backend.LoginResponse, error) {
	var out backend.LoginResponse
	err := c.call(ctx, backend.ProcStaffLogin, map[string]string{"p_phone": phone, "p_pin": pin}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSession calls validate_session(session_token).
func (c *Client) ValidateSession(ctx context.Context, sessionToken string) (*backend.ValidateResponse, error) {
	var out backend.ValidateResponse
	err := c.call(ctx, backend.ProcValidateSession, map[string]string{"p_session_token": sessionToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LogoutSession calls logout_session(session_token). The response body is ignored.
func (c *Client) LogoutSession(ctx context.Context, sessionToken string) error {
	return c.call(ctx, backend.ProcLogoutSession, map[string]string{"p_session_token": sessionToken}, nil)
}

// rpcError is the PostgREST error body.
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (c *Client) call(ctx context.Context, proc string, args any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rest/v1/rpc/"+proc, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", proc, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", proc, backend.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classify(proc, resp.StatusCode, b)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", proc, err)
	}
	return nil
}

// classify maps an unsuccessful HTTP response onto the backend error taxonomy.
func classify(proc string, status int, body []byte) error {
	var e rpcError
	_ = json.Unmarshal(body, &e)
	if isFunctionMissing(status, e) {
		return fmt.Errorf("%s: %w (status=%d code=%s)", proc, backend.ErrFunctionNotFound, status, e.Code)
	}
	if status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: status=%d", proc, backend.ErrTransport, status)
	}
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return fmt.Errorf("%s: request failed status=%d: %w", proc, status, errors.New(msg))
}

func isFunctionMissing(status int, e rpcError) bool {
	switch e.Code {
	case "PGRST202", "42883":
		return true
	}
	msg := strings.ToLower(e.Message)
	if strings.Contains(msg, "function") && (strings.Contains(msg, "not found") || strings.Contains(msg, "could not find") || strings.Contains(msg, "does not exist")) {
		return true
	}
	return status == http.StatusNotFound
}

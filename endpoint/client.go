package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

const (
	// DefaultBaseURL is the development API root.
	DefaultBaseURL = "http://localhost:5164/api"

	loginPath  = "/auth/login"
	signupPath = "/auth/signup"
	mePath     = "/auth/me"

	maxErrorBody         = 64 << 10
	defaultClientTimeout = 10 * time.Second
)

// Fallback messages used when the server body carries none.
const (
	MsgUnreachable    = "Unable to connect to server. Please check your connection."
	MsgCheckInput     = "Please check your input and try again."
	MsgInvalidLogin   = "Invalid email or password."
	MsgUserExists     = "User already exists. Please try a different email or username."
	MsgLoginFailed    = "Login failed. Please try again."
	MsgSignupFailed   = "Signup failed. Please try again."
	MsgProfileFailed  = "Unable to load your profile. Please try again."
	MsgSessionExpired = "Your session has expired. Please sign in again."
)

// Client talks to the authentication endpoint. The zero value targets
// DefaultBaseURL with a plain http.Client.
//
// HTTP should carry the bearer stage (see transport.NewClient) so that Me is
// sent with the credential. It can be assigned after the Authority is built.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for baseURL using httpClient. A nil httpClient gets a
// plain client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpClient}
}

var _ goSession.Endpoint = (*Client)(nil)

type signupBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts creds to /auth/login.
func (c *Client) Login(ctx context.Context, creds goSession.Credentials) (*goSession.LoginResponse, error) {
	var out goSession.LoginResponse
	if err := c.do(ctx, http.MethodPost, loginPath, creds, &out, loginFallback); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup posts the registration form to /auth/signup. ConfirmPassword is not
// sent.
func (c *Client) Signup(ctx context.Context, req goSession.SignupRequest) (*goSession.UserProfile, error) {
	body := signupBody{Username: req.Username, Email: req.Email, Password: req.Password}
	var out goSession.UserProfile
	if err := c.do(ctx, http.MethodPost, signupPath, body, &out, signupFallback); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the signed-in user's profile from /auth/me.
func (c *Client) Me(ctx context.Context) (*goSession.UserProfile, error) {
	var out goSession.UserProfile
	if err := c.do(ctx, http.MethodGet, mePath, nil, &out, meFallback); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, fallback func(int) string) error {
	var body io.Reader
	if in != nil {
		blob, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &goSession.RejectedError{Status: 0, Message: MsgUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := ExtractMessage(resp.StatusCode, raw)
		if msg == "" {
			msg = fallback(resp.StatusCode)
		}
		return &goSession.RejectedError{
			Status:         resp.StatusCode,
			Message:        msg,
			SessionExpired: path == mePath && resp.StatusCode == http.StatusUnauthorized,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultClientTimeout}
}

// ExtractMessage pulls a user-facing message out of an error body. In order it
// tries: a validation "errors" map (400 only) joined with ". ", a "message"
// field, then a bare JSON or plain-text string. It returns "" when the body
// carries nothing usable.
func ExtractMessage(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if status == http.StatusBadRequest {
			if raw, ok := obj["errors"]; ok {
				return joinValidationErrors(raw)
			}
		}
		for _, key := range []string{"message", "Message"} {
			if raw, ok := obj[key]; ok {
				var s string
				if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if body[0] == '{' || body[0] == '[' {
		return ""
	}
	return string(body)
}

// joinValidationErrors flattens {"Field": ["a", "b"], ...} in key order.
func joinValidationErrors(raw json.RawMessage) string {
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return MsgCheckInput
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		for _, m := range fields[k] {
			if m = strings.TrimSpace(m); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	if len(msgs) == 0 {
		return MsgCheckInput
	}
	return strings.Join(msgs, ". ")
}

func loginFallback(status int) string {
	if status == http.StatusUnauthorized {
		return MsgInvalidLogin
	}
	return MsgLoginFailed
}

func signupFallback(status int) string {
	switch status {
	case http.StatusConflict:
		return MsgUserExists
	case http.StatusBadRequest:
		return MsgCheckInput
	default:
		return MsgSignupFailed
	}
}

func meFallback(status int) string {
	if status == http.StatusUnauthorized {
		return MsgSessionExpired
	}
	return MsgProfileFailed
}

package authstub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-secret-test-secret-test-sec")
	}
	s, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler("/api"))
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	blob, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(blob))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestHashVerify(t *testing.T) {
	h, err := newHasher(DefaultHashConfig())
	require.NoError(t, err)

	encoded, err := h.hash("Passw0rd!")
	require.NoError(t, err)

	ok, err := h.verify("Passw0rd!", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.verify("passw0rd!", encoded)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = h.verify("x", "$bcrypt$whatever")
	require.Error(t, err)
}

func TestLoginMintsVerifiableCredential(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s, ts := newTestServer(t, Config{TokenTTL: time.Hour, Now: func() time.Time { return now }})
	u, err := s.AddUser("alice", "alice@example.com", "Passw0rd!", "Admin")
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "ALICE@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, u.ID, body.UserID)
	require.Equal(t, "Admin", body.Role)

	claims, err := s.Parse(body.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)
	require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestLoginWrongPassword(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	_, err := s.AddUser("alice", "alice@example.com", "Passw0rd!", "User")
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "alice@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, s.Calls(PathLogin))
}

func TestSignupConflictAndValidation(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp := postJSON(t, ts.URL+"/api/auth/signup", map[string]string{"username": "bob", "email": "bob@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/auth/signup", map[string]string{"username": "bob", "email": "other@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/auth/signup", map[string]string{"username": "", "email": "bad", "password": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Errors, 3)
}

func TestMeRequiresValidCredential(t *testing.T) {
	s, ts := newTestServer(t, Config{TokenTTL: time.Hour})
	u, err := s.AddUser("alice", "alice@example.com", "Passw0rd!", "User")
	require.NoError(t, err)
	tok, err := s.Mint(u)
	require.NoError(t, err)

	get := func(auth string) int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
		require.NoError(t, err)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusUnauthorized, get(""))
	require.Equal(t, http.StatusUnauthorized, get("Bearer not.a.jwt"))
	require.Equal(t, http.StatusOK, get("Bearer "+tok))

	s.Revoke(u.ID)
	require.Equal(t, http.StatusUnauthorized, get("Bearer "+tok))
}

func TestRejectNextAppliesOnce(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	s.RejectNext(PathSignup, http.StatusServiceUnavailable, `{"message":"Down for maintenance"}`)

	resp := postJSON(t, ts.URL+"/api/auth/signup", map[string]string{"username": "c", "email": "c@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/auth/signup", map[string]string{"username": "c", "email": "c@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestLoginThrottleAfterRepeatedFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, ts := newTestServer(t, Config{Throttle: &ThrottleConfig{
		Redis:       rdb,
		MaxAttempts: 2,
		Cooldown:    time.Minute,
	}})
	_, err := s.AddUser("alice", "alice@example.com", "Passw0rd!", "User")
	require.NoError(t, err)

	login := func(password string) *http.Response {
		return postJSON(t, ts.URL+"/api/auth/login", map[string]string{"email": "alice@example.com", "password": password})
	}

	require.Equal(t, http.StatusUnauthorized, login("nope").StatusCode)
	require.Equal(t, http.StatusUnauthorized, login("nope").StatusCode)
	require.True(t, mr.Exists("authstub:login:alice@example.com"))

	resp := login("Passw0rd!")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, MsgThrottled, body["message"])

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, login("Passw0rd!").StatusCode)
	require.False(t, mr.Exists("authstub:login:alice@example.com"))
}

func TestThrottleConfigValidation(t *testing.T) {
	_, err := New(Config{Secret: []byte("s"), Throttle: &ThrottleConfig{MaxAttempts: 1, Cooldown: time.Second}})
	require.Error(t, err)
}

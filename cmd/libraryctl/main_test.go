package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/authstub"
	"github.com/stretchr/testify/require"
)

func newStub(t *testing.T) (*authstub.Server, string) {
	t.Helper()
	stub, err := authstub.New(authstub.Config{Secret: []byte("libraryctl-test-secret-012345678"), TokenTTL: time.Hour})
	require.NoError(t, err)
	srv := httptest.NewServer(stub.Handler("/api"))
	t.Cleanup(srv.Close)
	return stub, srv.URL + "/api"
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestSessionPersistsAcrossInvocations(t *testing.T) {
	t.Setenv("LIBRARYCTL_PASSWORD", "")
	stub, base := newStub(t)
	_, err := stub.AddUser("reader", "reader@example.com", "Passw0rd!", "User")
	require.NoError(t, err)

	common := []string{"--base-url", base, "--store", "file", "--store-path", filepath.Join(t.TempDir(), "session.json")}
	with := func(extra ...string) []string { return append(append([]string(nil), common...), extra...) }

	out, _, err := runCLI(t, with("status")...)
	require.NoError(t, err)
	require.Equal(t, "Not signed in.\n", out)

	out, _, err = runCLI(t, with("--email", "reader@example.com", "--password", "Passw0rd!", "login")...)
	require.NoError(t, err)
	require.Equal(t, "Signed in as reader (User)\n", out)

	out, _, err = runCLI(t, with("status")...)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as reader; session expires in")

	out, _, err = runCLI(t, with("whoami")...)
	require.NoError(t, err)
	require.Contains(t, out, `"email": "reader@example.com"`)

	out, _, err = runCLI(t, with("logout")...)
	require.NoError(t, err)
	require.Equal(t, "Signed out.\n", out)

	_, _, err = runCLI(t, with("whoami")...)
	require.EqualError(t, err, "not signed in")
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	_, base := newStub(t)

	_, _, err := runCLI(t, "--base-url", base, "--store", "memory", "--email", "nobody@example.com", "--password", "x", "login")
	require.EqualError(t, err, "Invalid email or password.")
}

func TestSignupValidatesLocally(t *testing.T) {
	stub, base := newStub(t)

	_, _, err := runCLI(t, "--base-url", base, "--store", "memory",
		"--username", "new", "--email", "new@example.com", "--password", "short", "signup")
	require.Error(t, err)
	require.Zero(t, stub.Calls(authstub.PathSignup))

	out, _, err := runCLI(t, "--base-url", base, "--store", "memory",
		"--username", "new", "--email", "new@example.com", "--password", "Passw0rd!", "signup")
	require.NoError(t, err)
	require.Equal(t, "Account created for new. You can now sign in.\n", out)
}

func TestMemoryRedisStore(t *testing.T) {
	stub, base := newStub(t)
	_, err := stub.AddUser("reader", "reader@example.com", "Passw0rd!", "User")
	require.NoError(t, err)

	out, _, err := runCLI(t, "--base-url", base, "--store", "memory-redis",
		"--email", "reader@example.com", "--password", "Passw0rd!", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as reader")
}

func TestUnknownCommand(t *testing.T) {
	_, base := newStub(t)
	_, _, err := runCLI(t, "--base-url", base, "--store", "memory", "borrow")
	require.EqualError(t, err, `unknown command "borrow"`)
}

func TestHelp(t *testing.T) {
	_, stderr, err := runCLI(t)
	require.NoError(t, err)
	require.Contains(t, stderr, "Usage:")
}

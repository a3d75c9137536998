package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peorobertsson/vira/internal/vira"
)

// isolate runs the test in an empty directory with no user config and no
// VIRA_* variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	for _, key := range []string{"VIRA_CONFIG", "VIRA_URL", "VIRA_USER", "VIRA_PASSWORD", "VIRA_TOKEN",
		"VIRA_HTTP_TIMEOUT", "VIRA_FIELDS_MULTI_VALUE", "VIRA_EPIC_LINK_STRATEGY", "VIRA_CREATE_COMMENT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Cleanup(ResetForTesting)
	return dir
}

func TestInitializeDefaults(t *testing.T) {
	isolate(t)
	require.NoError(t, Initialize())

	assert.Equal(t, DefaultURL, GetString("url"))
	assert.Equal(t, "", ConfigFileUsed())
	assert.Equal(t, SourceDefault, GetValueSource("url"))

	h := HTTP()
	assert.Equal(t, 30*time.Second, h.Timeout)
	assert.Equal(t, 10.0, h.RateLimit)
	assert.Equal(t, 5, h.RateBurst)
	assert.Equal(t, 30*time.Second, h.MaxRetryElapsed)

	f := Fields()
	assert.Equal(t, "customfield_10704", f.FeatureName)
	assert.Equal(t, "customfield_13801", f.CapabilityLink)
	assert.Equal(t, []string{"labels"}, f.MultiValue)
	assert.Contains(t, f.NotCopyable, "status")
	assert.Contains(t, f.NotCopyable, "fixVersions")

	assert.Equal(t, "This issue was created by vira 1.2.3", CreateComment("1.2.3"))
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VIRA_USER", "bob")
	t.Setenv("VIRA_HTTP_TIMEOUT", "5s")
	t.Setenv("VIRA_FIELDS_MULTI_VALUE", "labels,components")
	t.Setenv("VIRA_EPIC_LINK_STRATEGY", "field")
	require.NoError(t, Initialize())

	assert.Equal(t, "bob", GetString("user"))
	assert.Equal(t, SourceEnvVar, GetValueSource("user"))
	assert.Equal(t, 5*time.Second, HTTP().Timeout)
	assert.Equal(t, []string{"labels", "components"}, Fields().MultiValue)

	linker, err := EpicLinker()
	require.NoError(t, err)
	assert.Equal(t, vira.FieldEpicLinker{Field: "customfield_10101"}, linker)
}

func TestProjectConfigFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".vira"), 0700))
	content := "url: https://jira.example.com\nuser: carol\nhttp:\n  rate-burst: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vira", "config.yaml"), []byte(content), 0600))

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0700))
	chdir(t, sub)

	require.NoError(t, Initialize())
	assert.Equal(t, "https://jira.example.com", GetString("url"))
	assert.Equal(t, "carol", GetString("user"))
	assert.Equal(t, 2, HTTP().RateBurst)
	assert.Equal(t, SourceConfigFile, GetValueSource("user"))
	assert.Contains(t, ConfigFileUsed(), filepath.Join(".vira", "config.yaml"))
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, Initialize())

	path := filepath.Join(dir, "out", "config.yaml")
	f := StarterFile(Session{URL: "https://jira.example.com", User: "dave", Password: "secret"})
	require.NoError(t, WriteFile(path, f, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "epic-link:")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	err = WriteFile(path, f, false)
	assert.Error(t, err, "existing file must not be replaced")
	assert.NoError(t, WriteFile(path, f, true))

	ResetForTesting()
	t.Setenv("VIRA_CONFIG", path)
	require.NoError(t, Initialize())
	assert.Equal(t, "dave", GetString("user"))
	assert.Equal(t, "https://jira.example.com", GetString("url"))
	assert.Equal(t, 30*time.Second, HTTP().Timeout)
	assert.Equal(t, Fields().NotCopyable, f.Fields.NotCopyable)
}

func TestKeys(t *testing.T) {
	isolate(t)
	require.NoError(t, Initialize())

	keys := Keys()
	assert.Contains(t, keys, "url")
	assert.Contains(t, keys, "fields.not-copyable")
	assert.Contains(t, keys, "http.max-retry-elapsed")
	assert.IsIncreasing(t, keys)
	assert.True(t, IsSecretKey("token"))
	assert.False(t, IsSecretKey("user"))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "VIRA_URL", EnvVar("url"))
	assert.Equal(t, "VIRA_HTTP_MAX_RETRY_ELAPSED", EnvVar("http.max-retry-elapsed"))
}

type fakePrompter struct {
	user, password string
	err            error
	calls          []string
}

func (p *fakePrompter) Prompt(label string) (string, error) {
	p.calls = append(p.calls, label)
	return p.user, p.err
}

func (p *fakePrompter) PromptPassword(label string) (string, error) {
	p.calls = append(p.calls, label)
	return p.password, p.err
}

func TestResolveSession(t *testing.T) {
	t.Run("flags win over env", func(t *testing.T) {
		isolate(t)
		t.Setenv("VIRA_USER", "env-user")
		t.Setenv("VIRA_PASSWORD", "env-pass")
		require.NoError(t, Initialize())

		s, err := ResolveSession(Session{User: "flag-user"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "flag-user", s.User)
		assert.Equal(t, "env-pass", s.Password)
		assert.Equal(t, DefaultURL, s.URL)
		assert.False(t, s.UsesToken())
	})

	t.Run("token needs no prompt", func(t *testing.T) {
		isolate(t)
		t.Setenv("VIRA_TOKEN", "pat")
		require.NoError(t, Initialize())

		p := &fakePrompter{}
		s, err := ResolveSession(Session{URL: "https://jira.example.com/"}, p)
		require.NoError(t, err)
		assert.True(t, s.UsesToken())
		assert.Equal(t, "https://jira.example.com", s.URL)
		assert.Empty(t, p.calls)
	})

	t.Run("prompts for missing credentials", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Initialize())

		p := &fakePrompter{user: " erin ", password: "pw"}
		s, err := ResolveSession(Session{}, p)
		require.NoError(t, err)
		assert.Equal(t, "erin", s.User)
		assert.Equal(t, "pw", s.Password)
		assert.Equal(t, []string{"Username", "Password for erin"}, p.calls)
		assert.Empty(t, os.Getenv("VIRA_USER"), "credentials are not written to the environment")
	})

	t.Run("no prompter", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Initialize())

		_, err := ResolveSession(Session{}, nil)
		assert.True(t, errors.Is(err, ErrNoCredentials))
	})

	t.Run("prompt aborted", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Initialize())

		_, err := ResolveSession(Session{}, &fakePrompter{err: errors.New("aborted")})
		assert.Error(t, err)
	})

	t.Run("invalid url", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Initialize())

		_, err := ResolveSession(Session{URL: "not a url", Token: "x"}, nil)
		assert.Error(t, err)
	})
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

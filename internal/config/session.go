package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Session holds the connection target and credentials for one run. It is
// resolved once and then passed explicitly; nothing is written back to the
// process environment.
type Session struct {
	URL      string
	User     string
	Password string
	Token    string
}

// UsesToken reports whether the session authenticates with a personal access token.
func (s Session) UsesToken() bool { return s.Token != "" }

// Prompter asks the user for missing credentials.
type Prompter interface {
	Prompt(label string) (string, error)
	PromptPassword(label string) (string, error)
}

// ErrNoCredentials is returned when credentials are missing and cannot be prompted for.
var ErrNoCredentials = errors.New("no credentials: set a token, or user and password")

// ResolveSession fills each field from, in order: flags, then the
// environment or config file, then the prompter. A token makes user and
// password unnecessary. p may be nil when prompting is not possible.
func ResolveSession(flags Session, p Prompter) (Session, error) {
	s := Session{
		URL:      firstNonEmpty(flags.URL, GetString("url")),
		User:     firstNonEmpty(flags.User, GetString("user")),
		Password: firstNonEmpty(flags.Password, GetString("password")),
		Token:    firstNonEmpty(flags.Token, GetString("token")),
	}

	s.URL = strings.TrimSuffix(strings.TrimSpace(s.URL), "/")
	if s.URL == "" {
		return Session{}, fmt.Errorf("no tracker URL configured (set --url or %s)", EnvVar("url"))
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Session{}, fmt.Errorf("invalid tracker URL %q", s.URL)
	}

	if s.UsesToken() {
		return s, nil
	}

	if s.User == "" {
		if p == nil {
			return Session{}, ErrNoCredentials
		}
		if s.User, err = p.Prompt("Username"); err != nil {
			return Session{}, fmt.Errorf("read username: %w", err)
		}
		if s.User = strings.TrimSpace(s.User); s.User == "" {
			return Session{}, ErrNoCredentials
		}
	}
	if s.Password == "" {
		if p == nil {
			return Session{}, ErrNoCredentials
		}
		if s.Password, err = p.PromptPassword("Password for " + s.User); err != nil {
			return Session{}, fmt.Errorf("read password: %w", err)
		}
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

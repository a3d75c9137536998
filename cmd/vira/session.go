package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peorobertsson/vira/internal/config"
	"github.com/peorobertsson/vira/internal/jira"
	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

// terminalPrompter asks for credentials on the controlling terminal.
type terminalPrompter struct{}

func (terminalPrompter) Prompt(label string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(label).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		}).
		Run()
	return value, err
}

func (terminalPrompter) PromptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sessionFlags returns the credentials given on the command line.
func sessionFlags() config.Session {
	return config.Session{
		URL:      urlFlag,
		User:     userFlag,
		Password: passwordFlag,
		Token:    tokenFlag,
	}
}

// openStore resolves the session, connects to Jira and checks that the
// credentials are accepted.
func openStore(ctx context.Context) (vira.Store, config.Session, error) {
	var p config.Prompter
	if ui.IsInputTerminal() {
		p = terminalPrompter{}
	}
	s, err := config.ResolveSession(sessionFlags(), p)
	if err != nil {
		return nil, config.Session{}, err
	}

	h := config.HTTP()
	client := jira.NewClient(s.URL, s.User, s.Password, s.Token,
		jira.WithTimeout(h.Timeout),
		jira.WithRateLimit(h.RateLimit, h.RateBurst),
		jira.WithMaxRetryElapsed(h.MaxRetryElapsed),
	)
	if err := vira.CheckConnection(ctx, client, s.URL); err != nil {
		return nil, config.Session{}, err
	}
	logger.Debug("connected", "url", s.URL, "token", s.UsesToken())
	return vira.WrapStore(client), s, nil
}

// newCopier builds a Copier from the configuration for store.
func newCopier(store vira.Store, replacer *vira.Replacer) (*vira.Copier, error) {
	linker, err := config.EpicLinker()
	if err != nil {
		return nil, err
	}
	fields := config.Fields()
	return vira.NewCopier(store, vira.Options{
		Replacer:      replacer,
		CreateComment: config.CreateComment(Version),
		DryRun:        dryRunFlag,
		Fields:        &fields,
		EpicLinker:    linker,
		Logger:        logger,
	}), nil
}

// session is the resolved session of the current command.
var session config.Session

// mustOpen opens the store or exits.
func mustOpen() vira.Store {
	store, s, err := openStore(rootCtx)
	if err != nil {
		if errors.Is(err, config.ErrNoCredentials) {
			shutdown()
			FatalErrorWithHint(err.Error(), "pass --token, or --user and --password, or set "+config.EnvVar("token"))
		}
		fail(err)
	}
	session = s
	return store
}

func jiraBrowseURL(key string) string {
	return jira.BrowseURL(session.URL, key)
}

// getIssue fetches key or exits.
func getIssue(repo *vira.Repository, key string) *vira.Issue {
	issue, err := repo.GetIssue(rootCtx, jira.NormalizeKey(key))
	if err != nil {
		fail(err)
	}
	return issue
}

// issueKeyArgs accepts exactly n issue keys or browse URLs.
func issueKeyArgs(n int) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return err
		}
		for _, a := range args {
			if !jira.IsIssueKey(jira.NormalizeKey(a)) {
				return fmt.Errorf("%q is not an issue key", a)
			}
		}
		return nil
	}
}

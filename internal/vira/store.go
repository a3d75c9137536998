package vira

import (
	"context"
	"io"
	"log/slog"

	"github.com/peorobertsson/vira/internal/jira"
)

// Store is the remote issue tracker. *jira.Client satisfies it.
type Store interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	CreateIssue(ctx context.Context, fields map[string]interface{}) (*jira.Issue, error)
	UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error
	AddComment(ctx context.Context, key, body string) error
	AddIssuesToEpic(ctx context.Context, epicID string, keys ...string) error
}

var _ Store = (*jira.Client)(nil)

// Repository wraps a Store and hands out Issues bound to it.
type Repository struct {
	store Store
	log   *slog.Logger
}

// NewRepository creates a Repository. A nil logger discards log output.
func NewRepository(store Store, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{store: store, log: log}
}

// Store returns the underlying store.
func (r *Repository) Store() Store { return r.store }

// GetIssue fetches an issue by key.
func (r *Repository) GetIssue(ctx context.Context, key string) (*Issue, error) {
	raw, err := r.store.GetIssue(ctx, key)
	if err != nil {
		if jira.IsNotFound(err) {
			return nil, wrapError(KindNotFound, err, "issue %s not found", key)
		}
		return nil, wrapError(KindRemote, err, "failed to get issue %s", key)
	}
	return r.Wrap(raw), nil
}

// Search runs a JQL query and returns the matches in server order.
func (r *Repository) Search(ctx context.Context, jql string) ([]*Issue, error) {
	raws, err := r.store.SearchIssues(ctx, jql)
	if err != nil {
		return nil, wrapError(KindRemote, err, "search failed: %s", jql)
	}
	issues := make([]*Issue, 0, len(raws))
	for i := range raws {
		issues = append(issues, r.Wrap(&raws[i]))
	}
	return issues, nil
}

// Wrap returns the Issue view of an issue fetched from the store.
func (r *Repository) Wrap(raw *jira.Issue) *Issue {
	return &Issue{raw: raw, repo: r}
}

// Pinger can verify that the tracker accepts its credentials.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckConnection pings the tracker at url and reports a failure as a
// KindConnection error.
func CheckConnection(ctx context.Context, p Pinger, url string) error {
	if err := p.Ping(ctx); err != nil {
		return wrapError(KindConnection, err, "could not connect to %s", url)
	}
	return nil
}

package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL        string
	Username   string
	Password   string
	Token      string // Personal Access Token; takes precedence over Username/Password
	HTTPClient *http.Client

	limiter         *rate.Limiter
	maxRetryElapsed time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests at rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxRetryElapsed bounds the total time spent retrying one request.
// Zero disables retries.
func WithMaxRetryElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxRetryElapsed = d }
}

// NewClient creates a new Jira client. When token is non-empty it is sent as
// a bearer token; otherwise username and password are used for basic auth.
func NewClient(baseURL, username, password, token string, opts ...Option) *Client {
	c := &Client{
		URL:      strings.TrimSuffix(baseURL, "/"),
		Username: username,
		Password: password,
		Token:    token,
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:         rate.NewLimiter(rate.Limit(10), 5),
		maxRetryElapsed: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// issueFields requests every field together with names and schema, which the
// copy logic needs to interpret custom fields.
const issueFields = "*all"

const issueExpand = "names,schema"

// GetIssue fetches a single Jira issue by key (e.g., "PROJ-123").
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	params := url.Values{
		"fields": {issueFields},
		"expand": {issueExpand},
	}
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s?%s", c.URL, url.PathEscape(key), params.Encode())

	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}

	return &issue, nil
}

// SearchIssues queries Jira using JQL and returns all matching issues in the
// order the server returns them, handling pagination.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var allIssues []Issue
	startAt := 0

	for {
		params := url.Values{
			"jql":        {jql},
			"fields":     {issueFields},
			"expand":     {issueExpand},
			"startAt":    {fmt.Sprintf("%d", startAt)},
			"maxResults": {fmt.Sprintf("%d", MaxPageSize)},
		}

		apiURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.URL, params.Encode())

		body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}

		var result SearchResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parse search response: %w", err)
		}

		for i := range result.Issues {
			if result.Issues[i].Schema == nil {
				result.Issues[i].Schema = result.Schema
			}
			if result.Issues[i].Names == nil {
				result.Issues[i].Names = result.Names
			}
		}
		allIssues = append(allIssues, result.Issues...)

		if len(result.Issues) == 0 || startAt+len(result.Issues) >= result.Total {
			break
		}
		startAt += len(result.Issues)
	}

	return allIssues, nil
}

// CreateIssue creates a new issue in Jira and returns it as fetched after
// creation. fields must include at least "project", "summary" and "issuetype".
func (c *Client) CreateIssue(ctx context.Context, fields map[string]interface{}) (*Issue, error) {
	payload := map[string]interface{}{"fields": fields}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue", c.URL)

	body, err := c.doRequest(ctx, http.MethodPost, apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	// Create response only returns id, key, self. Fetch the full issue.
	var created CreateIssueResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}

	return c.GetIssue(ctx, created.Key)
}

// UpdateIssue updates an existing Jira issue by key.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	payload := map[string]interface{}{"fields": fields}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s", c.URL, url.PathEscape(key))

	if _, err := c.doRequest(ctx, http.MethodPut, apiURL, data); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}

	return nil
}

// AddComment adds a plain-text comment to an issue.
func (c *Client) AddComment(ctx context.Context, key, text string) error {
	data, err := json.Marshal(map[string]string{"body": text})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.URL, url.PathEscape(key))

	if _, err := c.doRequest(ctx, http.MethodPost, apiURL, data); err != nil {
		return fmt.Errorf("add comment to %s: %w", key, err)
	}
	return nil
}

// AddIssuesToEpic moves issues into an epic using the Jira Agile API.
//
// This endpoint is not available for next-gen (team-managed) projects; use a
// field-based epic link there instead.
func (c *Client) AddIssuesToEpic(ctx context.Context, epicID string, keys ...string) error {
	data, err := json.Marshal(map[string][]string{"issues": keys})
	if err != nil {
		return fmt.Errorf("marshal epic request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/agile/1.0/epic/%s/issue", c.URL, url.PathEscape(epicID))

	if _, err := c.doRequest(ctx, http.MethodPost, apiURL, data); err != nil {
		return fmt.Errorf("add %s to epic %s: %w", strings.Join(keys, ","), epicID, err)
	}
	return nil
}

// Ping verifies that the server is reachable and the credentials are accepted.
//
// It runs a deliberately invalid search: a 400 means the query was rejected
// after authentication succeeded, which is good enough.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{"jql": {"issue=ANYTHNG"}, "maxResults": {"1"}}
	apiURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.URL, params.Encode())

	_, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return nil
	}
	return err
}

// doRequest executes an authenticated HTTP request, retrying transient
// failures, and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.Token == "" && c.Username == "" {
		return nil, fmt.Errorf("jira credentials not configured")
	}

	var respBody []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		b, err := c.doOnce(ctx, method, apiURL, body)
		if err != nil {
			if isRetryable(method, err) {
				return err
			}
			return backoff.Permanent(err)
		}
		respBody = b
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackoff(), ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) newBackoff() backoff.BackOff {
	if c.maxRetryElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetryElapsed
	return bo
}

func (c *Client) doOnce(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vira/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// PUT returns 204 No Content on success
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       req.URL.Path,
			Body:       string(respBody),
		}
	}

	return respBody, nil
}

// setAuth sets the appropriate authentication header on the request.
func (c *Client) setAuth(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
		return
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	req.Header.Set("Authorization", "Basic "+auth)
}

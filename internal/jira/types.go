// Package jira provides a REST client for Jira Server and Data Center instances.
package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// API constants
const (
	DefaultTimeout = 30 * time.Second
	MaxPageSize    = 100
)

// Issue represents a Jira issue from the REST API.
//
// Fields is kept as an open bag of raw JSON values because copying an issue
// needs every field the server returns, including custom fields this package
// knows nothing about. Schema describes each field and is populated when the
// issue is fetched with expand=schema.
type Issue struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"` // e.g., "PROJ-123"
	Self   string                     `json:"self"`
	Fields map[string]json.RawMessage `json:"fields"`
	Names  map[string]string          `json:"names,omitempty"`
	Schema map[string]FieldSchema     `json:"schema,omitempty"`
}

// FieldSchema is the type description Jira returns for a field.
type FieldSchema struct {
	Type     string `json:"type"`
	Items    string `json:"items,omitempty"`
	System   string `json:"system,omitempty"`
	Custom   string `json:"custom,omitempty"`
	CustomID int    `json:"customId,omitempty"`
}

// IssueType represents a Jira issue type.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// SearchResponse is the response from the JQL search endpoint.
// Names and Schema are returned once per page rather than per issue.
type SearchResponse struct {
	StartAt    int                    `json:"startAt"`
	MaxResults int                    `json:"maxResults"`
	Total      int                    `json:"total"`
	Issues     []Issue                `json:"issues"`
	Names      map[string]string      `json:"names,omitempty"`
	Schema     map[string]FieldSchema `json:"schema,omitempty"`
}

// CreateIssueResponse is the response from creating an issue.
type CreateIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Field decodes a single field into v. A missing or null field leaves v
// untouched and reports false.
func (i *Issue) Field(name string, v interface{}) (bool, error) {
	raw, ok := i.Fields[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode field %s of %s: %w", name, i.Key, err)
	}
	return true, nil
}

// Summary returns the summary field, or "" when absent.
func (i *Issue) Summary() string {
	var s string
	_, _ = i.Field("summary", &s)
	return s
}

// Type returns the issue type, or a zero IssueType when absent.
func (i *Issue) Type() IssueType {
	var t IssueType
	_, _ = i.Field("issuetype", &t)
	return t
}

// DecodeFields decodes every field into generic Go values. Numbers are kept
// as json.Number so that integer ids survive a round trip unchanged.
func (i *Issue) DecodeFields() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(i.Fields))
	for name, raw := range i.Fields {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode field %s of %s: %w", name, i.Key, err)
		}
		out[name] = v
	}
	return out, nil
}

package vira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/peorobertsson/vira/internal/jira"
)

var typeIDs = map[string]string{
	CapabilityTypeName: "10",
	FeatureTypeName:    "11",
	StoryTypeName:      "12",
	SubtaskTypeName:    "13",
	TaskTypeName:       "14",
}

var testSchema = map[string]jira.FieldSchema{
	"summary":           {Type: "string", System: "summary"},
	"description":       {Type: "string", System: "description"},
	"issuetype":         {Type: "issuetype", System: "issuetype"},
	"project":           {Type: "project", System: "project"},
	"status":            {Type: "status", System: "status"},
	"priority":          {Type: "priority", System: "priority"},
	"reporter":          {Type: "user", System: "reporter"},
	"assignee":          {Type: "user", System: "assignee"},
	"labels":            {Type: "array", Items: "string", System: "labels"},
	"components":        {Type: "array", Items: "component", System: "components"},
	"fixVersions":       {Type: "array", Items: "version", System: "fixVersions"},
	"created":           {Type: "datetime", System: "created"},
	"watches":           {Type: "watches", System: "watches"},
	"parent":            {Type: "issuelink", System: "parent"},
	"customfield_13802": {Type: "date", Custom: "com.atlassian.jira.plugin.system.customfieldtypes:datepicker"},
	"customfield_20000": {Type: "array", Items: "string", Custom: "team"},
}

// fakeRecord is one issue held by fakeStore.
type fakeRecord struct {
	ID       string
	Key      string
	Type     string
	Fields   map[string]interface{}
	seq      int
	capLink  string // "is parent of" link from a Capability
	epic     string // "is epic of" link from a Feature
	parent   string // native parent (sub-tasks)
	comments []string
}

// fakeStore is an in-memory Store with call counters.
type fakeStore struct {
	t       *testing.T
	project string
	records map[string]*fakeRecord
	byID    map[string]*fakeRecord
	seq     int
	nextNum int

	gets, searches, creates, updates, comments, epicLinks int

	createFields []map[string]interface{}
	failCreateAt int // 1-based create call to fail, 0 for never
}

func newFakeStore(t *testing.T) *fakeStore {
	return &fakeStore{
		t:       t,
		project: "SOLSWEP",
		records: map[string]*fakeRecord{},
		byID:    map[string]*fakeRecord{},
		nextNum: 5000,
	}
}

func (s *fakeStore) mutations() int {
	return s.creates + s.updates + s.comments + s.epicLinks
}

// add seeds an issue with a typical set of fields.
func (s *fakeStore) add(key, typeName, summary string) *fakeRecord {
	s.seq++
	id := fmt.Sprintf("%d", 100000+s.seq)
	r := &fakeRecord{
		ID:   id,
		Key:  key,
		Type: typeName,
		seq:  s.seq,
		Fields: map[string]interface{}{
			"summary":     summary,
			"description": "Description of " + key,
			"issuetype":   map[string]interface{}{"id": typeIDs[typeName], "name": typeName, "self": "x"},
			"project":     map[string]interface{}{"id": "1", "key": s.project, "name": "Sweep"},
			"status":      map[string]interface{}{"id": "3", "name": "In Progress"},
			"priority":    map[string]interface{}{"id": "2", "name": "High", "iconUrl": "x"},
			"reporter":    map[string]interface{}{"name": "alice", "displayName": "Alice"},
			"labels":      []interface{}{"template"},
			"created":     "2024-01-15T10:30:00.000+0000",
			"watches":     map[string]interface{}{"watchCount": 1},
		},
	}
	s.records[key] = r
	s.byID[id] = r
	return r
}

// link places child under parent using the relation its type implies.
func (s *fakeStore) link(parent, child *fakeRecord) {
	switch child.Type {
	case FeatureTypeName:
		child.capLink = parent.Key
	case StoryTypeName, TaskTypeName:
		child.epic = parent.Key
	case SubtaskTypeName:
		child.parent = parent.Key
		child.Fields["parent"] = map[string]interface{}{"id": parent.ID, "key": parent.Key}
	}
}

func (s *fakeStore) toJira(r *fakeRecord) *jira.Issue {
	fields := make(map[string]json.RawMessage, len(r.Fields))
	for k, v := range r.Fields {
		b, err := json.Marshal(v)
		if err != nil {
			s.t.Fatalf("marshal field %s: %v", k, err)
		}
		fields[k] = b
	}
	return &jira.Issue{ID: r.ID, Key: r.Key, Fields: fields, Schema: testSchema}
}

func (s *fakeStore) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	s.gets++
	r, ok := s.records[key]
	if !ok {
		return nil, &jira.APIError{StatusCode: http.StatusNotFound, Method: http.MethodGet, Path: "/rest/api/2/issue/" + key}
	}
	return s.toJira(r), nil
}

var (
	linkedJQL = regexp.MustCompile(`^issueFunction in linkedIssuesOf\("issue=([^"]+)", "(is parent of|is epic of)"\) ORDER BY Rank$`)
	parentJQL = regexp.MustCompile(`^parent=(\S+) ORDER BY Rank$`)
)

func (s *fakeStore) SearchIssues(_ context.Context, jql string) ([]jira.Issue, error) {
	s.searches++
	var match func(*fakeRecord) bool
	if m := linkedJQL.FindStringSubmatch(jql); m != nil {
		key, rel := m[1], m[2]
		if rel == "is parent of" {
			match = func(r *fakeRecord) bool { return r.capLink == key }
		} else {
			match = func(r *fakeRecord) bool { return r.epic == key }
		}
	} else if m := parentJQL.FindStringSubmatch(jql); m != nil {
		key := m[1]
		match = func(r *fakeRecord) bool { return r.parent == key && r.Type == SubtaskTypeName }
	} else {
		return nil, &jira.APIError{StatusCode: http.StatusBadRequest, Body: "unsupported jql: " + jql}
	}

	var found []*fakeRecord
	for _, r := range s.records {
		if match(r) {
			found = append(found, r)
		}
	}
	// Rank follows creation order.
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]jira.Issue, 0, len(found))
	for _, r := range found {
		out = append(out, *s.toJira(r))
	}
	return out, nil
}

func (s *fakeStore) CreateIssue(_ context.Context, fields map[string]interface{}) (*jira.Issue, error) {
	s.creates++
	if s.failCreateAt != 0 && s.creates == s.failCreateAt {
		return nil, &jira.APIError{StatusCode: http.StatusInternalServerError, Method: http.MethodPost, Body: "boom"}
	}
	s.createFields = append(s.createFields, fields)

	it, _ := fields["issuetype"].(map[string]interface{})
	typeName := ""
	for name, id := range typeIDs {
		if it != nil && it["id"] == id {
			typeName = name
		}
	}
	if typeName == "" {
		s.t.Errorf("create without a known issuetype id: %v", fields["issuetype"])
	}
	summary, _ := fields["summary"].(string)

	s.nextNum++
	r := s.add(fmt.Sprintf("%s-%d", s.project, s.nextNum), typeName, summary)
	for k, v := range fields {
		if k == "issuetype" || k == "parent" {
			continue
		}
		r.Fields[k] = v
	}
	if p, ok := fields["parent"].(map[string]interface{}); ok {
		key, _ := p["key"].(string)
		if _, ok := s.records[key]; !ok {
			return nil, &jira.APIError{StatusCode: http.StatusBadRequest, Body: "parent does not exist: " + key}
		}
		s.link(s.records[key], r)
	}
	return s.toJira(r), nil
}

func (s *fakeStore) UpdateIssue(_ context.Context, key string, fields map[string]interface{}) error {
	s.updates++
	r, ok := s.records[key]
	if !ok {
		return &jira.APIError{StatusCode: http.StatusNotFound, Method: http.MethodPut}
	}
	for k, v := range fields {
		switch {
		case k == "parent":
			p, _ := v.(map[string]interface{})
			id, _ := p["id"].(string)
			parent, ok := s.byID[id]
			if !ok {
				return &jira.APIError{StatusCode: http.StatusBadRequest, Body: "unknown parent id " + id}
			}
			if r.Type == SubtaskTypeName {
				s.link(parent, r)
			}
		case k == DefaultFieldConfig().CapabilityLink:
			capKey, _ := v.(string)
			r.capLink = capKey
		case strings.HasPrefix(k, "customfield_"):
			r.Fields[k] = v
			if epicKey, ok := v.(string); ok && k == "customfield_10101" {
				r.epic = epicKey
			}
		default:
			r.Fields[k] = v
		}
	}
	return nil
}

func (s *fakeStore) AddComment(_ context.Context, key, body string) error {
	s.comments++
	r, ok := s.records[key]
	if !ok {
		return &jira.APIError{StatusCode: http.StatusNotFound}
	}
	r.comments = append(r.comments, body)
	return nil
}

func (s *fakeStore) AddIssuesToEpic(_ context.Context, epicID string, keys ...string) error {
	s.epicLinks++
	epic, ok := s.byID[epicID]
	if !ok {
		return &jira.APIError{StatusCode: http.StatusNotFound, Body: "no epic " + epicID}
	}
	for _, k := range keys {
		r, ok := s.records[k]
		if !ok {
			return &jira.APIError{StatusCode: http.StatusBadRequest, Body: "no issue " + k}
		}
		r.epic = epic.Key
	}
	return nil
}

// issue returns a repository-bound Issue for a seeded key.
func (s *fakeStore) issue(repo *Repository, key string) *Issue {
	s.t.Helper()
	r, ok := s.records[key]
	if !ok {
		s.t.Fatalf("no seeded issue %s", key)
	}
	return repo.Wrap(s.toJira(r))
}

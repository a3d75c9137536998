package vira

import (
	"context"
	"fmt"

	"github.com/peorobertsson/vira/internal/jira"
)

// Child queries. %s is the issue key.
const (
	capabilityChildrenJQL = `issueFunction in linkedIssuesOf("issue=%s", "is parent of") ORDER BY Rank`
	featureChildrenJQL    = `issueFunction in linkedIssuesOf("issue=%s", "is epic of") ORDER BY Rank`
	subtaskChildrenJQL    = `parent=%s ORDER BY Rank`
)

// Issue is a read-through view of a tracker issue. Nothing is cached except
// the fields fetched with the issue itself; Children queries the store on
// every call.
type Issue struct {
	raw  *jira.Issue
	repo *Repository
}

// Key returns the issue key, e.g. "PROJ-123".
func (i *Issue) Key() string { return i.raw.Key }

// ID returns the internal numeric id as a string.
func (i *Issue) ID() string { return i.raw.ID }

// Summary returns the summary field.
func (i *Issue) Summary() string { return i.raw.Summary() }

// TypeName returns the tracker issue type name.
func (i *Issue) TypeName() string { return i.raw.Type().Name }

// Type returns the hierarchy level of the issue.
func (i *Issue) Type() IssueType { return ParseIssueType(i.TypeName()) }

// Raw returns the underlying tracker issue.
func (i *Issue) Raw() *jira.Issue { return i.raw }

func (i *Issue) IsCapability() bool { return i.Type() == TypeCapability }
func (i *Issue) IsFeature() bool    { return i.Type() == TypeFeature }
func (i *Issue) IsStory() bool      { return i.Type() == TypeStory }
func (i *Issue) IsSubtask() bool    { return i.Type() == TypeSubtask }

// ShortString formats the issue as: Type KEY "summary".
func (i *Issue) ShortString() string {
	if i == nil || i.raw == nil {
		return "<None>"
	}
	return fmt.Sprintf("%s %s %q", i.TypeName(), i.Key(), i.Summary())
}

// IndentString is the indentation for listing the issue under its ancestors.
func (i *Issue) IndentString() string { return i.Type().Indent() }

func (i *Issue) String() string {
	return i.Key() + " " + i.TypeName()
}

// Children returns the direct children of the issue: link-derived children
// in rank order, followed by sub-tasks in rank order. An issue of unknown
// type is logged and treated as having no children.
func (i *Issue) Children(ctx context.Context) ([]*Issue, error) {
	var children []*Issue
	switch i.Type() {
	case TypeCapability:
		linked, err := i.repo.Search(ctx, fmt.Sprintf(capabilityChildrenJQL, i.Key()))
		if err != nil {
			return nil, err
		}
		children = append(children, linked...)
	case TypeFeature:
		linked, err := i.repo.Search(ctx, fmt.Sprintf(featureChildrenJQL, i.Key()))
		if err != nil {
			return nil, err
		}
		children = append(children, linked...)
	case TypeStory:
	case TypeSubtask:
		return nil, nil
	default:
		i.repo.log.Warn("cannot list children of issue with unknown type",
			"key", i.Key(), "type", i.TypeName())
		return nil, nil
	}

	subtasks, err := i.repo.Search(ctx, fmt.Sprintf(subtaskChildrenJQL, i.Key()))
	if err != nil {
		return nil, err
	}
	return append(children, subtasks...), nil
}

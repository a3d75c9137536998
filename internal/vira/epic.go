package vira

import (
	"context"
	"fmt"
)

// EpicLinker attaches a Story to its Feature. Jira instances differ in how
// this is done, so the mechanism is pluggable.
type EpicLinker interface {
	LinkEpicChild(ctx context.Context, store Store, epic, child *Issue) error
}

// AgileEpicLinker uses the Jira Agile epic endpoint.
type AgileEpicLinker struct{}

func (AgileEpicLinker) LinkEpicChild(ctx context.Context, store Store, epic, child *Issue) error {
	return store.AddIssuesToEpic(ctx, epic.ID(), child.Key())
}

// FieldEpicLinker sets an epic-link custom field on the child to the epic key.
type FieldEpicLinker struct {
	Field string
}

func (l FieldEpicLinker) LinkEpicChild(ctx context.Context, store Store, epic, child *Issue) error {
	if l.Field == "" {
		return fmt.Errorf("epic link field not configured")
	}
	return store.UpdateIssue(ctx, child.Key(), map[string]interface{}{l.Field: epic.Key()})
}

// Epic-link strategy names accepted by NewEpicLinker.
const (
	EpicLinkAgile = "agile"
	EpicLinkField = "field"
)

// NewEpicLinker returns the linker for a strategy name.
func NewEpicLinker(strategy, field string) (EpicLinker, error) {
	switch strategy {
	case "", EpicLinkAgile:
		return AgileEpicLinker{}, nil
	case EpicLinkField:
		return FieldEpicLinker{Field: field}, nil
	default:
		return nil, fmt.Errorf("unknown epic-link strategy %q (want %q or %q)", strategy, EpicLinkAgile, EpicLinkField)
	}
}

package vira

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/peorobertsson/vira/internal/telemetry"
)

// Options configure a Copier for one invocation.
type Options struct {
	// Replacer is applied to the summary of every copied issue.
	Replacer *Replacer
	// CreateComment, if set, is added to every created issue.
	CreateComment string
	// DryRun logs what would be created without touching the tracker.
	DryRun bool
	// Fields overrides DefaultFieldConfig.
	Fields *FieldConfig
	// EpicLinker defaults to AgileEpicLinker.
	EpicLinker EpicLinker
	Logger     *slog.Logger
}

// Copier creates copies of issues and places them in the hierarchy.
type Copier struct {
	repo      *Repository
	opts      Options
	sanitizer *Sanitizer
	log       *slog.Logger
	created   int

	tracer  trace.Tracer
	counter metric.Int64Counter
}

// NewCopier creates a Copier that reads from and writes to store.
func NewCopier(store Store, opts Options) *Copier {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fields := DefaultFieldConfig()
	if opts.Fields != nil {
		fields = *opts.Fields
	}
	if opts.EpicLinker == nil {
		opts.EpicLinker = AgileEpicLinker{}
	}
	if opts.Replacer == nil {
		opts.Replacer = NewReplacer()
	}
	counter, _ := telemetry.Meter("").Int64Counter("vira.issues.created",
		metric.WithDescription("Issues created by copy operations"),
	)
	return &Copier{
		repo:      NewRepository(store, log),
		opts:      opts,
		sanitizer: NewSanitizer(fields, log),
		log:       log,
		tracer:    telemetry.Tracer(""),
		counter:   counter,
	}
}

// Repository returns the repository used to read issues.
func (c *Copier) Repository() *Repository { return c.repo }

// Created returns the number of issues created so far.
func (c *Copier) Created() int { return c.created }

// CopyIssue creates a copy of src and, when parent is non-nil, places the copy
// under parent. The hierarchy is checked before anything is written. In dry
// run mode nothing is written and the result is nil.
func (c *Copier) CopyIssue(ctx context.Context, src, parent *Issue) (*Issue, error) {
	ctx, span := c.tracer.Start(ctx, "vira.copy_issue",
		trace.WithAttributes(attribute.String("vira.source", src.Key())))
	defer span.End()

	issue, err := c.copyIssue(ctx, src, parent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return issue, err
}

func (c *Copier) copyIssue(ctx context.Context, src, parent *Issue) (*Issue, error) {
	if ok, reason := CanBeChildToParent(parent, src); !ok {
		return nil, newError(KindHierarchy, "%s", reason)
	}

	summary := c.opts.Replacer.Apply(src.Summary())
	fields, err := c.sanitizer.Sanitize(src, summary, parent)
	if err != nil {
		return nil, err
	}

	if c.opts.DryRun {
		attrs := []any{"dry_run", true, "source", src.Key(), "type", src.TypeName(), "summary", summary}
		if parent != nil {
			attrs = append(attrs, "parent", parent.Key())
		}
		c.log.Info("would copy issue", attrs...)
		return nil, nil
	}

	raw, err := c.repo.store.CreateIssue(ctx, fields)
	if err != nil {
		return nil, wrapError(KindCreate, err, "failed to create copy of %s", src.ShortString())
	}
	c.created++
	c.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("vira.issue.type", src.TypeName())))
	issue := c.repo.Wrap(raw)

	if c.opts.CreateComment != "" {
		if err := c.repo.store.AddComment(ctx, issue.Key(), c.opts.CreateComment); err != nil {
			return nil, wrapError(KindRemote, err, "failed to add comment to %s", issue.Key())
		}
	}

	if parent != nil {
		if err := c.AddChildToParent(ctx, parent, issue); err != nil {
			return nil, err
		}
	}

	c.log.Info("copied issue", "source", src.Key(), "new", issue.Key(), "type", issue.TypeName())
	return issue, nil
}

// AddChildToParent links child under parent:
// a Feature through the capability link field and its native parent,
// a Story through the epic linker, and a Sub-task through its native parent.
func (c *Copier) AddChildToParent(ctx context.Context, parent, child *Issue) error {
	if ok, reason := CanBeChildToParent(parent, child); !ok {
		return newError(KindHierarchy, "%s", reason)
	}
	if parent == nil {
		return nil
	}

	if c.opts.DryRun {
		c.log.Info("would add child to parent", "dry_run", true, "child", child.Key(), "parent", parent.Key())
		return nil
	}

	var err error
	switch child.Type() {
	case TypeFeature:
		err = c.repo.store.UpdateIssue(ctx, child.Key(), map[string]interface{}{
			c.sanitizer.cfg.CapabilityLink: parent.Key(),
			"parent":                       map[string]interface{}{"id": parent.ID()},
		})
	case TypeStory:
		err = c.opts.EpicLinker.LinkEpicChild(ctx, c.repo.store, parent, child)
	case TypeSubtask:
		err = c.repo.store.UpdateIssue(ctx, child.Key(), map[string]interface{}{
			"parent": map[string]interface{}{"id": parent.ID()},
		})
	default:
		return newError(KindUnsupportedRelationship,
			"unsupported relationship: %s under %s", child.ShortString(), parent.ShortString())
	}
	if err != nil {
		return wrapError(KindRemote, err, "failed to add %s to parent %s", child.Key(), parent.Key())
	}
	c.log.Debug("added child to parent", "child", child.Key(), "parent", parent.Key())
	return nil
}

// CopyIssueByKey fetches the issues by key and copies src under parentKey.
// An empty parentKey copies without a parent.
func (c *Copier) CopyIssueByKey(ctx context.Context, srcKey, parentKey string) (*Issue, error) {
	src, err := c.repo.GetIssue(ctx, srcKey)
	if err != nil {
		return nil, err
	}
	var parent *Issue
	if parentKey != "" {
		if parent, err = c.repo.GetIssue(ctx, parentKey); err != nil {
			return nil, err
		}
	}
	return c.CopyIssue(ctx, src, parent)
}

// CopyRecursive copies src and all its descendants.
//
// With a nil existingParent, src itself is copied and the copy is returned as
// the top of the new tree. Otherwise existingParent must have the same type
// as src and a different key; only the descendants of src are copied into it
// and existingParent is returned.
//
// Children are copied depth first, each subtree completed before its next
// sibling. Nothing is rolled back on failure; the error reports how many
// issues had been created. In dry run mode a full copy returns nil.
func (c *Copier) CopyRecursive(ctx context.Context, src, existingParent *Issue) (*Issue, error) {
	attrs := []attribute.KeyValue{attribute.String("vira.source", src.Key())}
	if existingParent != nil {
		attrs = append(attrs, attribute.String("vira.parent", existingParent.Key()))
	}
	ctx, span := c.tracer.Start(ctx, "vira.copy_recursive", trace.WithAttributes(attrs...))
	defer span.End()

	before := c.created
	top, err := c.copyRecursive(ctx, src, existingParent)
	span.SetAttributes(attribute.Int("vira.created", c.created-before))
	if err != nil {
		err = c.partial(err, c.created-before)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return top, nil
}

func (c *Copier) copyRecursive(ctx context.Context, src, existingParent *Issue) (*Issue, error) {
	var top *Issue
	if existingParent == nil {
		copied, err := c.CopyIssue(ctx, src, nil)
		if err != nil {
			return nil, err
		}
		top = copied
	} else {
		if err := checkMerge(src, existingParent); err != nil {
			return nil, err
		}
		top = existingParent
	}

	// In dry run nothing is created, so the source stands in as the parent.
	walkParent := top
	if walkParent == nil {
		walkParent = src
	}
	if err := c.copyChildren(ctx, src, walkParent); err != nil {
		return nil, err
	}
	return top, nil
}

// checkMerge reports whether the children of src may be copied into
// existingParent. A nil existingParent is always allowed.
func checkMerge(src, existingParent *Issue) error {
	if existingParent == nil {
		return nil
	}
	if src.TypeName() != existingParent.TypeName() {
		return newError(KindTypeMismatch,
			"can not copy children of %s into %s: issue types differ",
			src.ShortString(), existingParent.ShortString())
	}
	if src.Key() == existingParent.Key() {
		return newError(KindSelfReference,
			"can not copy children of %s into itself", src.ShortString())
	}
	return nil
}

// PlanRecursive checks that CopyRecursive(ctx, src, existingParent) is
// allowed and returns the subtree of src it would copy. Nothing is written.
// The merge checks run before any children are fetched, so a mismatched
// parent is rejected even when src has no children.
func (c *Copier) PlanRecursive(ctx context.Context, src, existingParent *Issue) (*TreeNode, error) {
	if err := checkMerge(src, existingParent); err != nil {
		return nil, err
	}
	tree, err := BuildTree(ctx, src)
	if err != nil {
		return nil, err
	}
	if existingParent != nil {
		for _, child := range tree.Children {
			if ok, reason := CanBeChildToParent(existingParent, child.Issue); !ok {
				return nil, newError(KindHierarchy, "%s", reason)
			}
		}
	}
	return tree, nil
}

func (c *Copier) copyChildren(ctx context.Context, src, parent *Issue) error {
	children, err := src.Children(ctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		copied, err := c.CopyIssue(ctx, child, parent)
		if err != nil {
			return err
		}
		if copied == nil {
			copied = child
		}
		if err := c.copyChildren(ctx, child, copied); err != nil {
			return err
		}
	}
	return nil
}

// partial notes in err how many issues were created before it happened.
func (c *Copier) partial(err error, created int) error {
	if created == 0 {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Errorf("%w (%d issues created before the failure were not removed)", err, created)
	}
	out := *e
	if out.Message == "" {
		out.Message = e.Kind.String()
	}
	out.Message = fmt.Sprintf("%s; %d issues created before the failure were not removed", out.Message, created)
	return &out
}

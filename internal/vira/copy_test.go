package vira

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateReplacer(capability string) *Replacer {
	return NewReplacer(
		Replacement{Match: "[TEMPLATE, COPY ME] ", Replace: ""},
		Replacement{Match: "[Template, COPY ME] ", Replace: ""},
		Replacement{Match: "<capability>", Replace: capability},
	)
}

// seedSOLSWEP802 builds a Capability with 7 Features and 2 Sub-tasks as
// children. Every Feature has 4 Stories and the first 12 Stories one
// Sub-task each: 49 descendants in total.
func seedSOLSWEP802(store *fakeStore) {
	capability := store.add("SOLSWEP-802", CapabilityTypeName, "[TEMPLATE, COPY ME] <capability> capability")
	n := 803
	next := func() string {
		k := fmt.Sprintf("SOLSWEP-%d", n)
		n++
		return k
	}

	var stories []*fakeRecord
	for f := 1; f <= 7; f++ {
		feat := store.add(next(), FeatureTypeName, fmt.Sprintf("[TEMPLATE, COPY ME] <capability> feature %d", f))
		store.link(capability, feat)
		for s := 1; s <= 4; s++ {
			story := store.add(next(), StoryTypeName, fmt.Sprintf("[Template, COPY ME] <capability> story %d.%d", f, s))
			store.link(feat, story)
			stories = append(stories, story)
		}
	}
	for i := 0; i < 12; i++ {
		sub := store.add(next(), SubtaskTypeName, fmt.Sprintf("<capability> sub-task %d", i+1))
		sub.Fields["customfield_13802"] = "2024-03-01"
		store.link(stories[i], sub)
	}
	for i := 1; i <= 2; i++ {
		sub := store.add(next(), SubtaskTypeName, fmt.Sprintf("<capability> capability sub-task %d", i))
		store.link(capability, sub)
	}
}

func TestCopyRecursiveEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)

	c := NewCopier(store, Options{
		Replacer:      templateReplacer("Radar"),
		CreateComment: "This issue was created by vira test",
	})
	repo := c.Repository()

	src, err := repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	srcCount, err := CountDescendants(ctx, src)
	require.NoError(t, err)
	require.Equal(t, 49, srcCount)

	top, err := c.CopyRecursive(ctx, src, nil)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.NotEqual(t, "SOLSWEP-802", top.Key())
	assert.True(t, top.IsCapability())
	assert.Equal(t, "Radar capability", top.Summary())

	assert.Equal(t, 50, store.creates)
	assert.Equal(t, 50, c.Created())
	assert.Equal(t, 50, store.comments)

	children, err := top.Children(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 9)

	tree, err := BuildTree(ctx, top)
	require.NoError(t, err)
	assert.Equal(t, 49, tree.Descendants())
	tree.Walk(func(node *TreeNode, _ int) {
		s := node.Issue.Summary()
		assert.NotContains(t, s, "COPY ME", node.Issue.Key())
		assert.NotContains(t, s, "<capability>", node.Issue.Key())
		assert.Contains(t, s, "Radar", node.Issue.Key())
	})

	// The source tree is untouched.
	src, err = repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	assert.Equal(t, "[TEMPLATE, COPY ME] <capability> capability", src.Summary())
	srcCount, err = CountDescendants(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 49, srcCount)
}

func TestCopyRecursivePreOrder(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)

	c := NewCopier(store, Options{Replacer: templateReplacer("X")})
	src, err := c.Repository().GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	_, err = c.CopyRecursive(ctx, src, nil)
	require.NoError(t, err)

	var summaries []string
	for _, f := range store.createFields[:5] {
		summaries = append(summaries, f["summary"].(string))
	}
	// Each subtree is finished before the next sibling starts.
	assert.Equal(t, []string{
		"X capability",
		"X feature 1",
		"X story 1.1",
		"X sub-task 1",
		"X story 1.2",
	}, summaries)
}

func TestCopyRecursiveMerge(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)
	existing := store.add("SOLSWEP-900", CapabilityTypeName, "existing")
	feat := store.add("SOLSWEP-901", FeatureTypeName, "existing feature")
	store.link(existing, feat)

	c := NewCopier(store, Options{Replacer: templateReplacer("Lidar")})
	repo := c.Repository()
	src, err := repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	parent, err := repo.GetIssue(ctx, "SOLSWEP-900")
	require.NoError(t, err)

	before, err := CountDescendants(ctx, parent)
	require.NoError(t, err)
	require.Equal(t, 1, before)

	top, err := c.CopyRecursive(ctx, src, parent)
	require.NoError(t, err)
	assert.Equal(t, "SOLSWEP-900", top.Key())
	assert.Equal(t, 49, store.creates, "the source itself is not copied")

	after, err := CountDescendants(ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, before+49, after)
}

func TestCopyRecursiveMergeRejects(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)
	store.add("SOLSWEP-900", FeatureTypeName, "a feature")

	c := NewCopier(store, Options{})
	repo := c.Repository()
	src, err := repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	feat, err := repo.GetIssue(ctx, "SOLSWEP-900")
	require.NoError(t, err)

	_, err = c.CopyRecursive(ctx, src, feat)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeMismatch), err.Error())

	_, err = c.CopyRecursive(ctx, src, src)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSelfReference), err.Error())

	assert.Zero(t, store.creates)
	assert.Zero(t, store.mutations())
}

func TestPlanRecursive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)
	store.add("SOLSWEP-900", CapabilityTypeName, "existing")

	c := NewCopier(store, Options{})
	repo := c.Repository()
	src, err := repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)
	parent, err := repo.GetIssue(ctx, "SOLSWEP-900")
	require.NoError(t, err)

	full, err := c.PlanRecursive(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, "SOLSWEP-802", full.Issue.Key())
	assert.Equal(t, 49, full.Descendants())

	merge, err := c.PlanRecursive(ctx, src, parent)
	require.NoError(t, err)
	assert.Equal(t, 49, merge.Descendants())
	assert.Zero(t, store.mutations())
}

func TestPlanRecursiveRejectsBeforeListingChildren(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	store.add("SOLSWEP-1", StoryTypeName, "leaf story")
	store.add("SOLSWEP-2", FeatureTypeName, "a feature")

	c := NewCopier(store, Options{})
	repo := c.Repository()
	story, err := repo.GetIssue(ctx, "SOLSWEP-1")
	require.NoError(t, err)
	feat, err := repo.GetIssue(ctx, "SOLSWEP-2")
	require.NoError(t, err)

	_, err = c.PlanRecursive(ctx, story, feat)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeMismatch), err.Error())

	_, err = c.PlanRecursive(ctx, story, story)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSelfReference), err.Error())

	assert.Zero(t, store.searches)
	assert.Zero(t, store.mutations())
}

func TestCopyIssueSubtaskWithoutParent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	store.add("SOLSWEP-1", SubtaskTypeName, "orphan")

	c := NewCopier(store, Options{})
	_, err := c.CopyIssueByKey(ctx, "SOLSWEP-1", "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindParentRequired))
	assert.Zero(t, store.creates)
}

func TestCopyIssueHierarchyViolation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	store.add("SOLSWEP-1", CapabilityTypeName, "cap")
	store.add("SOLSWEP-2", StoryTypeName, "story")

	c := NewCopier(store, Options{})
	_, err := c.CopyIssueByKey(ctx, "SOLSWEP-2", "SOLSWEP-1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindHierarchy))
	assert.Contains(t, err.Error(), "story must attach to feature")
	assert.Zero(t, store.mutations())
}

func TestCopyIssueLinksParent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	capability := store.add("SOLSWEP-1", CapabilityTypeName, "cap")
	feat := store.add("SOLSWEP-2", FeatureTypeName, "feat")
	store.add("SOLSWEP-3", StoryTypeName, "story")
	store.link(capability, feat)

	c := NewCopier(store, Options{})

	newFeat, err := c.CopyIssueByKey(ctx, "SOLSWEP-2", "SOLSWEP-1")
	require.NoError(t, err)
	assert.Equal(t, "SOLSWEP-1", store.records[newFeat.Key()].capLink)
	assert.Equal(t, "feat", store.createFields[0]["customfield_10704"])

	newStory, err := c.CopyIssueByKey(ctx, "SOLSWEP-3", newFeat.Key())
	require.NoError(t, err)
	assert.Equal(t, newFeat.Key(), store.records[newStory.Key()].epic)
	assert.Equal(t, 1, store.epicLinks)
}

func TestCopyIssueFieldEpicLinker(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	store.add("SOLSWEP-1", FeatureTypeName, "feat")
	store.add("SOLSWEP-2", StoryTypeName, "story")

	linker, err := NewEpicLinker(EpicLinkField, "customfield_10101")
	require.NoError(t, err)
	c := NewCopier(store, Options{EpicLinker: linker})

	newStory, err := c.CopyIssueByKey(ctx, "SOLSWEP-2", "SOLSWEP-1")
	require.NoError(t, err)
	assert.Zero(t, store.epicLinks)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, "SOLSWEP-1", store.records[newStory.Key()].epic)

	_, err = NewEpicLinker("greenhopper", "")
	assert.Error(t, err)
}

func TestCopyDryRun(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)
	store.add("SOLSWEP-900", CapabilityTypeName, "existing")

	var buf bytes.Buffer
	c := NewCopier(store, Options{
		DryRun:        true,
		CreateComment: "created",
		Replacer:      templateReplacer("Radar"),
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
	})
	repo := c.Repository()
	src, err := repo.GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)

	top, err := c.CopyRecursive(ctx, src, nil)
	require.NoError(t, err)
	assert.Nil(t, top)

	parent, err := repo.GetIssue(ctx, "SOLSWEP-900")
	require.NoError(t, err)
	top, err = c.CopyRecursive(ctx, src, parent)
	require.NoError(t, err)
	assert.Equal(t, "SOLSWEP-900", top.Key())

	assert.Zero(t, store.mutations())
	assert.Equal(t, 50+49, strings.Count(buf.String(), "would copy issue"))
	assert.Contains(t, buf.String(), "dry_run=true")
	assert.Contains(t, buf.String(), `summary="Radar feature 1"`)
}

func TestCopyRecursiveReportsPartialProgress(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	seedSOLSWEP802(store)
	store.failCreateAt = 4

	c := NewCopier(store, Options{})
	src, err := c.Repository().GetIssue(ctx, "SOLSWEP-802")
	require.NoError(t, err)

	_, err = c.CopyRecursive(ctx, src, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCreate))
	assert.Contains(t, err.Error(), "3 issues created before the failure were not removed")

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusInternalServerError, e.StatusCode)
}

func TestAddChildToParent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t)
	store.add("SOLSWEP-1", StoryTypeName, "story")
	store.add("SOLSWEP-2", SubtaskTypeName, "sub")

	c := NewCopier(store, Options{})
	repo := c.Repository()
	parent, err := repo.GetIssue(ctx, "SOLSWEP-1")
	require.NoError(t, err)
	child, err := repo.GetIssue(ctx, "SOLSWEP-2")
	require.NoError(t, err)

	require.NoError(t, c.AddChildToParent(ctx, parent, child))
	assert.Equal(t, "SOLSWEP-1", store.records["SOLSWEP-2"].parent)

	err = c.AddChildToParent(ctx, child, parent)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindHierarchy))
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/debug"
	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

var (
	deepCopyParentFlag     string
	deepCopyCapabilityFlag string
	deepCopySMFlag         string
	deepCopyReplaceFlags   []string
	deepCopyNoPagerFlag    bool
)

var deepCopyCmd = &cobra.Command{
	Use:   "deep-copy SRC",
	Short: "Copy an issue together with all its descendants",
	Long: `Copy SRC and its whole subtree. Every copy is placed under the copy of
its original parent, so the new tree has the same shape as the source.

With --parent only the children of SRC are copied, into PARENT, which must
have the same type as SRC.

Summaries are rewritten with text replacements: the "[TEMPLATE, COPY ME] "
markers are always removed, --capability fills in <capability> and
<sSOLCSP Capability>, --sm fills in <SM>, and each --replace MATCH=TEXT rule
is applied after those, in order.

Issues created before a failure are not removed.`,
	Example: `  vira deep-copy SOLSWEP-802 -c "Charging"
  vira deep-copy SOLSWEP-802 -p SOLSWEP-950 -r "2024=2025"`,
	Args: issueKeyArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := replaceOptions{rules: deepCopyReplaceFlags}
		if cmd.Flags().Changed("capability") {
			opts.capability = &deepCopyCapabilityFlag
		}
		if cmd.Flags().Changed("sm") {
			opts.sm = &deepCopySMFlag
		}
		replacer, err := buildReplacer(opts)
		if err != nil {
			FatalError("%v", err)
		}

		store := mustOpen()
		copier, err := newCopier(store, replacer)
		if err != nil {
			fail(err)
		}
		repo := copier.Repository()

		src := getIssue(repo, args[0])
		var parent *vira.Issue
		if deepCopyParentFlag != "" {
			parent = getIssue(repo, deepCopyParentFlag)
		}

		plan, ok, err := describeDeepCopy(rootCtx, copier, src, parent)
		if err != nil {
			fail(err)
		}
		debug.PrintNormal("%s", plan)
		if !ok {
			return
		}

		printReplacements(replacer)
		confirmOrExit()

		top, err := copier.CopyRecursive(rootCtx, src, parent)
		if err != nil {
			fail(err)
		}

		debug.PrintlnNormal(ui.RenderCategory("Summary"))
		if top == nil || copier.Created() == 0 {
			debug.PrintlnNormal("No issues created")
			return
		}
		tree, err := vira.BuildTree(rootCtx, top)
		if err != nil {
			fail(err)
		}
		if debug.IsQuiet() {
			return
		}
		if err := ui.ToPager(ui.RenderTree(tree), ui.PagerOptions{NoPager: deepCopyNoPagerFlag}); err != nil {
			WarnError("failed to print tree: %v", err)
		}
		debug.PrintNormal("%s Created %d issues\n", ui.RenderPassIcon(), copier.Created())
		debug.PrintlnNormal(ui.RenderMuted(jiraBrowseURL(top.Key())))
	},
}

// describeDeepCopy checks a deep copy of src, into parent when one is given,
// and renders the issues it would copy. It reports false when there is
// nothing to copy.
func describeDeepCopy(ctx context.Context, copier *vira.Copier, src, parent *vira.Issue) (string, bool, error) {
	tree, err := copier.PlanRecursive(ctx, src, parent)
	if err != nil {
		return "", false, err
	}

	var sb strings.Builder
	if parent != nil {
		if len(tree.Children) == 0 {
			return ui.RenderWarnIcon() + " " + src.Key() + " has no children and --parent was given. Nothing will be copied.\n", false, nil
		}
		fmt.Fprintf(&sb, "Will deep copy child issues of %s and will add them as children to %s\n",
			ui.RenderIssue(src), ui.RenderIssue(parent))
	} else {
		fmt.Fprintf(&sb, "Will deep copy %s\n", ui.RenderIssue(src))
	}
	sb.WriteString(ui.RenderTree(tree))
	return sb.String(), true, nil
}

func printReplacements(r *vira.Replacer) {
	rules := r.Rules()
	if len(rules) == 0 {
		debug.PrintlnNormal("Will not do any text replacements")
		return
	}
	debug.PrintlnNormal("Will use the following text replacements")
	for _, rule := range rules {
		debug.PrintlnNormal("  " + rule.String())
	}
}

func init() {
	deepCopyCmd.Flags().StringVarP(&deepCopyParentFlag, "parent", "p", "", "Copy the children of SRC into this issue instead of copying SRC")
	deepCopyCmd.Flags().StringVarP(&deepCopyCapabilityFlag, "capability", "c", "", "Text replacing <capability> and <sSOLCSP Capability> in summaries")
	deepCopyCmd.Flags().StringVar(&deepCopySMFlag, "sm", "", "Text replacing <SM> in summaries")
	deepCopyCmd.Flags().StringArrayVarP(&deepCopyReplaceFlags, "replace", "r", nil, "Additional MATCH=REPLACEMENT summary rule (repeatable)")
	deepCopyCmd.Flags().BoolVar(&deepCopyNoPagerFlag, "no-pager", false, "Do not pipe the resulting tree to a pager")
	rootCmd.AddCommand(deepCopyCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/debug"
	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

var copyParentFlag string

var copyCmd = &cobra.Command{
	Use:   "copy SRC",
	Short: "Copy a single issue",
	Long: `Copy one issue without its children.

With --parent the copy is added as a child of PARENT, which must be one level
above SRC in the hierarchy. Without --parent the copy has no parent; a
sub-task can not be copied that way.`,
	Example: `  vira copy SOLSWEP-803 -p SOLSWEP-900`,
	Args:    issueKeyArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := mustOpen()
		copier, err := newCopier(store, nil)
		if err != nil {
			fail(err)
		}
		repo := copier.Repository()

		src := getIssue(repo, args[0])
		var parent *vira.Issue
		if copyParentFlag != "" {
			parent = getIssue(repo, copyParentFlag)
		}

		// The copy has the type of src, so src stands in for the check.
		if ok, reason := vira.CanBeChildToParent(parent, src); !ok {
			fail(&vira.Error{Kind: vira.KindHierarchy, Message: reason})
		}

		msg := "Will copy issue " + ui.RenderIssue(src)
		if parent != nil {
			msg += " and will add it as child to " + ui.RenderIssue(parent)
		}
		debug.PrintlnNormal(msg)
		confirmOrExit()

		copied, err := copier.CopyIssue(rootCtx, src, parent)
		if err != nil {
			fail(err)
		}

		debug.PrintlnNormal(ui.RenderCategory("Summary"))
		if copied == nil {
			debug.PrintlnNormal("No issues created")
			return
		}
		msg = ui.RenderPassIcon() + " Created issue " + ui.RenderIssue(copied)
		if parent != nil {
			msg += " and made it a child to " + ui.RenderIssue(parent)
		}
		debug.PrintlnNormal(msg)
		debug.PrintlnNormal(ui.RenderMuted(jiraBrowseURL(copied.Key())))
	},
}

func init() {
	copyCmd.Flags().StringVarP(&copyParentFlag, "parent", "p", "", "Add the copy as a child of this issue")
	rootCmd.AddCommand(copyCmd)
}

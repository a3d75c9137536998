package main

import (
	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/debug"
	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

var addParentCmd = &cobra.Command{
	Use:   "add-parent ISSUE PARENT",
	Short: "Add an issue to a parent, or move it to another one",
	Long: `Make ISSUE a child of PARENT. PARENT must be one level above ISSUE:
a Feature goes under a Capability, a Story or Task under a Feature, and a
Sub-task under a Capability, Feature or Story.`,
	Args: issueKeyArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		store := mustOpen()
		copier, err := newCopier(store, nil)
		if err != nil {
			fail(err)
		}
		repo := copier.Repository()

		issue := getIssue(repo, args[0])
		parent := getIssue(repo, args[1])

		if ok, reason := vira.CanBeChildToParent(parent, issue); !ok {
			fail(&vira.Error{Kind: vira.KindHierarchy, Message: reason})
		}

		debug.PrintlnNormal("Will make " + ui.RenderIssue(issue) + " child of " + ui.RenderIssue(parent))
		confirmOrExit()

		if err := copier.AddChildToParent(rootCtx, parent, issue); err != nil {
			fail(err)
		}
		if !dryRunFlag {
			debug.PrintlnNormal(ui.RenderPassIcon() + " " + issue.Key() + " is now a child of " + parent.Key())
		}
	},
}

func init() {
	rootCmd.AddCommand(addParentCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

var treeNoPagerFlag bool

var treeCmd = &cobra.Command{
	Use:   "tree KEY",
	Short: "Show an issue and all its descendants",
	Long: `Print KEY and every issue below it, one per line, with the number of
direct children of each issue and the total number of descendants.`,
	Args: issueKeyArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := vira.NewRepository(mustOpen(), logger)
		root := getIssue(repo, args[0])

		tree, err := vira.BuildTree(rootCtx, root)
		if err != nil {
			fail(err)
		}
		if err := ui.ToPager(ui.RenderTreeSummary(tree), ui.PagerOptions{NoPager: treeNoPagerFlag}); err != nil {
			fail(err)
		}
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeNoPagerFlag, "no-pager", false, "Do not pipe output to a pager")
	rootCmd.AddCommand(treeCmd)
}

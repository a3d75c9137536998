package ui

import (
	"fmt"
	"strings"

	"github.com/peorobertsson/vira/internal/vira"
)

// RenderIssue formats an issue as: Type KEY "summary", with the type in bold.
func RenderIssue(issue *vira.Issue) string {
	if issue == nil || issue.Raw() == nil {
		return RenderMuted("<None>")
	}
	return fmt.Sprintf("%s %s %q", RenderType(issue.TypeName()), issue.Key(), issue.Summary())
}

// RenderTree lists root and its descendants, one issue per line, indented
// two spaces per depth. Issues with children are suffixed with
// ", has N children".
func RenderTree(root *vira.TreeNode) string {
	var sb strings.Builder
	root.Walk(func(node *vira.TreeNode, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(RenderIssue(node.Issue))
		if n := len(node.Children); n > 0 {
			sb.WriteString(RenderMuted(fmt.Sprintf(", has %d children", n)))
		}
		sb.WriteByte('\n')
	})
	return sb.String()
}

// RenderTreeSummary renders the tree followed by the total descendant count.
func RenderTreeSummary(root *vira.TreeNode) string {
	return RenderTree(root) + fmt.Sprintf("%s %d issues below %s\n",
		RenderPassIcon(), root.Descendants(), root.Issue.Key())
}

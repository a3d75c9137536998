package vira

import "context"

// TreeNode is an issue together with its fetched descendants.
type TreeNode struct {
	Issue    *Issue
	Children []*TreeNode
}

// BuildTree fetches the full subtree below issue.
func BuildTree(ctx context.Context, issue *Issue) (*TreeNode, error) {
	node := &TreeNode{Issue: issue}
	children, err := issue.Children(ctx)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		sub, err := BuildTree(ctx, child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}

// Descendants counts every node below n, not counting n itself.
func (n *TreeNode) Descendants() int {
	total := 0
	for _, c := range n.Children {
		total += 1 + c.Descendants()
	}
	return total
}

// Walk visits n and its descendants in pre-order. depth is 0 for n.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(*TreeNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// CountDescendants returns the number of issues below issue, excluding issue.
func CountDescendants(ctx context.Context, issue *Issue) (int, error) {
	tree, err := BuildTree(ctx, issue)
	if err != nil {
		return 0, err
	}
	return tree.Descendants(), nil
}

package vira

import "fmt"

// Rejection reasons returned by CanBeChildToParent.
const (
	reasonFeature     = "feature must attach to capability"
	reasonStory       = "story must attach to feature"
	reasonSubtask     = "sub-task cannot parent a sub-task"
	reasonUnsupported = "unsupported child type"
)

// CanBeChild reports whether an issue of type child may be placed under an
// issue of type parent, and if not, why.
func CanBeChild(parent, child IssueType) (bool, string) {
	switch child {
	case TypeFeature:
		if parent == TypeCapability {
			return true, ""
		}
		return false, reasonFeature
	case TypeStory:
		if parent == TypeFeature {
			return true, ""
		}
		return false, reasonStory
	case TypeSubtask:
		if parent != TypeSubtask {
			return true, ""
		}
		return false, reasonSubtask
	default:
		return false, reasonUnsupported
	}
}

// CanBeChildToParent checks the hierarchy rules for placing child under
// parent. A nil parent is always allowed. Never fails; the reason names both
// issues when the placement is rejected.
func CanBeChildToParent(parent, child *Issue) (bool, string) {
	if parent == nil {
		return true, ""
	}
	ok, reason := CanBeChild(parent.Type(), child.Type())
	if ok {
		return true, ""
	}
	return false, fmt.Sprintf("%s: %s can not be a child to %s",
		reason, child.ShortString(), parent.ShortString())
}

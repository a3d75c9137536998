// Package vira copies and reparents issues across the Capability, Feature,
// Story and Sub-task hierarchy of a Jira instance.
package vira

import "strings"

// IssueType is the hierarchy level of an issue.
type IssueType int

const (
	TypeUnknown IssueType = iota
	TypeCapability
	TypeFeature
	TypeStory
	TypeSubtask
)

// Tracker type names.
const (
	CapabilityTypeName = "Capability"
	FeatureTypeName    = "Feature"
	StoryTypeName      = "Story"
	TaskTypeName       = "Task"
	SubtaskTypeName    = "Sub-task"
)

// ParseIssueType maps a tracker issue type name to its hierarchy level.
// "Task" sits at the Story level. Unrecognised names yield TypeUnknown.
func ParseIssueType(name string) IssueType {
	switch name {
	case CapabilityTypeName:
		return TypeCapability
	case FeatureTypeName:
		return TypeFeature
	case StoryTypeName, TaskTypeName:
		return TypeStory
	case SubtaskTypeName:
		return TypeSubtask
	default:
		return TypeUnknown
	}
}

func (t IssueType) String() string {
	switch t {
	case TypeCapability:
		return CapabilityTypeName
	case TypeFeature:
		return FeatureTypeName
	case TypeStory:
		return StoryTypeName
	case TypeSubtask:
		return SubtaskTypeName
	default:
		return "Unknown"
	}
}

// Level is the depth of the type in the hierarchy, starting at 0 for
// Capability. Unknown types report 0.
func (t IssueType) Level() int {
	switch t {
	case TypeFeature:
		return 1
	case TypeStory:
		return 2
	case TypeSubtask:
		return 3
	default:
		return 0
	}
}

// Indent returns the indentation used when listing an issue of this type.
func (t IssueType) Indent() string {
	return strings.Repeat("  ", t.Level())
}

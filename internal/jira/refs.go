package jira

import (
	"strings"
)

// BrowseURL builds the human-readable URL of an issue,
// e.g. "https://jira.company.com/browse/PROJ-123".
func BrowseURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/browse/" + key
}

// NormalizeKey accepts either an issue key or a browse URL and returns the
// upper-cased issue key. It returns "" if the input is neither.
func NormalizeKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if idx := strings.LastIndex(ref, "/browse/"); idx != -1 {
		ref = ref[idx+len("/browse/"):]
		if q := strings.IndexAny(ref, "?#/"); q != -1 {
			ref = ref[:q]
		}
	}
	ref = strings.ToUpper(ref)
	if !IsIssueKey(ref) {
		return ""
	}
	return ref
}

// IsIssueKey reports whether s looks like PROJECT-123: a project part that
// starts with a letter, a dash, and a positive number.
func IsIssueKey(s string) bool {
	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return false
	}
	project, num := s[:idx], s[idx+1:]
	if c := project[0]; !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return false
	}
	for _, c := range project {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	for _, c := range num {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

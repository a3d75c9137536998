package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/peorobertsson/vira/internal/ui"
	"github.com/peorobertsson/vira/internal/vira"
)

// FatalError writes an error message to stderr and exits with code 1.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, ui.RenderFail("Error:")+" "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, ui.RenderWarn("Warning:")+" "+format+"\n", args...)
}

// hintFor suggests a fix for the vira errors a user can act on.
func hintFor(err error) string {
	var e *vira.Error
	if !errors.As(err, &e) {
		return ""
	}
	switch e.Kind {
	case vira.KindConnection:
		if e.StatusCode == 401 || e.StatusCode == 403 {
			return "check --user/--password, or use a personal access token with --token"
		}
		return "check --url and that the Jira instance is reachable"
	case vira.KindNotFound:
		return "check the issue key and that you have permission to browse it"
	case vira.KindHierarchy, vira.KindTypeMismatch:
		return "issues nest as Capability > Feature > Story/Task > Sub-task; see 'vira tree' for the source structure"
	case vira.KindParentRequired:
		return "a sub-task can only be copied with --parent"
	}
	return ""
}

// fail exits with err, adding a hint when one applies. The session is shut
// down first so telemetry is flushed.
func fail(err error) {
	shutdown()
	if hint := hintFor(err); hint != "" {
		FatalErrorWithHint(err.Error(), hint)
	}
	FatalError("%v", err)
}

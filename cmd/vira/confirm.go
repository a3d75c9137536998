package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/peorobertsson/vira/internal/ui"
)

var errAborted = errors.New("aborted by user")

// confirm asks whether to continue unless --force or --dry-run is set.
// On a terminal it shows a huh confirmation; otherwise it reads yes/no
// lines from stdin.
func confirm() error {
	if forceFlag || dryRunFlag {
		return nil
	}
	if ui.IsInputTerminal() {
		ok := false
		err := huh.NewConfirm().
			Title("Do you want to continue?").
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		if errors.Is(err, huh.ErrUserAborted) || (err == nil && !ok) {
			return errAborted
		}
		return err
	}
	return askYesNo(os.Stdin, os.Stdout)
}

// askYesNo repeats the question until the answer is yes or no.
func askYesNo(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Do you want to continue? (yes/no) ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errAborted
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return nil
		case "no", "n":
			return errAborted
		default:
			fmt.Fprintln(out, "Please enter 'yes' or 'no'.")
		}
	}
}

// confirmOrExit returns when the user agreed and exits cleanly otherwise.
func confirmOrExit() {
	err := confirm()
	if errors.Is(err, errAborted) {
		shutdown()
		fmt.Fprintln(os.Stderr, "Aborted.")
		os.Exit(0)
	}
	if err != nil {
		fail(err)
	}
}

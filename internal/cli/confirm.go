// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation of destructive actions.
//
// The flow is the same for every command:
//  1. --yes skips the prompt
//  2. --json requires --yes (no interactive prompts in JSON mode)
//  3. a non-terminal stdin requires --yes
//  4. otherwise the user is asked

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmationOptions describes how a confirmation may be given.
type ConfirmationOptions struct {
	// Yes indicates --yes was passed
	Yes bool
	// JSONMode indicates --json was passed
	JSONMode bool
}

// RequireConfirmation asks the user to confirm action. Details are shown
// above the prompt in order.
func RequireConfirmation(action string, details [][2]string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, NewValidationError("--yes", "", "confirmation required in JSON mode")
	}
	if !IsTTY() {
		return false, NewValidationError("--yes", "", "confirmation required but stdin is not a terminal")
	}
	return promptConfirmation(os.Stdin, os.Stdout, action, details)
}

// promptConfirmation writes the prompt to out and reads the answer from in.
// "o", "oui", "y" and "yes" confirm.
func promptConfirmation(in io.Reader, out io.Writer, action string, details [][2]string) (bool, error) {
	if len(details) > 0 {
		fmt.Fprintln(out)
		for _, d := range details {
			fmt.Fprintf(out, "  %s%s\n", RenderLabel(d[0]+" :", 20), d[1])
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, WarningStyle.Render("Cette action est irréversible."))
	fmt.Fprintf(out, "Confirmer : %s ? [o/N] ", action)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "o", "oui", "y", "yes":
		return true, nil
	}
	return false, nil
}

// ShowCancellationMessage displays a standard cancellation message.
func ShowCancellationMessage(out io.Writer) {
	fmt.Fprintln(out, DimStyle.Render("Annulé."))
}

package app

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrNoPassphrase is returned when no passphrase is set in the environment
// and there is no terminal to ask on.
var ErrNoPassphrase = errors.New("no passphrase: set WT_PASSPHRASE or run from a terminal")

// ReadPassphrase returns $WT_PASSPHRASE, or prompts for one on the terminal
// without echo.
func ReadPassphrase(prompt string) (string, error) {
	if p := os.Getenv("WT_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassphrase
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// PassphrasePrompt adapts ReadPassphrase to Options.Passphrase.
func PassphrasePrompt(prompt string) func() (string, error) {
	return func() (string, error) { return ReadPassphrase(prompt) }
}

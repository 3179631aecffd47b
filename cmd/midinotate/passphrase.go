package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// passphrase returns the age passphrase for name, or "" for plain inputs.
// It comes from the environment, or from the terminal if there is one.
func passphrase(name string) (string, error) {
	if !strings.HasSuffix(name, ".age") {
		return "", nil
	}
	if p := os.Getenv("MIDINOTATE_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%v is encrypted: set MIDINOTATE_PASSPHRASE", name)
	}
	fmt.Fprintf(os.Stderr, "Passphrase for %v: ", name)
	p, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %w", err)
	}
	return string(p), nil
}

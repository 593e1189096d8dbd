// Package input reads command arguments that may point at stdin (-) or a
// file (@path) instead of holding the value itself.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Value resolves a single argument: "-" reads all of stdin, "@path" reads
// the file, anything else is returned as is. Surrounding whitespace of
// read content is trimmed.
func Value(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case strings.HasPrefix(arg, "@") && len(arg) > 1:
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	return arg, nil
}

// Join resolves args and joins them with spaces. Only the first "-" reads
// stdin; later ones are rejected.
func Join(args []string, stdin io.Reader) (string, error) {
	var (
		parts     []string
		stdinUsed bool
	)
	for _, a := range args {
		if a == "-" {
			if stdinUsed {
				return "", fmt.Errorf("stdin (-) given more than once")
			}
			stdinUsed = true
		}
		v, err := Value(a, stdin)
		if err != nil {
			return "", err
		}
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " "), nil
}

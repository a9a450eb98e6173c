package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/newtron-network/netcam-meraki/pkg/plugin"
)

// resolveAPIKey returns the dashboard API key from the environment, or
// prompts for it when in is a terminal. An empty key is returned otherwise;
// building the client then fails with a config error naming the variable.
func resolveAPIKey(in *os.File, out io.Writer) (string, error) {
	if key := os.Getenv(plugin.EnvAPIKey); key != "" {
		return key, nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(out, "Meraki dashboard API key: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Package pacman shells out to the local package manager tooling. It is the
// only part of the program that touches the host system.
package pacman

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/archlog/archlog/internal/utils"
)

// Update is one pending upgrade as reported by checkupdates.
type Update struct {
	Name    string
	Current string
	New     string
}

// CheckUpdates lists the pending upgrades. checkupdates ships with
// pacman-contrib and queries a temporary sync database, so it never needs
// root. An empty slice with a nil error means the system is up to date.
func CheckUpdates() ([]Update, error) {
	if _, err := exec.LookPath("checkupdates"); err != nil {
		return nil, fmt.Errorf("pacman: command 'checkupdates' is not available, install the 'pacman-contrib' package: %w", err)
	}

	out, err := exec.Command("checkupdates").Output()
	if err != nil {
		// Exit code 2 means no pending updates.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return nil, nil
		}
		return nil, fmt.Errorf("pacman: running checkupdates: %w", err)
	}

	return ParseCheckUpdates(string(out)), nil
}

// ParseCheckUpdates reads checkupdates output lines of the form
//
//	bluez 5.80-1 -> 5.81-1
//
// skipping anything that does not match.
func ParseCheckUpdates(output string) []Update {
	var updates []Update
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 4 || fields[2] != "->" {
			continue
		}
		updates = append(updates, Update{Name: fields[0], Current: fields[1], New: fields[3]})
	}
	return updates
}

// Architecture returns the architecture of an installed package via
// pacman -Q --info. The label in front of the value depends on the system
// locale, which is why the expected wording is configurable.
func Architecture(packageName, wording string) (string, error) {
	out, err := exec.Command("pacman", "-Q", "--info", packageName).Output()
	if err != nil {
		return "", fmt.Errorf("pacman: querying info for %s: %w", packageName, err)
	}
	return ParseArchitecture(string(out), wording)
}

// ParseArchitecture extracts the architecture value from pacman -Q --info
// output, matching on the configured label wording.
func ParseArchitecture(output, wording string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), wording) {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		arch := strings.TrimSpace(value)
		utils.Log.Debug("Package architecture: ", arch)
		return arch, nil
	}
	return "", fmt.Errorf("pacman: no %q line in pacman output", wording)
}

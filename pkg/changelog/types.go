package changelog

import (
	"fmt"

	"github.com/archlog/archlog/pkg/version"
)

// Package describes one upgradable package as reported by checkupdates,
// carrying both the raw pacman versions and their epoch-normalized tag forms.
type Package struct {
	Name        string
	Base        string
	Description string
	UpstreamURL string

	Repository   string
	Architecture string

	CurrentVersion     string
	NewVersion         string
	CurrentVersionNorm string
	NewVersionNorm     string

	CurrentMain   string
	CurrentSuffix string
	NewMain       string
	NewSuffix     string
}

// NewPackage builds a Package from a checkupdates line. The two versions must
// differ, and both must carry a main/suffix separator.
func NewPackage(name, current, newVersion string) (*Package, error) {
	if current == newVersion {
		return nil, fmt.Errorf("changelog: package %s reports identical versions %q", name, current)
	}

	currentNorm := version.Normalize(current)
	newNorm := version.Normalize(newVersion)

	currentMain, currentSuffix, err := version.SplitCounter(currentNorm)
	if err != nil {
		return nil, err
	}
	newMain, newSuffix, err := version.SplitCounter(newNorm)
	if err != nil {
		return nil, err
	}

	return &Package{
		Name:               name,
		CurrentVersion:     current,
		NewVersion:         newVersion,
		CurrentVersionNorm: currentNorm,
		NewVersionNorm:     newNorm,
		CurrentMain:        currentMain,
		CurrentSuffix:      currentSuffix,
		NewMain:            newMain,
		NewSuffix:          newSuffix,
	}, nil
}

// NameSearch is the name used against the packaging repositories, preferring
// the base package when the binary package is a split of it.
func (p *Package) NameSearch() string {
	if p.Base != "" {
		return p.Base
	}
	return p.Name
}

// Entry is a single commit attributed to one version hop of a package.
type Entry struct {
	Package    string
	VersionTag string
	Type       version.ReleaseType
	Message    string
	CommitURL  string
	CompareURL string
}

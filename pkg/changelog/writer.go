package changelog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/version"
)

// Marker strings placed where no upstream changelog applies or none could be
// found. They live in the JSON output, so changing them breaks consumers.
const (
	MinorMarker       = "- Not applicable, minor release -"
	OriginErrorMarker = "- ERROR: Couldn't find origin changelog. Check the logs for further information -"
)

// Document is the on-disk changelog file. One file accumulates every package
// of a run; rerunning against the same file merges into it.
type Document struct {
	Packages  []string                     `json:"packages"`
	Changelog map[string]*PackageChangelog `json:"changelog"`
}

type PackageChangelog struct {
	Description    string         `json:"description"`
	BasePackage    string         `json:"base package"`
	CurrentVersion string         `json:"current version"`
	NewVersion     string         `json:"new version"`
	Versions       []VersionGroup `json:"versions"`
}

// VersionGroup holds everything attributed to one version tag. The origin
// slots take either commit objects or one of the marker strings, hence the
// loose typing.
type VersionGroup struct {
	VersionTag       string           `json:"version-tag"`
	ReleaseType      string           `json:"release-type"`
	CompareURLArch   string           `json:"compare-url-tags-arch"`
	CompareURLOrigin string           `json:"compare-url-tags-origin"`
	Changelog        GroupedChangelog `json:"changelog"`
}

type GroupedChangelog struct {
	Arch   []CommitRef `json:"changelog Arch package"`
	Origin []any       `json:"changelog origin package"`
}

type CommitRef struct {
	Message string `json:"commit message"`
	URL     string `json:"commit URL"`
}

// Writer serializes aggregated entries into the changelog document at a
// fixed path.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string {
	return w.path
}

// Write merges one package's entries into the document on disk. An empty
// entry list still records the package, flagged with an unknown release
// type so the reader can tell a silent failure from a quiet release.
func (w *Writer) Write(pkg *Package, entries []Entry) error {
	doc := w.load()

	if !containsString(doc.Packages, pkg.Name) {
		doc.Packages = append(doc.Packages, pkg.Name)
	}

	pc, ok := doc.Changelog[pkg.Name]
	if !ok {
		pc = &PackageChangelog{
			Description:    pkg.Description,
			BasePackage:    pkg.Base,
			CurrentVersion: pkg.CurrentVersion,
			NewVersion:     pkg.NewVersion,
		}
		doc.Changelog[pkg.Name] = pc
	}

	pc.Versions = append(pc.Versions, groupEntries(pkg, entries)...)

	return w.save(doc)
}

// groupEntries folds a flat entry list into per-tag version groups,
// preserving the order tags were first produced in.
func groupEntries(pkg *Package, entries []Entry) []VersionGroup {
	if len(entries) == 0 {
		return []VersionGroup{{
			VersionTag:       pkg.CurrentVersion,
			ReleaseType:      string(version.ReleaseUnknown),
			CompareURLOrigin: "",
			Changelog:        GroupedChangelog{Arch: []CommitRef{}, Origin: []any{}},
		}}
	}

	var order []string
	groups := make(map[string]*VersionGroup)

	for _, entry := range entries {
		group, ok := groups[entry.VersionTag]
		if !ok {
			group = &VersionGroup{
				VersionTag:  entry.VersionTag,
				ReleaseType: displayReleaseType(entry.Type),
				Changelog:   GroupedChangelog{Arch: []CommitRef{}, Origin: []any{}},
			}
			groups[entry.VersionTag] = group
			order = append(order, entry.VersionTag)
		}

		ref := CommitRef{Message: entry.Message, URL: entry.CommitURL}
		if entry.Type == version.ReleaseMajor {
			group.Changelog.Origin = append(group.Changelog.Origin, ref)
			group.CompareURLOrigin = entry.CompareURL
		} else {
			group.Changelog.Arch = append(group.Changelog.Arch, ref)
			group.CompareURLArch = entry.CompareURL
		}
	}

	result := make([]VersionGroup, 0, len(order))
	for _, tag := range order {
		group := groups[tag]

		switch {
		case group.ReleaseType == string(version.ReleaseMinor):
			group.CompareURLOrigin = MinorMarker
			group.Changelog.Origin = []any{MinorMarker}
		case len(group.Changelog.Origin) == 0:
			// A major hop whose upstream half degraded.
			group.Changelog.Origin = []any{OriginErrorMarker}
		}

		result = append(result, *group)
	}
	return result
}

// displayReleaseType maps the internal hop labels onto the reader-facing
// ones. Packaging commits of a major hop carry the arch label internally but
// the whole group reads as a major release.
func displayReleaseType(t version.ReleaseType) string {
	if t == version.ReleaseArch {
		return string(version.ReleaseMajor)
	}
	return string(t)
}

// load reads the existing document, starting fresh when the file is missing
// or holds invalid JSON.
func (w *Writer) load() *Document {
	doc := &Document{Packages: []string{}, Changelog: map[string]*PackageChangelog{}}

	raw, err := os.ReadFile(w.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		utils.Log.Error("Existing changelog file ", w.path, " could not be parsed: ", err)
		return &Document{Packages: []string{}, Changelog: map[string]*PackageChangelog{}}
	}
	if doc.Changelog == nil {
		doc.Changelog = map[string]*PackageChangelog{}
	}
	return doc
}

func (w *Writer) save(doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("changelog: encoding document: %w", err)
	}
	if err := os.WriteFile(w.path, raw, 0o644); err != nil {
		return fmt.Errorf("changelog: writing %s: %w", w.path, err)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

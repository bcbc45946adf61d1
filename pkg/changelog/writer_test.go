package changelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/archlog/archlog/pkg/version"
)

func testPackage(t *testing.T) *Package {
	t.Helper()
	pkg, err := NewPackage("foo", "1.2.0-1", "1.3.0-1")
	if err != nil {
		t.Fatalf("NewPackage: %v", err)
	}
	pkg.Description = "A test package"
	return pkg
}

func readDocument(t *testing.T, path string) *Document {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return &doc
}

func TestWriterMajorHop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	pkg := testPackage(t)

	entries := []Entry{
		{Package: "foo", VersionTag: "1.3.0-1", Type: version.ReleaseArch, Message: "upgpkg: 1.3.0-1", CommitURL: "https://gitlab.archlinux.org/c/1", CompareURL: "https://gitlab.archlinux.org/compare"},
		{Package: "foo", VersionTag: "1.3.0-1", Type: version.ReleaseMajor, Message: "fix crash", CommitURL: "https://github.com/c/2", CompareURL: "https://github.com/compare"},
	}
	if err := NewWriter(path).Write(pkg, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc := readDocument(t, path)
	if len(doc.Packages) != 1 || doc.Packages[0] != "foo" {
		t.Fatalf("unexpected package list: %v", doc.Packages)
	}

	pc := doc.Changelog["foo"]
	if pc == nil || len(pc.Versions) != 1 {
		t.Fatalf("expected one version group, got %+v", pc)
	}

	group := pc.Versions[0]
	if group.VersionTag != "1.3.0-1" || group.ReleaseType != "major" {
		t.Fatalf("unexpected group header: %+v", group)
	}
	if len(group.Changelog.Arch) != 1 || group.Changelog.Arch[0].Message != "upgpkg: 1.3.0-1" {
		t.Fatalf("unexpected packaging commits: %+v", group.Changelog.Arch)
	}
	if len(group.Changelog.Origin) != 1 {
		t.Fatalf("unexpected upstream commits: %+v", group.Changelog.Origin)
	}
	if group.CompareURLArch != "https://gitlab.archlinux.org/compare" || group.CompareURLOrigin != "https://github.com/compare" {
		t.Fatalf("unexpected compare URLs: %+v", group)
	}
}

func TestWriterMinorHopGetsMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	pkg := testPackage(t)

	entries := []Entry{
		{Package: "foo", VersionTag: "1.2.0-2", Type: version.ReleaseMinor, Message: "rebuild", CommitURL: "https://gitlab.archlinux.org/c/1", CompareURL: "https://gitlab.archlinux.org/compare"},
	}
	if err := NewWriter(path).Write(pkg, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	group := readDocument(t, path).Changelog["foo"].Versions[0]
	if group.ReleaseType != "minor" {
		t.Fatalf("unexpected release type %q", group.ReleaseType)
	}
	if group.CompareURLOrigin != MinorMarker {
		t.Fatalf("origin compare URL = %q, want the minor marker", group.CompareURLOrigin)
	}
	if len(group.Changelog.Origin) != 1 || group.Changelog.Origin[0] != MinorMarker {
		t.Fatalf("origin changelog = %v, want the minor marker", group.Changelog.Origin)
	}
}

func TestWriterDegradedMajorHopGetsErrorMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	pkg := testPackage(t)

	// Only the packaging half survived.
	entries := []Entry{
		{Package: "foo", VersionTag: "1.3.0-1", Type: version.ReleaseArch, Message: "upgpkg: 1.3.0-1", CompareURL: "https://gitlab.archlinux.org/compare"},
	}
	if err := NewWriter(path).Write(pkg, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	group := readDocument(t, path).Changelog["foo"].Versions[0]
	if len(group.Changelog.Origin) != 1 || group.Changelog.Origin[0] != OriginErrorMarker {
		t.Fatalf("origin changelog = %v, want the error marker", group.Changelog.Origin)
	}
}

func TestWriterEmptyEntriesRecordUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	pkg := testPackage(t)

	if err := NewWriter(path).Write(pkg, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pc := readDocument(t, path).Changelog["foo"]
	if len(pc.Versions) != 1 {
		t.Fatalf("expected one version group, got %d", len(pc.Versions))
	}
	group := pc.Versions[0]
	if group.ReleaseType != "unknown" || group.VersionTag != "1.2.0-1" {
		t.Fatalf("unexpected group: %+v", group)
	}
}

func TestWriterMergesWithExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	writer := NewWriter(path)

	first := testPackage(t)
	if err := writer.Write(first, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	second, err := NewPackage("bar", "2.0.0-1", "2.0.0-2")
	if err != nil {
		t.Fatalf("NewPackage: %v", err)
	}
	if err := writer.Write(second, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc := readDocument(t, path)
	if len(doc.Packages) != 2 || len(doc.Changelog) != 2 {
		t.Fatalf("expected both packages in the merged document, got %v", doc.Packages)
	}
}

func TestWriterStartsOverOnUnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	if err := NewWriter(path).Write(testPackage(t), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc := readDocument(t, path)
	if len(doc.Packages) != 1 || doc.Packages[0] != "foo" {
		t.Fatalf("expected a fresh document with just foo, got %v", doc.Packages)
	}
}

func TestWriterGroupsEntriesPerTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.json")
	pkg := testPackage(t)

	entries := []Entry{
		{Package: "foo", VersionTag: "1.2.1-1", Type: version.ReleaseArch, Message: "upgpkg: 1.2.1-1"},
		{Package: "foo", VersionTag: "1.2.1-1", Type: version.ReleaseMajor, Message: "bugfix release"},
		{Package: "foo", VersionTag: "1.3.0-1", Type: version.ReleaseArch, Message: "upgpkg: 1.3.0-1"},
		{Package: "foo", VersionTag: "1.3.0-1", Type: version.ReleaseMajor, Message: "feature release"},
	}
	if err := NewWriter(path).Write(pkg, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pc := readDocument(t, path).Changelog["foo"]
	if len(pc.Versions) != 2 {
		t.Fatalf("expected two version groups, got %d", len(pc.Versions))
	}
	if pc.Versions[0].VersionTag != "1.2.1-1" || pc.Versions[1].VersionTag != "1.3.0-1" {
		t.Fatalf("groups out of order: %+v", pc.Versions)
	}
}

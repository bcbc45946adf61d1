package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []Entry{
		{Package: "foo", VersionTag: "1.3.0-1", ReleaseType: "arch", Message: "upgpkg: foo 1.3.0-1", CommitURL: "https://gitlab.archlinux.org/c/1"},
		{Package: "foo", VersionTag: "1.3.0-1", ReleaseType: "major", Message: "fix crash"},
		{Package: "bar", VersionTag: "2.0.0-2", ReleaseType: "minor", Message: "rebuild"},
	}

	runID, err := db.RecordRun(ctx, entries)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected a non-zero run id")
	}

	got, err := db.ListRecentEntries(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRecentEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Package != "foo" || got[0].Message != "upgpkg: foo 1.3.0-1" {
		t.Fatalf("unexpected first entry %+v", got[0])
	}

	filtered, err := db.ListRecentEntries(ctx, "bar", 10)
	if err != nil {
		t.Fatalf("ListRecentEntries: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ReleaseType != "minor" {
		t.Fatalf("unexpected filtered entries %+v", filtered)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.RecordRun(ctx, []Entry{
		{Package: "foo", VersionTag: "1.3.0-1", ReleaseType: "major", Message: "a"},
		{Package: "foo", VersionTag: "1.3.0-1", ReleaseType: "arch", Message: "b"},
		{Package: "bar", VersionTag: "2.0.0-2", ReleaseType: "minor", Message: "c"},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if _, err := db.RecordRun(ctx, []Entry{
		{Package: "foo", VersionTag: "1.4.0-1", ReleaseType: "major", Message: "d"},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d packages, want 2", len(stats))
	}
	if stats[0].Package != "foo" || stats[0].EntryCount != 3 || stats[0].RunCount != 2 {
		t.Fatalf("unexpected stats %+v", stats[0])
	}
}

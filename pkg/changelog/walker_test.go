package changelog

import (
	"reflect"
	"testing"

	"github.com/archlog/archlog/pkg/version"
)

func tagIndex(names ...string) []version.Tag {
	tags := make([]version.Tag, len(names))
	for i, name := range names {
		tags[i] = version.Tag{Name: name}
	}
	return tags
}

func TestFindIntermediateTags(t *testing.T) {
	// Newest first, as the API returns them.
	index := tagIndex("1.5.0-1", "1.4.0-1", "1.3.0-2", "1.3.0-1", "1.2.0-1")

	got := FindIntermediateTags(index, "1.2.0-1", "1.5.0-1")
	want := tagIndex("1.3.0-1", "1.3.0-2", "1.4.0-1")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected intermediate tags.\nwant: %v\ngot:  %v", want, got)
	}
}

func TestFindIntermediateTagsEpochRewrite(t *testing.T) {
	index := tagIndex("1-2.0.0-1", "1-1.9.0-1", "1-1.8.0-1")

	got := FindIntermediateTags(index, "1:1.8.0-1", "1:2.0.0-1")
	want := tagIndex("1-1.9.0-1")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected intermediate tags.\nwant: %v\ngot:  %v", want, got)
	}
}

func TestFindIntermediateTagsAdjacent(t *testing.T) {
	index := tagIndex("1.3.0-1", "1.2.0-1")

	if got := FindIntermediateTags(index, "1.2.0-1", "1.3.0-1"); got != nil {
		t.Fatalf("expected no intermediate tags, got %v", got)
	}
}

func TestFindIntermediateTagsMissingBoundary(t *testing.T) {
	index := tagIndex("1.3.0-1", "1.2.0-1")

	if got := FindIntermediateTags(index, "1.1.0-1", "1.3.0-1"); got != nil {
		t.Fatalf("expected nil for a missing boundary, got %v", got)
	}
}

func TestFindIntermediateTagsDoesNotMutateIndex(t *testing.T) {
	index := tagIndex("1.5.0-1", "1.4.0-1", "1.3.0-1", "1.2.0-1")
	snapshot := append([]version.Tag(nil), index...)

	FindIntermediateTags(index, "1.2.0-1", "1.5.0-1")
	if !reflect.DeepEqual(index, snapshot) {
		t.Fatal("the tag index was reordered in place")
	}
}

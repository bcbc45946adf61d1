package version

import "testing"

func TestClosestExactMatch(t *testing.T) {
	tags := []string{"48.0", "48.1", "48.alpha", "48.beta"}
	got, ok := Closest("48.0", tags, DefaultMatchThreshold)
	if !ok || got != "48.0" {
		t.Fatalf("got (%q, %t), want (48.0, true)", got, ok)
	}
}

func TestClosestStripsReleaseCounter(t *testing.T) {
	tags := []string{"48.0", "48.1", "48.alpha", "48.beta"}
	got, ok := Closest("48.0-1", tags, DefaultMatchThreshold)
	if !ok || got != "48.0" {
		t.Fatalf("got (%q, %t), want (48.0, true)", got, ok)
	}
}

func TestClosestEpochAgainstVPrefix(t *testing.T) {
	tags := []string{"v6.3.90", "v6.3.91"}
	got, ok := Closest("1-6.3.90-1", tags, DefaultMatchThreshold)
	if !ok || got != "v6.3.90" {
		t.Fatalf("got (%q, %t), want (v6.3.90, true)", got, ok)
	}
}

func TestClosestPrefersFinalOverReleaseCandidate(t *testing.T) {
	tags := []string{"v6.15.0", "v6.15.0-rc1", "v6.14.0", "v6.14.0-rc1"}
	got, ok := Closest("6.15.0-1", tags, DefaultMatchThreshold)
	if !ok || got != "v6.15.0" {
		t.Fatalf("got (%q, %t), want (v6.15.0, true)", got, ok)
	}
}

func TestClosestNoGoodMatch(t *testing.T) {
	tags := []string{"1.0", "2.0", "3.0"}
	if got, ok := Closest("4.0", tags, DefaultMatchThreshold); ok {
		t.Fatalf("expected no match, got %q", got)
	}
	if got, ok := Closest("3.5", tags, DefaultMatchThreshold); ok {
		t.Fatalf("expected no match, got %q", got)
	}
}

func TestClosestUnderscoreSpelling(t *testing.T) {
	tags := []string{"R_2_7_0", "R_2_6_4"}
	got, ok := Closest("2.7.0-1", tags, DefaultMatchThreshold)
	if !ok || got != "R_2_7_0" {
		t.Fatalf("got (%q, %t), want (R_2_7_0, true)", got, ok)
	}
}

// Package version models Arch packaging version strings: the main/suffix tag
// split, the epoch rewrite needed before tags can be compared against hosting
// platforms, and the classification of a version transition.
package version

import (
	"fmt"
	"regexp"
	"strings"
)

// ReleaseType classifies one version transition.
type ReleaseType string

const (
	// ReleaseMinor is a packaging-only change: same upstream version, new release counter.
	ReleaseMinor ReleaseType = "minor"
	// ReleaseMajor is an upstream change: the main version component differs.
	ReleaseMajor ReleaseType = "major"
	// ReleaseArch labels packaging-repository commit entries that accompany a
	// major transition. It is never the result of Classify.
	ReleaseArch ReleaseType = "arch"
	// ReleaseUnknown is used when no comparison was applicable.
	ReleaseUnknown ReleaseType = "unknown"
)

// Tag is a single repository tag as returned by a hosting platform.
type Tag struct {
	Name      string
	CreatedAt string
}

var epochPrefix = regexp.MustCompile(`^(\d+):`)

// Normalize rewrites a leading packaging epoch marker ("1:") to its dash form
// ("1-"). Hosting platforms cannot represent ':' in tag names, so Arch tags
// like 1:1.16.5-2 appear as 1-1.16.5-2 on the packaging GitLab. Normalize is
// idempotent.
func Normalize(v string) string {
	return epochPrefix.ReplaceAllString(v, "$1-")
}

// Split breaks a tag into its main part and its suffix (the packaging release
// counter).
//
// The dash count disambiguates the two tag styles found on the packaging side:
//
//	"1-15.2.3-2"  -> main "15.2.3", suffix "1"   (epoch-main-suffix)
//	"24.12.2-1"   -> main "24.12.2", suffix "1"  (shorter segment is the suffix)
//
// A tag without any dash cannot be split and yields an error; callers skip the
// package instead of guessing.
func Split(tag string) (main, suffix string, err error) {
	parts := strings.Split(tag, "-")

	if len(parts) < 2 {
		return "", "", fmt.Errorf("version: tag %q has no main/suffix separator", tag)
	}

	if len(parts) >= 3 {
		return parts[1], parts[0], nil
	}

	if len(parts[0]) < len(parts[1]) {
		return parts[1], parts[0], nil
	}
	return parts[0], parts[1], nil
}

// SplitCounter is like Split but always takes the trailing segment as the
// packaging release counter. The intermediate-tag walker classifies hops with
// it: between two packaging-only rebuilds of an epoch tag such as
// 1-1.16.5-2 -> 1-1.16.5-3 it is the trailing counter that increments, while
// Split's positional heuristic would report the epoch for both.
func SplitCounter(tag string) (main, counter string, err error) {
	parts := strings.Split(tag, "-")

	if len(parts) < 2 {
		return "", "", fmt.Errorf("version: tag %q has no main/suffix separator", tag)
	}

	main, _, err = Split(tag)
	if err != nil {
		return "", "", err
	}
	return main, parts[len(parts)-1], nil
}

// Classify derives the release type of the transition a -> b from the two
// main/suffix pairs. Equal mains with a different suffix is a packaging-only
// (minor) release; a different main is an upstream (major) release.
func Classify(aMain, aSuffix, bMain, bSuffix string) ReleaseType {
	switch {
	case aMain == bMain && aSuffix != bSuffix:
		return ReleaseMinor
	case aMain != bMain:
		return ReleaseMajor
	default:
		return ReleaseUnknown
	}
}

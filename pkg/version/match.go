package version

import (
	"regexp"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultMatchThreshold is the minimum fuzzy similarity score (0-100) for a
// candidate tag to count as a match.
const DefaultMatchThreshold = 70

var (
	leadingEpoch    = regexp.MustCompile(`^\d+-`)
	leadingV        = regexp.MustCompile(`^v`)
	trailingCounter = regexp.MustCompile(`-\d+$`)
	underscore      = regexp.MustCompile(`_`)
)

// normalizeForMatch strips the parts of a tag spelling that routinely differ
// between the packaging side and upstream: a leading epoch prefix, a leading
// "v", underscores as separators and the trailing packaging release counter.
// Release-candidate suffixes like "-rc1" survive because "rc1" is not purely
// numeric.
func normalizeForMatch(tag string) string {
	cleaned := leadingEpoch.ReplaceAllString(tag, "")
	cleaned = leadingV.ReplaceAllString(cleaned, "")
	cleaned = underscore.ReplaceAllString(cleaned, ".")
	cleaned = trailingCounter.ReplaceAllString(cleaned, "")
	return cleaned
}

// Closest returns the candidate whose normalized spelling is most similar to
// the normalized tag, in its original (non-normalized) spelling. The second
// return value is false when no candidate reaches the threshold.
//
// Used whenever a literal tag lookup against an upstream tag index fails, e.g.
// Arch "1-6.3.90-1" against an upstream "v6.3.90".
func Closest(tag string, candidates []string, threshold int) (string, bool) {
	cleaned := normalizeForMatch(tag)

	best := ""
	bestScore := 0
	for _, candidate := range candidates {
		score := fuzzy.Ratio(cleaned, normalizeForMatch(candidate))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if bestScore < threshold {
		return "", false
	}
	return best, true
}

// SimilarityRatio exposes the raw fuzzy score (0-100) between two strings. The
// resolver uses it to verify that a recipe's old and new upstream source URLs
// still point at the same project.
func SimilarityRatio(a, b string) int {
	return fuzzy.Ratio(a, b)
}

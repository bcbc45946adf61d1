package resolver

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/version"
)

// GenericSource is the upstream coordinate pair recovered from diffing a
// packaging recipe between two packaging tags.
type GenericSource struct {
	OldURL string
	NewURL string
	OldTag string
	NewTag string
}

var (
	httpsURL       = regexp.MustCompile(`https://.*`)
	dotGitURL      = regexp.MustCompile(`https://.*?\.git`)
	githubBaseURL  = regexp.MustCompile(`https://github\.com/[^/]+/[^/?#]+`)
	untilFragment  = regexp.MustCompile(`https://[^#?]*`)
	tagFragment    = regexp.MustCompile(`#tag=([^?&\s"']+)`)
	downloadOrArch = regexp.MustCompile(`/(?:download|archive)/([^/]+)`)
)

// ExtractBaseGitURL reduces a raw recipe source line to the base repository
// URL.
//
//	git+https://gitlab.winehq.org/wine/wine.git?signed#tag=wine-10.13      -> https://gitlab.winehq.org/wine/wine
//	https://github.com/abseil/abseil-cpp/archive/20250127.0/abseil-...gz   -> https://github.com/abseil/abseil-cpp
//	https://git.kernel.org/pub/scm/utils/kernel/kmod/kmod.git#tag=v34.1    -> https://git.kernel.org/pub/scm/utils/kernel/kmod/kmod
func ExtractBaseGitURL(raw string) string {
	candidate := httpsURL.FindString(raw)
	if candidate == "" {
		return ""
	}

	switch {
	case strings.Contains(candidate, ".git"):
		if m := dotGitURL.FindString(candidate); m != "" {
			return strings.TrimSuffix(m, ".git")
		}
	case strings.Contains(candidate, "github"):
		if m := githubBaseURL.FindString(candidate); m != "" {
			return m
		}
	}

	return strings.TrimRight(untilFragment.FindString(candidate), "/")
}

// extractSourceTag pulls the version tag out of a raw source URL, either
// from a #tag= fragment or from a GitHub /download/ or /archive/ path.
func extractSourceTag(raw string) (string, bool) {
	if m := tagFragment.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if strings.Contains(raw, "github") {
		if m := downloadOrArch.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// GenericSource diffs the packaging recipe between two packaging tags by
// scraping the compare page and extracting the `source =` upstream URL from
// both revisions. The old and new base URLs must score at least the
// configured similarity; a recipe that switched upstream projects entirely
// must not be silently compared.
func (r *Resolver) GenericSource(compareURL string) (*GenericSource, bool) {
	doc, ok := r.scraper.FetchPage(compareURL)
	if !ok {
		utils.Log.Debugf("no response received from %s", compareURL)
		return nil, false
	}

	oldRaw := firstSourceLine(doc, "tr.line_holder.old")
	newRaw := firstSourceLine(doc, "tr.line_holder.new")
	if oldRaw == "" || newRaw == "" {
		utils.Log.Debugf("no source lines found in either side of %s", compareURL)
		return nil, false
	}

	utils.Log.Debugf("source URL raw old: %s", oldRaw)
	utils.Log.Debugf("source URL raw new: %s", newRaw)

	oldBase := ExtractBaseGitURL(oldRaw)
	newBase := ExtractBaseGitURL(newRaw)
	if oldBase == "" || newBase == "" {
		utils.Log.Debugf("no base git URL in one of the source lines of %s", compareURL)
		return nil, false
	}

	if score := version.SimilarityRatio(oldBase, newBase); score < r.urlSimilarity {
		utils.Log.Debugf("source URLs %s and %s are too dissimilar (score %d)", oldBase, newBase, score)
		return nil, false
	}

	oldTag, okOld := extractSourceTag(oldRaw)
	newTag, okNew := extractSourceTag(newRaw)
	if !okOld || !okNew {
		utils.Log.Debugf("no version tags in the source lines of %s", compareURL)
		return nil, false
	}

	return &GenericSource{OldURL: oldBase, NewURL: newBase, OldTag: oldTag, NewTag: newTag}, true
}

// firstSourceLine returns the first https URL found in the diff rows matched
// by the selector. Recipe source lines look like:
//
//	source = expat::git+https://github.com/libexpat/libexpat?signed#tag=R_2_7_0
func firstSourceLine(doc *goquery.Document, selector string) string {
	found := ""
	doc.Find(selector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := strings.TrimSpace(row.Text())
		if m := httpsURL.FindString(text); m != "" {
			found = m
			return false
		}
		return true
	})
	return found
}

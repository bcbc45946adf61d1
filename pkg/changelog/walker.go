package changelog

import (
	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/version"
)

// FindIntermediateTags returns the packaging tags strictly between the
// current and the new version, oldest first. The index is expected newest
// first, the way the GitLab tag listing returns it. If either boundary tag is
// missing from the index nil is returned and the caller falls back to a
// single version hop.
func FindIntermediateTags(index []version.Tag, currentVersion, newVersion string) []version.Tag {
	current := version.Normalize(currentVersion)
	newTag := version.Normalize(newVersion)

	start, end := -1, -1
	for i, tag := range index {
		switch tag.Name {
		case newTag:
			start = i
		case current:
			end = i
		}
	}

	if start == -1 || end == -1 {
		utils.Log.Error("Could not locate both ", current, " and ", newTag, " in the packaging tag index")
		return nil
	}
	if start+1 >= end {
		return nil
	}

	between := make([]version.Tag, end-start-1)
	for i, tag := range index[start+1 : end] {
		between[len(between)-1-i] = tag
	}
	return between
}

// walkIntermediateTags collects entries hop by hop across the intermediate
// tags, seeding the first hop from the package's current version and closing
// with a final hop onto the new version.
func (a *Aggregator) walkIntermediateTags(pkg *Package, intermediate []version.Tag, sourceURL, upstreamURL string) []Entry {
	var entries []Entry

	prevVersion := pkg.CurrentVersionNorm
	prevMain := pkg.CurrentMain
	prevSuffix := pkg.CurrentSuffix

	for _, tag := range intermediate {
		relMain, relSuffix, err := version.SplitCounter(tag.Name)
		if err != nil {
			utils.Log.Error("Skipping unparsable intermediate tag ", tag.Name, " of ", pkg.Name, ": ", err)
			continue
		}

		switch version.Classify(prevMain, prevSuffix, relMain, relSuffix) {
		case version.ReleaseMinor:
			entries = append(entries, a.packagingEntries(pkg, sourceURL, prevVersion, tag.Name, version.ReleaseMinor, tag.Name)...)
		case version.ReleaseMajor:
			entries = append(entries, a.packagingEntries(pkg, sourceURL, prevVersion, tag.Name, version.ReleaseArch, tag.Name)...)
			entries = append(entries, a.upstreamEntries(pkg, upstreamURL, sourceURL, prevVersion, tag.Name, tag.Name)...)
		default:
			utils.Log.Debug("No release type for hop ", prevVersion, " -> ", tag.Name, " of ", pkg.Name)
		}

		prevVersion, prevMain, prevSuffix = tag.Name, relMain, relSuffix
	}

	// Final hop from the last intermediate tag onto the new version.
	switch version.Classify(prevMain, prevSuffix, pkg.NewMain, pkg.NewSuffix) {
	case version.ReleaseMinor:
		entries = append(entries, a.packagingEntries(pkg, sourceURL, prevVersion, pkg.NewVersionNorm, version.ReleaseMinor, pkg.NewVersionNorm)...)
	case version.ReleaseMajor:
		entries = append(entries, a.packagingEntries(pkg, sourceURL, prevVersion, pkg.NewVersionNorm, version.ReleaseArch, pkg.NewVersionNorm)...)
		entries = append(entries, a.upstreamEntries(pkg, upstreamURL, sourceURL, prevVersion, pkg.NewVersionNorm, pkg.NewVersionNorm)...)
	default:
		utils.Log.Debug("No release type for final hop ", prevVersion, " -> ", pkg.NewVersionNorm, " of ", pkg.Name)
	}

	return entries
}

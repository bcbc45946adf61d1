// Package changelog reconstructs what changed between the installed and the
// pending version of a package: the packaging commits from the Arch GitLab
// recipe repository and the upstream commits from whichever platform hosts
// the project.
package changelog

import (
	"net/url"
	"strings"
	"time"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/platforms/archweb"
	"github.com/archlog/archlog/pkg/platforms/github"
	"github.com/archlog/archlog/pkg/platforms/gitlab"
	"github.com/archlog/archlog/pkg/resolver"
	"github.com/archlog/archlog/pkg/scrape"
	"github.com/archlog/archlog/pkg/version"
)

// DefaultPackagingBase is the browser URL under which the packaging recipe
// repositories live.
const DefaultPackagingBase = "https://gitlab.archlinux.org/archlinux/packaging/packages"

// Options configures an Aggregator. Zero values fall back to the defaults
// the config layer also uses.
type Options struct {
	EnabledRepositories []string
	TagThreshold        int
	URLSimilarity       int
	ScrapeTimeout       time.Duration
}

// Aggregator ties the platform clients together and produces the entries for
// one package at a time. Failures on a single hop degrade that hop, never
// the whole package.
type Aggregator struct {
	archweb  *archweb.Client
	gitlab   *gitlab.Client
	github   *github.Client
	scraper  *scrape.Scraper
	resolver *resolver.Resolver

	enabledRepos []string
	tagThreshold int

	archAPI       string
	kdeAPI        string
	packagingBase string
}

func NewAggregator(opts Options) *Aggregator {
	if opts.TagThreshold <= 0 {
		opts.TagThreshold = version.DefaultMatchThreshold
	}
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = 10 * time.Second
	}

	gl := gitlab.NewClient()
	sc := scrape.New(opts.ScrapeTimeout)

	return &Aggregator{
		archweb:       archweb.NewClient(),
		gitlab:        gl,
		github:        github.NewClient(),
		scraper:       sc,
		resolver:      resolver.New(gl, sc, opts.URLSimilarity),
		enabledRepos:  opts.EnabledRepositories,
		tagThreshold:  opts.TagThreshold,
		archAPI:       gitlab.BaseURLs["arch"],
		kdeAPI:        gitlab.BaseURLs["kde"],
		packagingBase: DefaultPackagingBase,
	}
}

// NewAggregatorWith is used by tests to wire fake platform endpoints.
func NewAggregatorWith(aw *archweb.Client, gl *gitlab.Client, gh *github.Client, sc *scrape.Scraper, rs *resolver.Resolver, archAPI, packagingBase string, tagThreshold int) *Aggregator {
	return &Aggregator{
		archweb:       aw,
		gitlab:        gl,
		github:        gh,
		scraper:       sc,
		resolver:      rs,
		tagThreshold:  tagThreshold,
		archAPI:       archAPI,
		kdeAPI:        gitlab.BaseURLs["kde"],
		packagingBase: packagingBase,
	}
}

// Build collects every changelog entry for one package. A nil return means
// the package had to be skipped entirely; a partial result means some hops
// degraded, which the per-hop helpers have already logged.
func (a *Aggregator) Build(pkg *Package) []Entry {
	if !a.ensureRepository(pkg) {
		return nil
	}

	info, ok := a.archweb.Search(pkg.Name)
	if !ok {
		utils.Log.Error("Package ", pkg.Name, " was not found on archlinux.org, skipping it")
		return nil
	}
	pkg.Description = info.Description
	pkg.UpstreamURL = info.UpstreamURL
	pkg.Base = info.Base

	nameSearch := pkg.NameSearch()
	projectPath := gitlab.ArchPackagingPrefix + nameSearch
	sourceURL := a.packagingBase + "/" + nameSearch

	index := a.gitlab.Tags(a.archAPI, projectPath)
	if index == nil {
		utils.Log.Error("No packaging tags found for ", nameSearch, ", skipping ", pkg.Name)
		return nil
	}

	// The recipe's .nvchecker.toml names the URL upstream releases are
	// actually watched on, which beats the overview URL when both exist.
	upstreamURL := pkg.UpstreamURL
	if content, ok := a.gitlab.FileContent(a.archAPI, projectPath, ".nvchecker.toml"); ok {
		if u := UpstreamURLFromNVChecker(content, nameSearch); u != "" {
			utils.Log.Debug("Using upstream URL ", u, " from .nvchecker.toml for ", pkg.Name)
			upstreamURL = u
		}
	}

	if intermediate := FindIntermediateTags(index, pkg.CurrentVersion, pkg.NewVersion); len(intermediate) > 0 {
		utils.Log.Info("Found ", len(intermediate), " intermediate release(s) for ", pkg.Name)
		return a.walkIntermediateTags(pkg, intermediate, sourceURL, upstreamURL)
	}

	var entries []Entry
	switch version.Classify(pkg.CurrentMain, pkg.CurrentSuffix, pkg.NewMain, pkg.NewSuffix) {
	case version.ReleaseMajor:
		entries = append(entries, a.packagingEntries(pkg, sourceURL, pkg.CurrentVersionNorm, pkg.NewVersionNorm, version.ReleaseArch, pkg.NewVersionNorm)...)
		entries = append(entries, a.upstreamEntries(pkg, upstreamURL, sourceURL, pkg.CurrentVersionNorm, pkg.NewVersionNorm, pkg.NewVersionNorm)...)
	case version.ReleaseMinor:
		entries = append(entries, a.packagingEntries(pkg, sourceURL, pkg.CurrentVersionNorm, pkg.NewVersionNorm, version.ReleaseMinor, pkg.NewVersionNorm)...)
	default:
		utils.Log.Error("Release type of ", pkg.Name, " (", pkg.CurrentVersion, " -> ", pkg.NewVersion, ") could not be determined")
	}
	return entries
}

// ensureRepository pins down which official repository carries the package.
// Several repositories can ship the same name (core-testing next to core),
// so anything other than exactly one reachable overview page skips the
// package rather than guessing.
func (a *Aggregator) ensureRepository(pkg *Package) bool {
	if pkg.Repository != "" {
		return true
	}

	var reachable []string
	for _, repo := range a.enabledRepos {
		if a.scraper.CheckAvailability(archweb.OverviewURL(repo, pkg.Architecture, pkg.Name)) {
			reachable = append(reachable, repo)
		}
	}

	if len(reachable) != 1 {
		utils.Log.Error("Found ", len(reachable), " candidate repositories for ", pkg.Name, ", expected exactly one, skipping it")
		return false
	}
	pkg.Repository = reachable[0]
	return true
}

// packagingEntries fetches the commits between two packaging tags of the
// recipe repository.
func (a *Aggregator) packagingEntries(pkg *Package, sourceURL, tagFrom, tagTo string, relType version.ReleaseType, shownTag string) []Entry {
	projectPath := gitlab.ArchPackagingPrefix + pkg.NameSearch()
	commits := a.gitlab.CompareCommits(a.archAPI, projectPath, tagFrom, tagTo)
	if commits == nil {
		utils.Log.Debug("No packaging commits for ", pkg.Name, " between ", tagFrom, " and ", tagTo)
		return nil
	}

	compareURL := gitlab.CompareURL(sourceURL, tagFrom, tagTo)
	var entries []Entry
	for _, commit := range commits {
		entries = append(entries, Entry{
			Package:    pkg.Name,
			VersionTag: shownTag,
			Type:       relType,
			Message:    commit.Message,
			CommitURL:  commit.URL,
			CompareURL: compareURL,
		})
	}
	return entries
}

// upstreamEntries resolves the hosting platform once and fetches the
// upstream commits for a major hop. An empty result degrades the hop to its
// packaging half.
func (a *Aggregator) upstreamEntries(pkg *Package, upstreamURL, sourceURL, tagFrom, tagTo, shownTag string) []Entry {
	target := a.resolver.Resolve(upstreamURL, pkg.NameSearch())

	switch target.Kind {
	case resolver.KindGitHub:
		return a.githubEntries(pkg, target.Owner, target.Repo, tagFrom, tagTo, shownTag)

	case resolver.KindGitLab:
		// invent.kde.org resolves as a plain GitLab instance; its API
		// lives on the configured KDE endpoint, not under gitlab.kde.org.
		api := a.kdeAPI
		if target.Subdomain != "kde" {
			api = gitlab.APIBaseURL(target.Subdomain, target.TLD)
		}
		project := target.ProjectPath + "/" + target.Repo
		return a.gitlabEntries(pkg, api, target.ProjectURL(), project, tagFrom, tagTo, shownTag)

	case resolver.KindKDE:
		// KDE projects tag plain upstream versions prefixed with v, so the
		// packaging tag is reduced to its main component first.
		vFrom, okFrom := kdeTag(tagFrom)
		vTo, okTo := kdeTag(tagTo)
		if !okFrom || !okTo {
			utils.Log.Error("KDE tags for ", pkg.Name, " could not be derived from ", tagFrom, " and ", tagTo)
			return nil
		}
		project := target.Category + "/" + target.Repo
		return a.gitlabEntries(pkg, a.kdeAPI, target.ProjectURL(), project, vFrom, vTo, shownTag)

	default:
		return a.genericEntries(pkg, sourceURL, tagFrom, tagTo, shownTag)
	}
}

func (a *Aggregator) githubEntries(pkg *Package, owner, repo, tagFrom, tagTo, shownTag string) []Entry {
	if tags := a.github.Tags(owner, repo); tags != nil {
		tagFrom = a.alignTag(tagFrom, tags)
		tagTo = a.alignTag(tagTo, tags)
	}

	commits := a.github.CompareCommits(owner, repo, tagFrom, tagTo)
	if commits == nil {
		utils.Log.Error("No upstream commits for ", pkg.Name, " between ", tagFrom, " and ", tagTo)
		return nil
	}

	compareURL := github.CompareURL(owner, repo, tagFrom, tagTo)
	return upstreamCommitEntries(pkg, shownTag, compareURL, commitPairs(commits))
}

func (a *Aggregator) gitlabEntries(pkg *Package, api, projectURL, projectPath, tagFrom, tagTo, shownTag string) []Entry {
	if tags := a.gitlab.Tags(api, projectPath); tags != nil {
		tagFrom = a.alignTag(tagFrom, tags)
		tagTo = a.alignTag(tagTo, tags)
	}

	commits := a.gitlab.CompareCommits(api, projectPath, tagFrom, tagTo)
	if commits == nil {
		utils.Log.Error("No upstream commits for ", pkg.Name, " between ", tagFrom, " and ", tagTo)
		return nil
	}

	compareURL := gitlab.CompareURL(projectURL, tagFrom, tagTo)
	var pairs [][2]string
	for _, commit := range commits {
		pairs = append(pairs, [2]string{commit.Message, commit.URL})
	}
	return upstreamCommitEntries(pkg, shownTag, compareURL, pairs)
}

// genericEntries recovers the upstream coordinates from the recipe diff and
// dispatches to whichever platform the recovered URL belongs to.
func (a *Aggregator) genericEntries(pkg *Package, sourceURL, tagFrom, tagTo, shownTag string) []Entry {
	src, ok := a.resolver.GenericSource(gitlab.CompareURL(sourceURL, tagFrom, tagTo))
	if !ok {
		utils.Log.Error("Upstream source of ", pkg.Name, " could not be recovered from the recipe diff")
		return nil
	}

	switch {
	case strings.Contains(src.NewURL, "github.com"):
		owner, repo, ok := resolver.ExtractGitHubRepo(src.NewURL)
		if !ok {
			utils.Log.Error("No GitHub coordinates in recovered URL ", src.NewURL)
			return nil
		}
		return a.githubEntries(pkg, owner, repo, src.OldTag, src.NewTag, shownTag)

	case strings.Contains(src.NewURL, "git.kernel.org"):
		return a.kernelEntries(pkg, src.NewURL, src.OldTag, src.NewTag, shownTag)

	default:
		utils.Log.Error("Recovered URL ", src.NewURL, " belongs to no supported platform")
		return nil
	}
}

// kernelEntries walks a cgit log page on git.kernel.org, collecting the
// commit rows that sit between the two release tags.
func (a *Aggregator) kernelEntries(pkg *Package, repoURL, tagFrom, tagTo, shownTag string) []Entry {
	compareURL := repoURL + "/log/?id=" + url.QueryEscape(tagTo) + "&id2=" + url.QueryEscape(tagFrom)

	doc, ok := a.scraper.FetchPage(compareURL)
	if !ok {
		utils.Log.Error("Log page for ", pkg.Name, " on git.kernel.org could not be fetched")
		return nil
	}

	base, err := url.Parse(repoURL)
	if err != nil {
		return nil
	}

	var pairs [][2]string
	for _, row := range scrape.RowsBetween(doc, "tr", tagTo, tagFrom) {
		link := row.Find("a").First()
		href, _ := link.Attr("href")
		commitURL := ""
		if ref, err := url.Parse(href); err == nil {
			commitURL = base.ResolveReference(ref).String()
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(link.Text()), commitURL})
	}
	if pairs == nil {
		utils.Log.Error("No commit rows between ", tagFrom, " and ", tagTo, " on ", compareURL)
		return nil
	}
	return upstreamCommitEntries(pkg, shownTag, compareURL, pairs)
}

// alignTag maps a packaging tag onto the closest spelling the upstream
// project actually uses. The literal tag wins when present.
func (a *Aggregator) alignTag(tag string, upstream []version.Tag) string {
	names := make([]string, len(upstream))
	for i, t := range upstream {
		if t.Name == tag {
			return tag
		}
		names[i] = t.Name
	}

	if closest, ok := version.Closest(tag, names, a.tagThreshold); ok {
		utils.Log.Debug("Using upstream tag ", closest, " for ", tag)
		return closest
	}
	utils.Log.Debug("No upstream tag close enough to ", tag)
	return tag
}

func kdeTag(packagingTag string) (string, bool) {
	main, _, err := version.Split(packagingTag)
	if err != nil {
		return "", false
	}
	return "v" + main, true
}

func commitPairs(commits []github.Commit) [][2]string {
	var pairs [][2]string
	for _, commit := range commits {
		pairs = append(pairs, [2]string{commit.Message, commit.URL})
	}
	return pairs
}

func upstreamCommitEntries(pkg *Package, shownTag, compareURL string, pairs [][2]string) []Entry {
	var entries []Entry
	for _, pair := range pairs {
		entries = append(entries, Entry{
			Package:    pkg.Name,
			VersionTag: shownTag,
			Type:       version.ReleaseMajor,
			Message:    pair[0],
			CommitURL:  pair[1],
			CompareURL: compareURL,
		})
	}
	return entries
}

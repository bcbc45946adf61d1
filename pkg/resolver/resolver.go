// Package resolver maps a package's upstream URL (or, failing that, its
// packaging recipe metadata) to the hosting platform that carries the
// project's tags and commits.
package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/platforms/gitlab"
	"github.com/archlog/archlog/pkg/scrape"
)

// Kind selects which Target variant is active.
type Kind string

const (
	KindGitHub      Kind = "github"
	KindGitLab      Kind = "gitlab"
	KindKDE         Kind = "kde"
	KindGenericDiff Kind = "generic"
)

// Target identifies the upstream hosting coordinates of one package. Exactly
// one variant is active, chosen once per package.
type Target struct {
	Kind Kind

	// GitHub
	Owner string

	// GitLab: gitlab[.<Subdomain>].<TLD>/<ProjectPath>/<Repo>
	Subdomain   string
	TLD         string
	ProjectPath string

	// KDE: invent.kde.org/<Category>/<Repo>
	Category string

	Repo string
}

// DefaultURLSimilarity is the minimum fuzzy score (0-100) between the old
// and new recipe source URLs for the generic path to accept them as the same
// project.
const DefaultURLSimilarity = 80

// KDECategories are the known invent.kde.org top-level groups.
var KDECategories = []string{
	"plasma",
	"frameworks",
	"utilities",
	"libraries",
	"system",
	"graphics",
	"accessibility",
	"education",
	"games",
}

type Resolver struct {
	gitlab        *gitlab.Client
	scraper       *scrape.Scraper
	urlSimilarity int
	appsBaseURL   string
}

func New(gl *gitlab.Client, sc *scrape.Scraper, urlSimilarity int) *Resolver {
	if urlSimilarity <= 0 {
		urlSimilarity = DefaultURLSimilarity
	}
	return &Resolver{
		gitlab:        gl,
		scraper:       sc,
		urlSimilarity: urlSimilarity,
		appsBaseURL:   "https://apps.kde.org",
	}
}

// Resolve picks the platform strategy for an upstream URL. First match wins:
// GitLab-style hosts (invent.kde.org included), then github.com, then other
// kde.org pages via category resolution, and finally the generic recipe-diff
// fallback for everything else.
func (r *Resolver) Resolve(upstreamURL, packageName string) Target {
	switch {
	case strings.Contains(upstreamURL, "gitlab") || strings.Contains(upstreamURL, "invent.kde.org"):
		if sub, tld, projectPath, repo, ok := ParseGitLabURL(upstreamURL); ok {
			return Target{Kind: KindGitLab, Subdomain: sub, TLD: tld, ProjectPath: projectPath, Repo: repo}
		}
		utils.Log.Errorf("no GitLab project coordinates found in %s", upstreamURL)
		return Target{Kind: KindGenericDiff, Repo: packageName}

	case strings.Contains(upstreamURL, "github.com"):
		if owner, repo, ok := ExtractGitHubRepo(upstreamURL); ok {
			return Target{Kind: KindGitHub, Owner: owner, Repo: repo}
		}
		utils.Log.Errorf("no GitHub project coordinates found in %s", upstreamURL)
		return Target{Kind: KindGenericDiff, Repo: packageName}

	case strings.Contains(upstreamURL, "kde.org"):
		if category, ok := r.resolveKDECategory(upstreamURL, packageName); ok {
			return Target{Kind: KindKDE, Category: category, Repo: packageName}
		}
		utils.Log.Errorf("KDE category for %s could not be resolved", packageName)
		return Target{Kind: KindGenericDiff, Repo: packageName}

	default:
		return Target{Kind: KindGenericDiff, Repo: packageName}
	}
}

// ProjectURL is the browser-facing project page for a resolved target.
func (t Target) ProjectURL() string {
	switch t.Kind {
	case KindGitHub:
		return fmt.Sprintf("https://github.com/%s/%s", t.Owner, t.Repo)
	case KindGitLab:
		host := "gitlab." + t.TLD
		if t.Subdomain == "kde" {
			host = "invent.kde.org"
		} else if t.Subdomain != "" {
			host = fmt.Sprintf("gitlab.%s.%s", t.Subdomain, t.TLD)
		}
		if t.ProjectPath != "" {
			return fmt.Sprintf("https://%s/%s/%s", host, t.ProjectPath, t.Repo)
		}
		return fmt.Sprintf("https://%s/%s", host, t.Repo)
	case KindKDE:
		return fmt.Sprintf("https://invent.kde.org/%s/%s", t.Category, t.Repo)
	default:
		return ""
	}
}

var gitlabUISuffix = regexp.MustCompile(`/-($|/.*)`)

// ParseGitLabURL extracts {subdomain, tld, projectPath, repo} from a
// GitLab-style project URL.
//
//	https://gitlab.freedesktop.org/xorg/xserver/-/tags -> ("freedesktop", "org", "xorg", "xserver")
//	https://gitlab.com/kernel-firmware/linux-firmware  -> ("", "com", "kernel-firmware", "linux-firmware")
//	https://invent.kde.org/plasma/spectacle/           -> ("kde", "org", "plasma", "spectacle")
func ParseGitLabURL(rawURL string) (subdomain, tld, projectPath, repo string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", "", "", false
	}
	host := u.Hostname()

	if host == "invent.kde.org" {
		subdomain, tld = "kde", "org"
	} else {
		dn, err := publicsuffix.Parse(host)
		if err != nil {
			return "", "", "", "", false
		}
		tld = dn.TLD
		// gitlab.com has no instance subdomain; gitlab.<sub>.<tld> does.
		if dn.SLD != "gitlab" {
			subdomain = dn.SLD
		}
	}

	// Strip the GitLab UI suffix (/-/tags, /-/blob/..., ...) before
	// splitting the project path.
	path := gitlabUISuffix.ReplaceAllString(u.Path, "")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", "", "", false
	}

	repo = parts[len(parts)-1]
	projectPath = strings.Join(parts[:len(parts)-1], "/")
	return subdomain, tld, projectPath, repo, true
}

var githubRepoPattern = regexp.MustCompile(`https://github\.com/([^/]+)/([^/?#]+)`)

// ExtractGitHubRepo pulls owner and repository out of a GitHub project URL.
func ExtractGitHubRepo(upstreamURL string) (owner, repo string, ok bool) {
	match := githubRepoPattern.FindStringSubmatch(upstreamURL)
	if match == nil {
		return "", "", false
	}
	return match[1], strings.TrimSuffix(match[2], ".git"), true
}

// resolveKDECategory finds the invent.kde.org group of a package. Strategies
// in order: a category name already present in the upstream URL, probing
// every known category against the invent.kde.org API, and scraping the
// package's apps.kde.org page for its declared category link.
func (r *Resolver) resolveKDECategory(upstreamURL, packageName string) (string, bool) {
	lowered := strings.ToLower(upstreamURL)
	for _, category := range KDECategories {
		if strings.Contains(lowered, category) {
			utils.Log.Debugf("KDE category %s found in URL %s", category, upstreamURL)
			return category, true
		}
	}

	for _, category := range KDECategories {
		if r.gitlab.ProjectExists(gitlab.BaseURLs["kde"], category+"/"+packageName) {
			utils.Log.Debugf("KDE category %s found by probing invent.kde.org", category)
			return category, true
		}
	}

	doc, ok := r.scraper.FetchPage(r.appsBaseURL + "/" + packageName)
	if !ok {
		return "", false
	}
	declared := strings.ToLower(strings.TrimSpace(doc.Find(`a[href^="/categories/"]`).First().Text()))
	for _, category := range KDECategories {
		if strings.Contains(declared, category) {
			utils.Log.Debugf("KDE category %s found on apps.kde.org", category)
			return category, true
		}
	}

	return "", false
}

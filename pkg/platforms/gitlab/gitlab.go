// Package gitlab handles anonymous access to GitLab REST APIs for public
// data. The same client serves every GitLab instance (gitlab.archlinux.org,
// gitlab.com, invent.kde.org, ...); the API base URL is a per-call argument
// because one run routinely talks to several instances.
// Documentation: https://docs.gitlab.com/api/rest/
package gitlab

import (
	"fmt"
	"net/url"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/version"
	"github.com/archlog/archlog/pkg/whttp"
)

// BaseURLs lists known instances that host a lot of packages.
var BaseURLs = map[string]string{
	"arch": "https://gitlab.archlinux.org/api/v4",
	"kde":  "https://invent.kde.org/api/v4",
}

// ArchPackagingPrefix is the group path under which every Arch packaging
// recipe repository lives.
const ArchPackagingPrefix = "archlinux/packaging/packages/"

// Commit is one entry of a tag-to-tag comparison.
type Commit struct {
	Message string
	Date    string
	URL     string
}

type Client struct {
	http *whttp.Client
}

func NewClient() *Client {
	return &Client{http: whttp.NewClient()}
}

// NewClientWith is used by tests to inject a custom request client.
func NewClientWith(httpClient *whttp.Client) *Client {
	return &Client{http: httpClient}
}

// APIBaseURL builds the API base for a GitLab instance host described by an
// optional subdomain plus TLD, e.g. ("freedesktop", "org") ->
// https://gitlab.freedesktop.org/api/v4 and ("", "com") ->
// https://gitlab.com/api/v4. KDE's instance answers on invent.kde.org
// rather than a gitlab. host.
func APIBaseURL(subdomain, tld string) string {
	if subdomain == "kde" && tld == "org" {
		return BaseURLs["kde"]
	}
	if subdomain != "" {
		return fmt.Sprintf("https://gitlab.%s.%s/api/v4", subdomain, tld)
	}
	return fmt.Sprintf("https://gitlab.%s/api/v4", tld)
}

// Tags returns the project tags with their creation dates, newest first as
// GitLab orders them, every name run through the epoch rewrite. Returns nil
// when the project has no tags or the request fails.
// Example: https://gitlab.archlinux.org/api/v4/projects/archlinux%2Fpackaging%2Fpackages%2Fmesa/repository/tags
func (c *Client) Tags(baseURL, projectPath string) []version.Tag {
	reqURL := fmt.Sprintf("%s/projects/%s/repository/tags", baseURL, url.QueryEscape(projectPath))
	utils.Log.Debugf("GitLab API URL: %s", reqURL)

	result, ok := c.http.GetJSON(reqURL)
	if !ok {
		utils.Log.Errorf("GitLab API: fetching tags for %s failed", projectPath)
		return nil
	}

	var tags []version.Tag
	for _, tag := range result.Array() {
		tags = append(tags, version.Tag{
			Name:      version.Normalize(tag.Get("name").String()),
			CreatedAt: tag.Get("commit.created_at").String(),
		})
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}

// CompareCommits returns the commits between two tags.
// Example: https://gitlab.archlinux.org/api/v4/projects/archlinux%2Fpackaging%2Fpackages%2Fmesa/repository/compare?from=1-25.0.4-1&to=1-25.0.5-1
func (c *Client) CompareCommits(baseURL, projectPath, tagFrom, tagTo string) []Commit {
	reqURL := fmt.Sprintf("%s/projects/%s/repository/compare?from=%s&to=%s",
		baseURL, url.QueryEscape(projectPath), url.QueryEscape(tagFrom), url.QueryEscape(tagTo))
	utils.Log.Debugf("GitLab API URL: %s", reqURL)

	result, ok := c.http.GetJSON(reqURL)
	if !ok {
		utils.Log.Errorf("GitLab API: comparing %s...%s for %s failed", tagFrom, tagTo, projectPath)
		return nil
	}

	var commits []Commit
	for _, commit := range result.Get("commits").Array() {
		commits = append(commits, Commit{
			Message: commit.Get("title").String(),
			Date:    commit.Get("created_at").String(),
			URL:     commit.Get("web_url").String(),
		})
	}
	return commits
}

// FileContent returns the raw content of a file on the project's default
// branch, or ok=false when the file does not exist. Used for the recipe's
// .nvchecker.toml and PKGBUILD.
func (c *Client) FileContent(baseURL, projectPath, filePath string) (string, bool) {
	reqURL := fmt.Sprintf("%s/projects/%s/repository/files/%s/raw?ref=main",
		baseURL, url.QueryEscape(projectPath), url.QueryEscape(filePath))
	utils.Log.Debugf("GitLab API URL: %s", reqURL)

	return c.http.GetBody(reqURL)
}

// ProjectExists probes whether a project path exists on an instance. The KDE
// category resolution brute-forces invent.kde.org categories with this.
func (c *Client) ProjectExists(baseURL, projectPath string) bool {
	reqURL := fmt.Sprintf("%s/projects/%s", baseURL, url.QueryEscape(projectPath))
	utils.Log.Debugf("GitLab API URL: %s", reqURL)

	_, ok := c.http.GetJSON(reqURL)
	return ok
}

// CompareURL is the user-facing comparison page for two tags.
func CompareURL(projectURL, tagFrom, tagTo string) string {
	return fmt.Sprintf("%s/-/compare/%s...%s", projectURL, tagFrom, tagTo)
}

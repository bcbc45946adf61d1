// Package github handles anonymous access to the GitHub REST API for public
// data. Documentation: https://docs.github.com/en/rest
package github

import (
	"fmt"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/version"
	"github.com/archlog/archlog/pkg/whttp"
)

const (
	DefaultBaseURL = "https://api.github.com"

	// tagsPerPage is the page size requested from the tags endpoint.
	tagsPerPage = 100
)

// Commit is one entry of a tag-to-tag comparison.
type Commit struct {
	Message string
	Date    string
	URL     string
}

type Client struct {
	BaseURL string
	http    *whttp.Client
}

// NewClient builds a client for api.github.com. GitHub signals anonymous
// rate limiting with 403 plus X-RateLimit-* headers, so 403 is retryable
// here, unlike on the other platforms.
func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		http:    whttp.NewClient(whttp.WithRateLimitHeaders()),
	}
}

// NewClientWithBase is used by tests to point the client at a fake API.
func NewClientWithBase(baseURL string, httpClient *whttp.Client) *Client {
	return &Client{BaseURL: baseURL, http: httpClient}
}

// Tags returns the repository tags, newest first, as GitHub orders them.
// The tags endpoint paginates through Link headers; all pages up to the
// shared page cap are concatenated. Returns nil on failure.
func (c *Client) Tags(owner, repo string) []version.Tag {
	url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d", c.BaseURL, owner, repo, tagsPerPage)
	utils.Log.Debugf("GitHub API URL: %s", url)

	pages, ok := c.http.GetJSONPaged(url, tagsPerPage)
	if !ok {
		utils.Log.Errorf("GitHub API: fetching tags for %s/%s failed", owner, repo)
		return nil
	}

	var tags []version.Tag
	for _, page := range pages {
		for _, tag := range page.Array() {
			// The tags endpoint does not expose creation dates.
			tags = append(tags, version.Tag{Name: version.Normalize(tag.Get("name").String())})
		}
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}

// CompareCommits returns the commits between two tags.
// Example: https://api.github.com/repos/torvalds/linux/compare/v6.8...v6.9
func (c *Client) CompareCommits(owner, repo, tagFrom, tagTo string) []Commit {
	url := fmt.Sprintf("%s/repos/%s/%s/compare/%s...%s", c.BaseURL, owner, repo, tagFrom, tagTo)
	utils.Log.Debugf("GitHub API URL: %s", url)

	result, ok := c.http.GetJSON(url)
	if !ok {
		utils.Log.Errorf("GitHub API: comparing %s...%s for %s/%s failed", tagFrom, tagTo, owner, repo)
		return nil
	}

	var commits []Commit
	for _, commit := range result.Get("commits").Array() {
		commits = append(commits, Commit{
			Message: commit.Get("commit.message").String(),
			Date:    commit.Get("commit.author.date").String(),
			URL:     commit.Get("html_url").String(),
		})
	}
	return commits
}

// CompareURL is the user-facing comparison page for two tags.
func CompareURL(owner, repo, tagFrom, tagTo string) string {
	return fmt.Sprintf("https://github.com/%s/%s/compare/%s...%s", owner, repo, tagFrom, tagTo)
}

// Package archweb handles anonymous access to the archlinux.org package
// search API.
package archweb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/whttp"
)

const DefaultBaseURL = "https://archlinux.org"

// PackageInfo is the overview data of one official Arch package.
type PackageInfo struct {
	Name         string
	Base         string // several binary packages can share one recipe (pkgbase)
	Description  string
	UpstreamURL  string
	Repository   string
	Architecture string
}

type Client struct {
	BaseURL string
	http    *whttp.Client
}

func NewClient() *Client {
	return &Client{BaseURL: DefaultBaseURL, http: whttp.NewClient()}
}

// NewClientWithBase is used by tests to point the client at a fake API.
func NewClientWithBase(baseURL string, httpClient *whttp.Client) *Client {
	return &Client{BaseURL: baseURL, http: httpClient}
}

// Search returns the overview information for an official package.
// Example: https://archlinux.org/packages/search/json/?name=bluez
func (c *Client) Search(packageName string) (*PackageInfo, bool) {
	reqURL := fmt.Sprintf("%s/packages/search/json/?name=%s", c.BaseURL, url.QueryEscape(packageName))
	utils.Log.Debugf("ArchLinux API URL: %s", reqURL)

	result, ok := c.http.GetJSON(reqURL)
	if !ok {
		utils.Log.Errorf("ArchLinux API: search for %s failed", packageName)
		return nil, false
	}

	first := result.Get("results.0")
	if !first.Exists() {
		utils.Log.Debugf("ArchLinux API: no results for %s", packageName)
		return nil, false
	}

	info := &PackageInfo{
		Name:         packageName,
		Base:         first.Get("pkgbase").String(),
		Description:  first.Get("pkgdesc").String(),
		UpstreamURL:  first.Get("url").String(),
		Repository:   first.Get("repo").String(),
		Architecture: first.Get("arch").String(),
	}

	// A pkgbase equal to the package name is no indirection at all.
	if info.Base == packageName {
		info.Base = ""
	}

	return info, true
}

// OverviewURL is the package's page on archlinux.org.
// Example: https://archlinux.org/packages/core/any/automake/
func OverviewURL(repository, architecture, packageName string) string {
	return fmt.Sprintf("https://archlinux.org/packages/%s/%s/%s/",
		strings.ToLower(repository), architecture, packageName)
}

package resolver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/archlog/archlog/pkg/platforms/gitlab"
	"github.com/archlog/archlog/pkg/scrape"
	"github.com/archlog/archlog/pkg/whttp"
)

func TestParseGitLabURL(t *testing.T) {
	cases := []struct {
		url         string
		subdomain   string
		tld         string
		projectPath string
		repo        string
	}{
		{"https://gitlab.freedesktop.org/xorg/xserver/-/tags", "freedesktop", "org", "xorg", "xserver"},
		{"https://gitlab.gnome.org/GNOME/gimp", "gnome", "org", "GNOME", "gimp"},
		{"https://gitlab.com/kernel-firmware/linux-firmware", "", "com", "kernel-firmware", "linux-firmware"},
		{"https://invent.kde.org/plasma/spectacle/", "kde", "org", "plasma", "spectacle"},
	}

	for _, c := range cases {
		subdomain, tld, projectPath, repo, ok := ParseGitLabURL(c.url)
		if !ok {
			t.Fatalf("ParseGitLabURL(%q) failed", c.url)
		}
		if subdomain != c.subdomain || tld != c.tld || projectPath != c.projectPath || repo != c.repo {
			t.Fatalf("ParseGitLabURL(%q) = (%q, %q, %q, %q), want (%q, %q, %q, %q)",
				c.url, subdomain, tld, projectPath, repo, c.subdomain, c.tld, c.projectPath, c.repo)
		}
	}
}

func TestParseGitLabURLRejectsBareHost(t *testing.T) {
	if _, _, _, _, ok := ParseGitLabURL("https://gitlab.com/"); ok {
		t.Fatal("expected a bare host to be rejected")
	}
}

func TestExtractGitHubRepo(t *testing.T) {
	owner, repo, ok := ExtractGitHubRepo("https://github.com/dbeaver/dbeaver")
	if !ok || owner != "dbeaver" || repo != "dbeaver" {
		t.Fatalf("got (%q, %q, %v)", owner, repo, ok)
	}

	owner, repo, ok = ExtractGitHubRepo("https://github.com/fwupd/fwupd.git")
	if !ok || owner != "fwupd" || repo != "fwupd" {
		t.Fatalf(".git suffix not stripped: (%q, %q, %v)", owner, repo, ok)
	}

	if _, _, ok := ExtractGitHubRepo("https://example.com/foo/bar"); ok {
		t.Fatal("expected a non-GitHub URL to be rejected")
	}
}

func newTestResolver() *Resolver {
	httpClient := whttp.NewClient(whttp.WithMaxAttempts(1))
	return New(gitlab.NewClientWith(httpClient), scrape.NewWith(httpClient), DefaultURLSimilarity)
}

func TestResolveOrder(t *testing.T) {
	r := newTestResolver()

	target := r.Resolve("https://gitlab.freedesktop.org/xorg/xserver", "xorg-server")
	if target.Kind != KindGitLab || target.Subdomain != "freedesktop" {
		t.Fatalf("unexpected target %+v", target)
	}

	// invent.kde.org is a GitLab instance, not the KDE category path.
	target = r.Resolve("https://invent.kde.org/plasma/spectacle", "spectacle")
	if target.Kind != KindGitLab || target.Subdomain != "kde" {
		t.Fatalf("unexpected target %+v", target)
	}

	target = r.Resolve("https://github.com/owner/repo", "repo")
	if target.Kind != KindGitHub || target.Owner != "owner" {
		t.Fatalf("unexpected target %+v", target)
	}

	target = r.Resolve("https://www.sqlite.org/index.html", "sqlite")
	if target.Kind != KindGenericDiff || target.Repo != "sqlite" {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestResolveKDECategoryFromURL(t *testing.T) {
	target := newTestResolver().Resolve("https://apps.kde.org/utilities/ark", "ark")
	if target.Kind != KindKDE || target.Category != "utilities" || target.Repo != "ark" {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestResolveKDECategoryFromAppsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v4/projects/") {
			// No category probe succeeds.
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/categories/graphics">Graphics</a></body></html>`)
	}))
	defer server.Close()

	httpClient := whttp.NewClient(whttp.WithMaxAttempts(1))
	r := New(gitlab.NewClientWith(httpClient), scrape.NewWith(httpClient), DefaultURLSimilarity)
	r.appsBaseURL = server.URL

	saved := gitlab.BaseURLs["kde"]
	gitlab.BaseURLs["kde"] = server.URL + "/api/v4"
	defer func() { gitlab.BaseURLs["kde"] = saved }()

	target := r.Resolve("https://kde.org/applications/okular", "okular")
	if target.Kind != KindKDE || target.Category != "graphics" {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestProjectURL(t *testing.T) {
	cases := []struct {
		target Target
		want   string
	}{
		{Target{Kind: KindGitHub, Owner: "owner", Repo: "repo"}, "https://github.com/owner/repo"},
		{Target{Kind: KindGitLab, Subdomain: "freedesktop", TLD: "org", ProjectPath: "xorg", Repo: "xserver"}, "https://gitlab.freedesktop.org/xorg/xserver"},
		{Target{Kind: KindGitLab, TLD: "com", ProjectPath: "kernel-firmware", Repo: "linux-firmware"}, "https://gitlab.com/kernel-firmware/linux-firmware"},
		{Target{Kind: KindGitLab, Subdomain: "kde", TLD: "org", ProjectPath: "plasma", Repo: "spectacle"}, "https://invent.kde.org/plasma/spectacle"},
		{Target{Kind: KindKDE, Category: "utilities", Repo: "ark"}, "https://invent.kde.org/utilities/ark"},
	}

	for _, c := range cases {
		if got := c.target.ProjectURL(); got != c.want {
			t.Fatalf("ProjectURL(%+v) = %q, want %q", c.target, got, c.want)
		}
	}
}

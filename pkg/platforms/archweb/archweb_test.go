package archweb

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/archlog/archlog/pkg/whttp"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/search/json/" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("name") {
		case "spectacle":
			fmt.Fprint(w, `{"results": [{"pkgname": "spectacle", "pkgbase": "spectacle",
				"pkgdesc": "KDE screenshot capture utility", "url": "https://apps.kde.org/spectacle/",
				"repo": "extra", "arch": "x86_64"}]}`)
		case "python-cairo":
			fmt.Fprint(w, `{"results": [{"pkgname": "python-cairo", "pkgbase": "pycairo",
				"pkgdesc": "Python bindings for cairo", "url": "https://pycairo.readthedocs.io",
				"repo": "extra", "arch": "x86_64"}]}`)
		default:
			fmt.Fprint(w, `{"results": []}`)
		}
	}))
	defer server.Close()

	client := NewClientWithBase(server.URL, whttp.NewClient(whttp.WithMaxAttempts(1)))

	info, ok := client.Search("spectacle")
	if !ok {
		t.Fatal("expected a result")
	}
	// pkgbase equal to the name is no indirection.
	if info.Base != "" {
		t.Fatalf("base = %q, want empty", info.Base)
	}
	if info.Repository != "extra" || info.Architecture != "x86_64" {
		t.Fatalf("unexpected info %+v", info)
	}

	info, ok = client.Search("python-cairo")
	if !ok {
		t.Fatal("expected a result")
	}
	if info.Base != "pycairo" {
		t.Fatalf("base = %q, want pycairo", info.Base)
	}

	if _, ok := client.Search("no-such-package"); ok {
		t.Fatal("expected no result")
	}
}

func TestOverviewURL(t *testing.T) {
	got := OverviewURL("Extra", "x86_64", "bluez")
	if got != "https://archlinux.org/packages/extra/x86_64/bluez/" {
		t.Fatalf("got %q", got)
	}
}

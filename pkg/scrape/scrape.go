// Package scrape provides the HTML fallback used for hosting sites without a
// public JSON API: page fetching with goquery parsing, availability probing
// and the kernel.org log-range walker.
package scrape

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/whttp"
)

type Scraper struct {
	http *whttp.Client
}

// New builds a scraper whose per-request timeout comes from the
// webscraper-delay config value.
func New(timeout time.Duration) *Scraper {
	return &Scraper{http: whttp.NewClient(whttp.WithTimeout(timeout))}
}

// NewWith is used by tests to inject a custom request client.
func NewWith(httpClient *whttp.Client) *Scraper {
	return &Scraper{http: httpClient}
}

// FetchPage fetches a URL and parses it, or ok=false after the request
// client's retries are exhausted.
func (s *Scraper) FetchPage(url string) (*goquery.Document, bool) {
	body, ok := s.http.GetBody(url)
	if !ok {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		utils.Log.Errorf("parsing HTML from %s failed: %v", url, err)
		return nil, false
	}
	return doc, true
}

// CheckAvailability reports whether a URL answers with a 2xx status. Used to
// probe which enabled repository actually carries a package.
func (s *Scraper) CheckAvailability(url string) bool {
	res, err := s.http.Do(&whttp.Request{URL: url})
	if err != nil {
		utils.Log.Debugf("availability check for %s failed: %v", url, err)
		return false
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		utils.Log.Debugf("availability check for %s: HTTP %d", url, res.StatusCode)
		return false
	}
	utils.Log.Debugf("website %s is reachable (%s)", url, res.HTTPTitle)
	return true
}

// RowsBetween collects the row elements that appear after the row containing
// startText and before the row containing endText. cgit log pages render one
// commit per table row with the tags inline, so the rows between two tag rows
// are exactly the commits between the two releases.
func RowsBetween(doc *goquery.Document, rowSelector, startText, endText string) []*goquery.Selection {
	var rows []*goquery.Selection
	collecting := false

	doc.Find(rowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := row.Text()

		if !collecting && strings.Contains(text, startText) {
			collecting = true
		}
		if collecting && strings.Contains(text, endText) {
			return false
		}
		if collecting {
			rows = append(rows, row)
		}
		return true
	})

	return rows
}

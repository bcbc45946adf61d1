// Package whttp wraps go-retryablehttp into the request client shared by all
// platform packages. Each hosting platform gets its own Client so retry rules
// (which statuses retry, how long to wait) can differ without duplicating the
// request loop.
package whttp

import (
	"context"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/archlog/archlog/internal/utils"
)

const (
	// DefaultMaxAttempts is the total number of tries per logical call,
	// including the first one.
	DefaultMaxAttempts = 3

	// DefaultBackoffFactor yields waits of 1s, 2s, 4s, 8s between attempts
	// when the response carries no explicit wait hint.
	DefaultBackoffFactor = 2

	DefaultTimeout = 10 * time.Second

	// MaxPages caps Link-header pagination.
	MaxPages = 8

	UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:83.0) Gecko/20100101 Firefox/83.0"
)

// Statuses worth retrying on every platform:
// 429 rate limiting, 5xx transient server-side failures.
var retryStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Header struct {
	Name  string
	Value string
}

type Request struct {
	URL     string
	Method  string
	Headers []Header
}

type Response struct {
	StatusCode     int
	Header         http.Header
	BodyString     string
	HTTPTitle      string
	ResponseLength int
}

// Client is a per-platform request client with bounded retries.
type Client struct {
	http          *retryablehttp.Client
	maxAttempts   int
	backoffFactor float64
	timeout       time.Duration

	// retryOn403 marks the platform that signals rate limiting with 403
	// plus X-RateLimit-* headers (GitHub does this for anonymous clients).
	retryOn403 bool
}

type Option func(*Client)

func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

func WithBackoffFactor(f float64) Option {
	return func(c *Client) { c.backoffFactor = f }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimitHeaders marks 403 as retryable and honors X-RateLimit-Reset.
func WithRateLimitHeaders() Option {
	return func(c *Client) { c.retryOn403 = true }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		maxAttempts:   DefaultMaxAttempts,
		backoffFactor: DefaultBackoffFactor,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = c.maxAttempts - 1
	rc.RetryWaitMax = 30 * time.Minute
	rc.HTTPClient.Timeout = c.timeout
	rc.CheckRetry = c.checkRetry
	rc.Backoff = c.backoff
	c.http = rc

	return c
}

func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if retryStatusCodes[resp.StatusCode] {
		return true, nil
	}
	if resp.StatusCode == http.StatusForbidden && c.retryOn403 {
		return true, nil
	}
	return false, nil
}

// backoff picks the wait time before the next attempt. Selection order:
// an explicit Retry-After header, then the remaining seconds until the
// X-RateLimit-Reset timestamp (403 on rate-limited platforms only), then
// exponential backoff backoffFactor**attempt.
func (c *Client) backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil {
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}

		if resp.StatusCode == http.StatusForbidden && c.retryOn403 {
			if s := resp.Header.Get("X-RateLimit-Reset"); s != "" {
				if reset, err := strconv.ParseInt(s, 10, 64); err == nil {
					if wait := time.Until(time.Unix(reset, 0)); wait > 0 {
						return wait
					}
					return 0
				}
			}
		}
	}

	return time.Duration(math.Pow(c.backoffFactor, float64(attemptNum)) * float64(time.Second))
}

// Do sends one request with retries and returns the final response. A nil
// error does not imply a 2xx status; callers that only care about success
// should use GetJSON or GetBody instead.
func (c *Client) Do(wReq *Request) (*Response, error) {
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := retryablehttp.NewRequest(method, wReq.URL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		utils.Log.Debugf("request to %s failed: %v", wReq.URL, err)
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		BodyString: string(bodyBytes),
	}

	if title, ok := getHTMLTitle(wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}

	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)
	return wRes, nil
}

// GetBody fetches url and returns the body, or ok=false after retry
// exhaustion or on a non-2xx status. Failures never escape as errors; they
// are logged here with the URL and status for diagnosis.
func (c *Client) GetBody(url string) (string, bool) {
	res, err := c.Do(&Request{URL: url})
	if err != nil {
		utils.Log.Errorf("request failed after %d attempts: %s: %v", c.maxAttempts, url, err)
		return "", false
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		utils.Log.Debugf("HTTP %d for %s", res.StatusCode, url)
		return "", false
	}
	return res.BodyString, true
}

// GetJSON fetches url and parses the body with gjson.
func (c *Client) GetJSON(url string) (gjson.Result, bool) {
	body, ok := c.GetBody(url)
	if !ok {
		return gjson.Result{}, false
	}
	return gjson.Parse(body), true
}

// GetJSONPaged fetches url and follows rel="next" Link relations, returning
// one parsed page per request, in request order, capped at MaxPages. When a
// response carries no Link header the next page URL is derived from a "page"
// query parameter and the walk stops as soon as a page comes back shorter
// than perPage.
func (c *Client) GetJSONPaged(rawURL string, perPage int) ([]gjson.Result, bool) {
	var pages []gjson.Result

	next := rawURL
	for page := 1; page <= MaxPages && next != ""; page++ {
		res, err := c.Do(&Request{URL: next})
		if err != nil {
			utils.Log.Errorf("request failed after %d attempts: %s: %v", c.maxAttempts, next, err)
			return pages, len(pages) > 0
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			utils.Log.Debugf("HTTP %d for %s", res.StatusCode, next)
			return pages, len(pages) > 0
		}

		parsed := gjson.Parse(res.BodyString)
		pages = append(pages, parsed)

		if link := nextLink(res.Header.Get("Link")); link != "" {
			next = link
			continue
		}

		if !parsed.IsArray() || len(parsed.Array()) < perPage {
			break
		}
		next = bumpPageParam(next, page+1)
	}

	return pages, true
}

// nextLink extracts the rel="next" target from a Link response header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if !strings.Contains(section[1], `rel="next"`) {
			continue
		}
		target := strings.TrimSpace(section[0])
		return strings.Trim(target, "<>")
	}
	return ""
}

func bumpPageParam(rawURL string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}

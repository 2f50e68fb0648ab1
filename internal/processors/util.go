// Package processors implements C4: the six concrete pipeline stages,
// each a pagecontext.Processor.
package processors

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// stripQuery returns rawURL with its query string and fragment removed, the
// normalization applied before tallying or blocking a
// URL (so `?page=1` and `?page=2` of the same resource share one counter).
func stripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// patternCache compiles regexes once per distinct pattern text and reuses
// them rather than recompiling on every request.
type patternCache struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled[pattern] = re
	return re, nil
}

func (c *patternCache) matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		re, err := c.compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// urlToBlockPattern turns a query-stripped URL into the regex installed
// into `blocked_url_patterns`: an exact-prefix match so
// `https://cdn/x` also blocks `https://cdn/x/y`.
func urlToBlockPattern(strippedURL string) string {
	return "^" + regexp.QuoteMeta(strippedURL)
}

var sanitizeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeURLSegment replaces filesystem-hostile characters so a URL can
// be used as part of an output filename.
func sanitizeURLSegment(rawURL string) string {
	return sanitizeFilenameRe.ReplaceAllString(rawURL, "_")
}

// pathDepth counts the non-empty path segments of rawURL relative to
// baseDir (an entry URL's parent directory), used by LinksFinder's
// max_depth bound.
func pathDepth(rawURL, baseDir string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	b, err := url.Parse(baseDir)
	if err != nil {
		return 0, false
	}
	if u.Host != b.Host || u.Scheme != b.Scheme {
		return 0, false
	}

	candidate := strings.Trim(u.Path, "/")
	base := strings.Trim(b.Path, "/")
	if candidate == base {
		return 0, true
	}
	if !strings.HasPrefix(candidate, base) {
		return 0, false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(candidate, base), "/")
	if rest == "" {
		return 0, true
	}
	return len(strings.Split(rest, "/")), true
}

// quickElementCount counts selector matches in a static HTML snapshot with
// goquery, letting a processor skip an in-page JS round trip when it
// already knows the answer is zero. ok is false when html is empty or
// fails to parse, meaning the snapshot cannot be trusted either way.
func quickElementCount(html, selector string) (count int, ok bool) {
	if html == "" {
		return 0, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}
	return doc.Find(selector).Length(), true
}

// quickHasAnchors reports whether a static HTML snapshot contains any
// anchor with an href, via htmlquery's XPath evaluation, so LinksFinder
// can skip its in-page extraction script on pages with no links at all.
func quickHasAnchors(html string) (has bool, ok bool) {
	if html == "" {
		return false, false
	}
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return false, false
	}
	nodes, err := htmlquery.QueryAll(doc, "//a[@href]")
	if err != nil {
		return false, false
	}
	return len(nodes) > 0, true
}

// parentDir returns the directory-equivalent of rawURL's path (everything
// up to and including the last "/"), used to auto-derive LinksFinder's
// inclusion patterns from entry URLs when none are configured.
func parentDir(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	idx := strings.LastIndex(u.Path, "/")
	if idx < 0 {
		u.Path = "/"
	} else {
		u.Path = u.Path[:idx+1]
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

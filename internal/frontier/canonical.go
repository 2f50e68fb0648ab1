package frontier

import (
	"net/url"
	"strings"
)

// Canonicalize normalizes a raw URL before it is used as a dedup key:
// lowercase the scheme,
// strip the fragment, and optionally upgrade a bare "http" scheme to
// "https" when upgradeHTTPS is set. Unparseable input is returned as-is so
// callers always have a stable (if degenerate) key to index on.
func Canonicalize(rawURL string, upgradeHTTPS bool) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if upgradeHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Fragment = ""

	return u.String()
}

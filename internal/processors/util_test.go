package processors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripQueryRemovesQueryAndFragment(t *testing.T) {
	got := stripQuery("https://cdn/x?a=1&b=2#frag")
	require.Equal(t, "https://cdn/x", got)
}

func TestPatternCacheCompilesOnce(t *testing.T) {
	c := newPatternCache()
	require.True(t, c.matchAny([]string{"^https://cdn/x"}, "https://cdn/x/y"), "expected prefix pattern to match")
	require.False(t, c.matchAny([]string{"^https://cdn/x"}, "https://other/z"), "expected pattern not to match unrelated url")
	require.Len(t, c.compiled, 1, "expected exactly one compiled pattern cached")
}

func TestSanitizeURLSegmentReplacesHostileCharacters(t *testing.T) {
	got := sanitizeURLSegment(`https://example.org/a:b"c<d>e|f?g*h\i`)
	for _, bad := range []byte{'<', '>', ':', '"', '/', '\\', '|', '?', '*'} {
		require.NotContains(t, got, string(bad), "sanitized output still contains a hostile character")
	}
}

func TestPathDepthRelativeToBase(t *testing.T) {
	cases := []struct {
		url, base string
		want      int
		ok        bool
	}{
		{"https://site/a/", "https://site/a/", 0, true},
		{"https://site/a/b/", "https://site/a/", 1, true},
		{"https://site/a/b/c/", "https://site/a/", 2, true},
		{"https://site/a/b/c/d/", "https://site/a/", 3, true},
		{"https://other/a/b/", "https://site/a/", 0, false},
	}
	for _, c := range cases {
		got, ok := pathDepth(c.url, c.base)
		require.Equal(t, c.ok, ok, "pathDepth(%q,%q)", c.url, c.base)
		if ok {
			require.Equal(t, c.want, got, "pathDepth(%q,%q)", c.url, c.base)
		}
	}
}

func TestParentDir(t *testing.T) {
	got := parentDir("https://site/a/b/page.html?x=1")
	require.Equal(t, "https://site/a/b/", got)
}

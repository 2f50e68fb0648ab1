package frontier

import "testing"

func TestCanonicalizeLowercasesScheme(t *testing.T) {
	got := Canonicalize("HTTPS://example.com/a", false)
	if got != "https://example.com/a" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeStripsFragment(t *testing.T) {
	got := Canonicalize("https://example.com/a#section", false)
	if got != "https://example.com/a" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeUpgradesHTTPSWhenEnabled(t *testing.T) {
	got := Canonicalize("http://example.com/a", true)
	if got != "https://example.com/a" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeLeavesHTTPWhenUpgradeDisabled(t *testing.T) {
	got := Canonicalize("http://example.com/a", false)
	if got != "http://example.com/a" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeUnparseableInputIsReturnedAsIs(t *testing.T) {
	raw := "http://[::1"
	got := Canonicalize(raw, false)
	if got != raw {
		t.Fatalf("expected unparseable input returned unchanged, got %q", got)
	}
}

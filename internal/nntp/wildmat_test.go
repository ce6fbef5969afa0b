package nntp

import (
	"math"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		token string
		want  ArticleRange
		ok    bool
	}{
		{"5", ArticleRange{5, 5}, true},
		{"5-", ArticleRange{5, math.MaxInt64}, true},
		{"5-10", ArticleRange{5, 10}, true},
		{"0-0", ArticleRange{0, 0}, true},
		{"10-5", ArticleRange{}, false},
		{"", ArticleRange{}, false},
		{"-5", ArticleRange{}, false},
		{"abc", ArticleRange{}, false},
		{"5-abc", ArticleRange{}, false},
		{"-", ArticleRange{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseRange(tt.token)
		if ok != tt.ok {
			t.Errorf("ParseRange(%q) ok = %v, want %v", tt.token, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseRange(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
}

func TestRangeUnbounded(t *testing.T) {
	r, ok := ParseRange("3-")
	if !ok || !r.Unbounded() {
		t.Errorf("ParseRange(3-) = %+v ok=%v, want unbounded", r, ok)
	}
	r, ok = ParseRange("3-9")
	if !ok || r.Unbounded() {
		t.Errorf("ParseRange(3-9) = %+v ok=%v, want bounded", r, ok)
	}
}

func TestWildmatBasics(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"misc.test", "*", true},
		{"a", "*", true},
		{"misc.test", "misc.*", true},
		{"misc.test", "misc.?est", true},
		{"misc.test", "comp.*", false},
		{"misc.test", "misc.test", true},
		{"misc.test", "misc.tes", false},
		{"comp.lang.go", "comp.*.go", true},
		{"comp.lang.go", "*.go", true},
		{"tx.natives.recovery", "tx.*", true},
		{"misc.test", "[mn]isc.*", true},
		{"nisc.test", "[mn]isc.*", true},
		{"oisc.test", "[mn]isc.*", false},
		{"misc.test", "[a-z]isc.*", true},
		{"Misc.test", "[a-z]isc.*", false},
		{"misc.test", "[^a-l]isc.*", true},
		{"aisc.test", "[^a-l]isc.*", false},
	}
	for _, tt := range tests {
		if got := MatchWildmat(tt.name, tt.pattern); got != tt.want {
			t.Errorf("MatchWildmat(%q, %q) = %v, want %v", tt.name, tt.pattern, got, tt.want)
		}
	}
}

func TestWildmatNegationLastMatchWins(t *testing.T) {
	w := ParseWildmat("comp.*,!comp.sources")
	if !w.Match("comp.lang.go") {
		t.Error("comp.lang.go should match comp.*,!comp.sources")
	}
	if w.Match("comp.sources") {
		t.Error("comp.sources should be excluded")
	}
	if w.Match("rec.pets") {
		t.Error("rec.pets matches nothing in the list")
	}

	// Later pattern overrides earlier exclusion
	w = ParseWildmat("!comp.sources,comp.*")
	if !w.Match("comp.sources") {
		t.Error("last match wins: comp.* re-includes comp.sources")
	}
}

func TestWildmatLeadingNegation(t *testing.T) {
	// A leading negated pattern implies an initial match-everything.
	w := ParseWildmat("!junk.*")
	if !w.Match("misc.test") {
		t.Error("misc.test should match !junk.*")
	}
	if w.Match("junk.spam") {
		t.Error("junk.spam should be excluded by !junk.*")
	}
}

func TestWildmatBangStarMatchesOnlyEmpty(t *testing.T) {
	w := ParseWildmat("!*")
	if !w.Match("") {
		t.Error("!* should match the empty name")
	}
	for _, name := range []string{"a", "misc.test", "x.y.z"} {
		if w.Match(name) {
			t.Errorf("!* should not match %q", name)
		}
	}
}

func TestWildmatStarMatchesEveryName(t *testing.T) {
	w := ParseWildmat("*")
	for _, name := range []string{"", "a", "misc.test", "x.y.z"} {
		if !w.Match(name) {
			t.Errorf("* should match %q", name)
		}
	}
	// Patterns with literals never match the empty name
	if ParseWildmat("misc.*").Match("") {
		t.Error("misc.* must not match the empty name")
	}
}

func TestWildmatEmptyExpression(t *testing.T) {
	if ParseWildmat("").Match("anything") {
		t.Error("empty wildmat matches nothing")
	}
}

package nntp

import (
	"math"
	"strconv"
	"strings"
)

// ArticleRange is an inclusive article-number range. An open range ("n-")
// has High set to math.MaxInt64.
type ArticleRange struct {
	Low  int64
	High int64
}

// Unbounded reports whether the range is open-ended.
func (r ArticleRange) Unbounded() bool {
	return r.High == math.MaxInt64
}

// ParseRange parses the NNTP range tokens "n", "n-" and "n-m". Both
// endpoints are inclusive. Malformed tokens, including "n-m" with n > m,
// return ok=false.
func ParseRange(token string) (ArticleRange, bool) {
	if token == "" {
		return ArticleRange{}, false
	}

	dash := strings.IndexByte(token, '-')
	if dash == -1 {
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil || n < 0 {
			return ArticleRange{}, false
		}
		return ArticleRange{Low: n, High: n}, true
	}

	low, err := strconv.ParseInt(token[:dash], 10, 64)
	if err != nil || low < 0 {
		return ArticleRange{}, false
	}

	rest := token[dash+1:]
	if rest == "" {
		return ArticleRange{Low: low, High: math.MaxInt64}, true
	}

	high, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || high < low {
		return ArticleRange{}, false
	}
	return ArticleRange{Low: low, High: high}, true
}

// Wildmat is a parsed wildmat expression: comma-separated glob patterns,
// each optionally negated with a leading "!". Patterns are evaluated left
// to right and the last matching pattern wins. A leading negated pattern
// implies an initial match-everything, so "!junk.*" selects everything
// outside junk.
type Wildmat struct {
	patterns []wildmatPattern
}

type wildmatPattern struct {
	negate  bool
	pattern string
}

// ParseWildmat parses a wildmat expression. An empty expression matches
// nothing.
func ParseWildmat(expr string) *Wildmat {
	w := &Wildmat{}
	for _, part := range strings.Split(expr, ",") {
		if part == "" {
			continue
		}
		p := wildmatPattern{pattern: part}
		if part[0] == '!' {
			p.negate = true
			p.pattern = part[1:]
		}
		w.patterns = append(w.patterns, p)
	}
	return w
}

// Match evaluates the wildmat against a name. The empty name is an edge
// case with two required behaviors: a bare "*" still matches it, while a
// negated "!*" selects it and nothing else. Negated patterns therefore use
// the strict glob (empty matches only empty) and non-negated all-star
// patterns match the empty name explicitly.
func (w *Wildmat) Match(name string) bool {
	if len(w.patterns) == 0 {
		return false
	}
	matched := w.patterns[0].negate
	for _, p := range w.patterns {
		if matchGlob(name, p.pattern) {
			matched = !p.negate
		} else if name == "" && !p.negate && isAllStars(p.pattern) {
			matched = true
		}
	}
	return matched
}

// isAllStars reports whether a non-empty pattern consists only of '*'.
func isAllStars(pattern string) bool {
	if pattern == "" {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '*' {
			return false
		}
	}
	return true
}

// MatchWildmat is a one-shot convenience for single-use expressions.
func MatchWildmat(name, expr string) bool {
	return ParseWildmat(expr).Match(name)
}

// matchGlob matches a name against one glob pattern where '*' is any run,
// '?' any single character and '[set]' a character class with ranges and
// leading '^' negation. The empty name only matches the empty pattern;
// Match layers the all-star exception for non-negated patterns on top.
func matchGlob(name, pattern string) bool {
	if name == "" {
		return pattern == ""
	}
	return matchGlobRecursive(name, pattern, 0, 0)
}

func matchGlobRecursive(name, pattern string, ni, pi int) bool {
	for pi < len(pattern) {
		switch pattern[pi] {
		case '*':
			// Collapse consecutive stars, then try every split point
			for pi < len(pattern) && pattern[pi] == '*' {
				pi++
			}
			if pi == len(pattern) {
				return true
			}
			for i := ni; i <= len(name); i++ {
				if matchGlobRecursive(name, pattern, i, pi) {
					return true
				}
			}
			return false
		case '?':
			if ni == len(name) {
				return false
			}
			ni++
			pi++
		case '[':
			if ni == len(name) {
				return false
			}
			matched, next, ok := matchClass(name[ni], pattern, pi)
			if !ok || !matched {
				return false
			}
			ni++
			pi = next
		default:
			if ni == len(name) || name[ni] != pattern[pi] {
				return false
			}
			ni++
			pi++
		}
	}
	return ni == len(name)
}

// matchClass matches one byte against the class starting at pattern[pi]
// (which is '['). Returns whether it matched and the index just past ']'.
func matchClass(b byte, pattern string, pi int) (matched bool, next int, ok bool) {
	i := pi + 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}
	found := false
	first := true
	for i < len(pattern) {
		if pattern[i] == ']' && !first {
			if negate {
				found = !found
			}
			return found, i + 1, true
		}
		first = false
		if i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']' {
			if pattern[i] <= b && b <= pattern[i+2] {
				found = true
			}
			i += 3
			continue
		}
		if pattern[i] == b {
			found = true
		}
		i++
	}
	// Unterminated class
	return false, 0, false
}

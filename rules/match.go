// Package rules implements C4: the three priority-ordered rule engines
// (mock, breakpoint, chaos) shared by the interception pipeline. Each
// engine holds its list behind an atomically swapped snapshot so matching
// on the pipeline's fast path never contends with a hub-driven update,
// the same atomic-swap pattern used for metrics delegates, generalized
// to rule snapshots.
package rules

import (
	"regexp"
	"strings"
)

// classifyPattern reports how a URL pattern should be evaluated, per the
// fixed precedence: regex if delimited by ^ or $, else glob if it contains
// a *, else plain substring.
type patternKind int

const (
	patternSubstring patternKind = iota
	patternGlob
	patternRegex
)

func classifyPattern(pattern string) patternKind {
	if strings.HasPrefix(pattern, "^") || strings.HasSuffix(pattern, "$") {
		return patternRegex
	}
	if strings.Contains(pattern, "*") {
		return patternGlob
	}
	return patternSubstring
}

// matchURLPattern reports whether url satisfies pattern. A pattern
// compilation failure is treated as a non-match rather than propagated,
// per the rule-match error policy.
func matchURLPattern(pattern, url string) bool {
	if pattern == "" {
		return true
	}
	switch classifyPattern(pattern) {
	case patternRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(url)
	case patternGlob:
		re, err := regexp.Compile(globToRegex(pattern))
		if err != nil {
			return false
		}
		return re.MatchString(url)
	default:
		return strings.Contains(url, pattern)
	}
}

// globToRegex translates a '*'-glob into an anchored regex: '.' is
// escaped, '*' becomes '.*'.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '.':
			b.WriteString(`\.`)
		case '*':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

func matchMethod(ruleMethod, reqMethod string) bool {
	if ruleMethod == "" {
		return true
	}
	return strings.EqualFold(ruleMethod, reqMethod)
}

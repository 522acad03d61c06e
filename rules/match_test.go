package rules

import "testing"

func TestClassifyPattern(t *testing.T) {
	cases := []struct {
		pattern string
		want    patternKind
	}{
		{"^/v1/.*$", patternRegex},
		{"/checkout$", patternRegex},
		{"*/v1/ping", patternGlob},
		{"/checkout", patternSubstring},
	}
	for _, c := range cases {
		if got := classifyPattern(c.pattern); got != c.want {
			t.Fatalf("classifyPattern(%q) = %v, want %v", c.pattern, got, c.want)
		}
	}
}

func TestMatchURLPatternGlob(t *testing.T) {
	if !matchURLPattern("*/v1/ping", "https://api.example.com/v1/ping") {
		t.Fatal("expected glob match")
	}
	if matchURLPattern("*/v1/ping", "https://api.example.com/v2/ping") {
		t.Fatal("expected glob mismatch")
	}
}

func TestMatchURLPatternRegex(t *testing.T) {
	if !matchURLPattern("^/checkout", "/checkout") {
		t.Fatal("expected regex match")
	}
	if matchURLPattern("^[", "/checkout") {
		t.Fatal("expected invalid regex to be treated as non-match")
	}
}

func TestMatchURLPatternSubstring(t *testing.T) {
	if !matchURLPattern("analytics", "https://x.com/analytics/y") {
		t.Fatal("expected substring match")
	}
}

func TestMatchURLPatternEmptyMatchesAny(t *testing.T) {
	if !matchURLPattern("", "anything") {
		t.Fatal("expected empty pattern to match any URL")
	}
}

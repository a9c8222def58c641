package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Compiled expressions are cached; rule lists are short and repeat across
// requests, so compiling once per expression is enough.
var (
	patternMu    sync.RWMutex
	patternCache = map[string]*regexp.Regexp{}
)

// Match tests candidate against a glob-style expression supporting `*`, `?`
// and bracket classes. Unlike path.Match, `*` crosses `/` so a rule written
// against a path prefix keeps working on nested entries. A malformed
// expression returns an error; callers decide whether that is fatal.
func Match(expression, candidate string) (bool, error) {
	re, err := compile(expression)
	if err != nil {
		return false, err
	}
	return re.MatchString(candidate), nil
}

func compile(expression string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[expression]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}

	src, err := globToRegexp(expression)
	if err != nil {
		return nil, err
	}
	re, err = regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("malformed expression %q: %w", expression, err)
	}

	patternMu.Lock()
	patternCache[expression] = re
	patternMu.Unlock()
	return re, nil
}

func globToRegexp(expression string) (string, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(expression)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' { // first ] is literal
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return "", fmt.Errorf("malformed expression %q: unclosed character class", expression)
			}
			class := string(runes[i+1 : j])
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = j
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				return "", fmt.Errorf("malformed expression %q: trailing backslash", expression)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String(), nil
}

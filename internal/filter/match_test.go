package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		candidate  string
		want       bool
	}{
		{"star suffix", "*.tmp", "a.tmp", true},
		{"star suffix no match", "*.tmp", "a.txt", false},
		{"star matches empty", "*.tmp", ".tmp", true},
		{"question mark", "a?.txt", "ab.txt", true},
		{"question mark needs one char", "a?.txt", "a.txt", false},
		{"bracket class", "[abc].md", "b.md", true},
		{"bracket class no match", "[abc].md", "d.md", false},
		{"negated class", "[!abc].md", "d.md", true},
		{"star crosses separators", "private*", "private/sub/file.txt", true},
		{"path prefix", "docs/*", "docs/readme.md", true},
		{"literal dot is literal", "a.txt", "axtxt", false},
		{"exact", "README.md", "README.md", true},
		{"no partial match", "tmp", "tmp2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.expression, tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchMalformed(t *testing.T) {
	for _, expression := range []string{"[abc", "foo\\"} {
		_, err := Match(expression, "anything")
		assert.Error(t, err, "expression %q", expression)
	}
}

func TestMatchCompiledOnce(t *testing.T) {
	// Second call must hit the compile cache and behave identically.
	for i := 0; i < 2; i++ {
		got, err := Match("*.log", "server.log")
		require.NoError(t, err)
		assert.True(t, got)
	}
}

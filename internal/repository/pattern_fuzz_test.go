package repository

import (
	"strings"
	"testing"
)

// FuzzContainsPattern checks that user input never leaks an unescaped LIKE
// metacharacter into the pattern and that the escaping is reversible.
func FuzzContainsPattern(f *testing.F) {
	seeds := []string{
		"",
		"tomato",
		"50%",
		"a_b",
		`back\slash`,
		`%_\`,
		"'; DROP TABLE recipes; --",
		"éclair",
		"\x00",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, s string) {
		p := containsPattern(s)
		if !strings.HasPrefix(p, "%") || !strings.HasSuffix(p, "%") || len(p) < 2 {
			t.Fatalf("pattern %q is not wrapped in wildcards", p)
		}

		body := p[1 : len(p)-1]
		var unescaped strings.Builder
		for i := 0; i < len(body); i++ {
			c := body[i]
			switch c {
			case '\\':
				if i+1 >= len(body) {
					t.Fatalf("dangling escape in %q", body)
				}
				i++
				unescaped.WriteByte(body[i])
			case '%', '_':
				t.Fatalf("unescaped %q in %q", c, body)
			default:
				unescaped.WriteByte(c)
			}
		}
		if unescaped.String() != s {
			t.Fatalf("unescaped %q, want %q", unescaped.String(), s)
		}
	})
}

package exec

import (
	"strings"

	"github.com/gobwas/glob"
)

// compileLike turns a SQL LIKE pattern (`%` any run, `_` any one
// character) into a glob.Glob by direct substitution onto gobwas/glob's
// own wildcard syntax.
func compileLike(pattern string) (glob.Glob, error) {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return glob.Compile(b.String())
}

func matchLike(pattern, text string) (bool, error) {
	g, err := compileLike(pattern)
	if err != nil {
		return false, err
	}
	return g.Match(text), nil
}

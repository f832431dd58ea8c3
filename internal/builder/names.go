package builder

import (
	"path"
	"strconv"
	"strings"
	"unicode"
)

// TypeName turns s into an exported identifier: words split on anything that
// is not a letter or digit, each capitalized. A leading digit gets a "T"
// prefix; an empty result is "Type".
func TypeName(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	switch {
	case out == "":
		return "Type"
	case unicode.IsDigit([]rune(out)[0]):
		return "T" + out
	}
	return out
}

// fileTypeName names a document root after its file, without extension.
func fileTypeName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return TypeName(strings.TrimSuffix(base, path.Ext(base)))
}

// namer hands out unique names, suffixing 1, 2, ... on collision.
type namer struct {
	used map[string]bool
}

func newNamer() *namer { return &namer{used: map[string]bool{}} }

func (n *namer) unique(name string) string {
	if !n.used[name] {
		n.used[name] = true
		return name
	}
	for i := 1; ; i++ {
		c := name + strconv.Itoa(i)
		if !n.used[c] {
			n.used[c] = true
			return c
		}
	}
}

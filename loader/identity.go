package loader

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IsURL reports whether s carries an http or https scheme.
func IsURL(s string) bool {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	switch strings.ToLower(s[:i]) {
	case "http", "https":
		return true
	}
	return false
}

// SplitRef splits a $ref into its file part and fragment. The fragment keeps
// no leading '#'; hasFragment distinguishes "x.json" from "x.json#".
func SplitRef(ref string) (file, fragment string, hasFragment bool) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i+1:], true
	}
	return ref, "", false
}

// RootIdentity builds the identity of the root document from the resolver's
// {cwd, fileName} configuration. An empty cwd means the process directory.
func RootIdentity(cwd, fileName string) (string, error) {
	if IsURL(fileName) {
		return canonicalURL(nil, fileName)
	}
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		cwd = wd
	}
	if IsURL(cwd) {
		base, err := url.Parse(strings.TrimSuffix(cwd, "/") + "/")
		if err != nil {
			return "", fmt.Errorf("loader: invalid cwd %q: %w", cwd, err)
		}
		return canonicalURL(base, fileName)
	}
	p := fileName
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Abs(p)
}

// Identity returns the identity of the document addressed by ref's file part,
// relative to the document identified by base. A ref without a file part
// addresses base itself.
func Identity(base, ref string) (string, error) {
	file, _, _ := SplitRef(ref)
	if file == "" {
		return base, nil
	}
	if IsURL(file) {
		return canonicalURL(nil, file)
	}
	if IsURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("loader: invalid base %q: %w", base, err)
		}
		return canonicalURL(b, file)
	}
	if filepath.IsAbs(file) {
		return filepath.Clean(file), nil
	}
	return filepath.Abs(filepath.Join(filepath.Dir(base), filepath.FromSlash(file)))
}

func canonicalURL(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("loader: invalid url %q: %w", ref, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// BaseName returns the last element of an identity, for file names in metadata.
func BaseName(identity string) string {
	if IsURL(identity) {
		if u, err := url.Parse(identity); err == nil {
			return path.Base(u.Path)
		}
	}
	return filepath.Base(identity)
}

package schemaerr

import (
	"errors"
	"fmt"
	"strings"
)

// Issue is a single non-fatal failure collected while resolving with
// ContinueOnError.
type Issue struct {
	Path    string // JSON Pointer of the node that failed (for example: /properties/a).
	Code    string // One of the Code* constants.
	Message string
	Cause   error // Optional: the typed error behind this issue.
}

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. reference_resolution_error at /properties/a
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.As finds typed errors inside Issues.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssueFor converts a typed error into an Issue located at path.
func IssueFor(path []string, err error) Issue {
	it := Issue{Path: Pointer(path), Message: err.Error(), Cause: err}
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		it.Code = CodeDocumentNotFound
	case errors.Is(err, ErrDocumentParse):
		it.Code = CodeDocumentParse
	case errors.Is(err, ErrReferenceResolution):
		it.Code = CodeReferenceResolution
	case errors.Is(err, ErrEmptyComposite):
		it.Code = CodeEmptyComposite
	default:
		it.Code = "error"
	}
	return it
}

// Package schemaerr defines the error taxonomy shared by the loader, resolver
// and optimizer.
package schemaerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// Sentinels for errors.Is matching. Every typed error below reports one of them
// from its Is method.
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentParse       = errors.New("document parse error")
	ErrReferenceResolution = errors.New("reference resolution error")
	ErrEmptyComposite      = errors.New("empty composite")
)

// Error codes used in Issue.Code.
const (
	CodeDocumentNotFound    = "document_not_found"
	CodeDocumentParse       = "document_parse_error"
	CodeReferenceResolution = "reference_resolution_error"
	CodeEmptyComposite      = "empty_composite"
)

// DocumentNotFoundError reports that the bytes behind Identity could not be
// fetched. Path and Ref are filled in by the resolver with the referencing node.
type DocumentNotFoundError struct {
	Identity string
	Path     []string
	Ref      string
	Err      error
}

func (e *DocumentNotFoundError) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "document not found: %s", e.Identity)
	if e.Ref != "" {
		fmt.Fprintf(b, " (ref %q at %s)", e.Ref, Pointer(e.Path))
	}
	if e.Err != nil {
		fmt.Fprintf(b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DocumentNotFoundError) Unwrap() error        { return e.Err }
func (e *DocumentNotFoundError) Is(target error) bool { return target == ErrDocumentNotFound }

// WithRef returns a copy of e carrying the referencing node's path and ref.
// The cache may hand the same error to several callers, so it is never mutated.
func (e *DocumentNotFoundError) WithRef(path []string, ref string) *DocumentNotFoundError {
	cp := *e
	cp.Path = append([]string(nil), path...)
	cp.Ref = ref
	return &cp
}

// DocumentParseError reports bytes that are not a well-formed JSON or YAML
// document. Line and Column are 0 when unknown.
type DocumentParseError struct {
	Identity string
	Path     []string
	Ref      string
	Line     int
	Column   int
	Err      error
}

func (e *DocumentParseError) Error() string {
	b := &strings.Builder{}
	b.WriteString("document parse error")
	if e.Identity != "" {
		fmt.Fprintf(b, ": %s", e.Identity)
	}
	if e.Line > 0 {
		fmt.Fprintf(b, ":%d:%d", e.Line, e.Column)
	}
	if e.Ref != "" {
		fmt.Fprintf(b, " (ref %q at %s)", e.Ref, Pointer(e.Path))
	}
	if e.Err != nil {
		fmt.Fprintf(b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DocumentParseError) Unwrap() error        { return e.Err }
func (e *DocumentParseError) Is(target error) bool { return target == ErrDocumentParse }

// WithRef returns a copy of e carrying the referencing node's path and ref.
func (e *DocumentParseError) WithRef(path []string, ref string) *DocumentParseError {
	cp := *e
	cp.Path = append([]string(nil), path...)
	cp.Ref = ref
	return &cp
}

// ReferenceResolutionError reports a $ref that does not address any node of
// its target document.
type ReferenceResolutionError struct {
	Path     []string
	Ref      string
	FileName string
	Reason   string
}

func (e *ReferenceResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve $ref %q at %s", e.Ref, Pointer(e.Path))
	if e.FileName != "" {
		msg += " in " + e.FileName
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ReferenceResolutionError) Is(target error) bool { return target == ErrReferenceResolution }

// EmptyCompositeError reports a UNION or INTERSECTION without members. Path
// lists the AST positions from the optimized root down to the composite.
type EmptyCompositeError struct {
	Kind string
	Path []string
}

func (e *EmptyCompositeError) Error() string {
	return fmt.Sprintf("empty %s at %s", strings.ToLower(e.Kind), Pointer(e.Path))
}

func (e *EmptyCompositeError) Is(target error) bool { return target == ErrEmptyComposite }

// Pointer renders path as an RFC 6901 JSON pointer. The empty path is "/".
func Pointer(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, p := range path {
		b.WriteByte('/')
		b.WriteString(jsonpointer.Escape(p))
	}
	return b.String()
}

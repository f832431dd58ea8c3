package schemaerr_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/reoring/schemast/schemaerr"
)

func TestPointer_EscapesTokens(t *testing.T) {
	got := schemaerr.Pointer([]string{"definitions", "a/b", "c~d"})
	if got != "/definitions/a~1b/c~0d" {
		t.Fatalf("unexpected pointer: %s", got)
	}
	if schemaerr.Pointer(nil) != "/" {
		t.Fatalf("root pointer must be /")
	}
}

func TestTypedErrors_IsAndAs(t *testing.T) {
	base := &schemaerr.DocumentNotFoundError{Identity: "/tmp/x.json", Err: errors.New("no such file")}
	withRef := base.WithRef([]string{"properties", "x"}, "./x.json")
	if base.Ref != "" || len(base.Path) != 0 {
		t.Fatalf("WithRef must not mutate the receiver")
	}
	err := fmt.Errorf("resolve: %w", withRef)
	if !errors.Is(err, schemaerr.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	var nf *schemaerr.DocumentNotFoundError
	if !errors.As(err, &nf) || nf.Ref != "./x.json" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if !strings.Contains(err.Error(), "/properties/x") {
		t.Fatalf("message should name the referencing path: %s", err)
	}

	if !errors.Is(&schemaerr.ReferenceResolutionError{Ref: "#/nope"}, schemaerr.ErrReferenceResolution) {
		t.Fatalf("ReferenceResolutionError must match its sentinel")
	}
	if !errors.Is(&schemaerr.EmptyCompositeError{Kind: "UNION"}, schemaerr.ErrEmptyComposite) {
		t.Fatalf("EmptyCompositeError must match its sentinel")
	}
	if errors.Is(&schemaerr.DocumentParseError{}, schemaerr.ErrDocumentNotFound) {
		t.Fatalf("parse error must not match not-found")
	}
}

func TestIssues_UnwrapFindsCauses(t *testing.T) {
	var iss schemaerr.Issues
	iss = schemaerr.AppendIssues(iss,
		schemaerr.IssueFor([]string{"properties", "a"}, &schemaerr.ReferenceResolutionError{Ref: "#/x"}),
		schemaerr.IssueFor([]string{"properties", "b"}, &schemaerr.DocumentNotFoundError{Identity: "y.json"}),
	)
	var err error = iss
	var rr *schemaerr.ReferenceResolutionError
	if !errors.As(err, &rr) || rr.Ref != "#/x" {
		t.Fatalf("expected to find ReferenceResolutionError in %v", err)
	}
	got, ok := schemaerr.AsIssues(fmt.Errorf("wrap: %w", err))
	if !ok || len(got) != 2 {
		t.Fatalf("AsIssues failed: %v", got)
	}
	if got[0].Code != schemaerr.CodeReferenceResolution || got[1].Code != schemaerr.CodeDocumentNotFound {
		t.Fatalf("unexpected codes: %+v", got)
	}
	if iss.Error() != "reference_resolution_error at /properties/a; document_not_found at /properties/b" {
		t.Fatalf("unexpected summary: %s", iss.Error())
	}
}

package schemast

import "github.com/reoring/schemast/schemaerr"

// Error types surfaced by the pipeline.
type (
	DocumentNotFoundError    = schemaerr.DocumentNotFoundError
	DocumentParseError       = schemaerr.DocumentParseError
	ReferenceResolutionError = schemaerr.ReferenceResolutionError
	EmptyCompositeError      = schemaerr.EmptyCompositeError
	Issue                    = schemaerr.Issue
	Issues                   = schemaerr.Issues
)

// Sentinels for errors.Is.
var (
	ErrDocumentNotFound    = schemaerr.ErrDocumentNotFound
	ErrDocumentParse       = schemaerr.ErrDocumentParse
	ErrReferenceResolution = schemaerr.ErrReferenceResolution
	ErrEmptyComposite      = schemaerr.ErrEmptyComposite
)

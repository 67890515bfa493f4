package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownDocumentVersion is returned when an access widener document declares
	// a version this toolchain does not understand.
	ErrUnknownDocumentVersion = zerr.New("unknown access widener version")

	// ErrMalformedDocument is returned when an access widener document cannot be parsed.
	ErrMalformedDocument = zerr.New("malformed access widener document")

	// ErrNamespaceMismatch is returned when a document or mapping set is written in a
	// namespace other than the one a consumer expects.
	ErrNamespaceMismatch = zerr.New("namespace mismatch")

	// ErrAmbiguousRename is returned when the rename table holds two conflicting
	// targets for the same symbol.
	ErrAmbiguousRename = zerr.New("ambiguous rename entry")

	// ErrMissingResource is returned when a mandatory archive resource is absent.
	ErrMissingResource = zerr.New("mandatory archive resource missing")

	// ErrTransformExists is returned when converting access wideners would overwrite a
	// pre-existing access transformer resource in the output archive.
	ErrTransformExists = zerr.New("archive already contains an access transformer")

	// ErrWidenerNotFound is returned when an access widener designated for conversion
	// is not present in the archive.
	ErrWidenerNotFound = zerr.New("access widener not found in archive")

	// ErrDuplicateNestedPath is returned when two nested archives resolve to the same
	// target path inside the output archive.
	ErrDuplicateNestedPath = zerr.New("duplicate nested archive path")

	// ErrUnknownPlatform is returned when an archive spec names an unsupported platform.
	ErrUnknownPlatform = zerr.New("unknown platform")

	// ErrDuplicateOutput is returned when two archive specs in one batch target the
	// same output path.
	ErrDuplicateOutput = zerr.New("duplicate output path")

	// ErrUnknownEngineToken is returned when resolving an engine handle token that is
	// not registered (or whose engine has already been released).
	ErrUnknownEngineToken = zerr.New("unknown engine token")

	// ErrEngineClosed is returned when using a remapping engine after its last
	// consumer released it.
	ErrEngineClosed = zerr.New("remapping engine is closed")
)

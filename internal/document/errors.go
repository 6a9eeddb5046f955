package document

import "fmt"

// Kind discriminates the taxonomy of errors the store and sync layers can
// raise (spec §7). Callers test for a Kind with Is or KindOf, not by string
// matching.
type Kind string

const (
	KindInvalidDocID             Kind = "invalid_doc_id"
	KindInvalidJSON              Kind = "invalid_json"
	KindRevisionConflict          Kind = "revision_conflict"
	KindConflictedDoc             Kind = "conflicted_doc"
	KindDocumentDoesNotExist      Kind = "document_does_not_exist"
	KindDocumentAlreadyDeleted    Kind = "document_already_deleted"
	KindIndexNameTaken            Kind = "index_name_taken"
	KindIndexDoesNotExist         Kind = "index_does_not_exist"
	KindIndexDefinitionParseError Kind = "index_definition_parse_error"
	KindInvalidValueForIndex      Kind = "invalid_value_for_index"
	KindInvalidGlobbing           Kind = "invalid_globbing"
	KindInvalidGeneration         Kind = "invalid_generation"
	KindInvalidTransactionID      Kind = "invalid_transaction_id"
	KindBrokenSyncStream          Kind = "broken_sync_stream"
	KindUnavailable               Kind = "unavailable"
	KindUnauthorized              Kind = "unauthorized"
)

// Error is the concrete type behind every Kind above. It wraps an optional
// underlying cause so callers can still errors.As/errors.Unwrap to it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPError is the catch-all carrying a verbatim status/content-type/body,
// used by the HTTP adapter for responses that don't map to one of the
// typed Kinds above (spec §7 "HTTPError (catch-all with status+body)").
type HTTPError struct {
	Status      int
	ContentType string
	Body        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags a CheckError with the stage or input that caused it
type ErrorKind string

const (
	// KindInvalidPath indicates a root or document path that does not resolve
	KindInvalidPath ErrorKind = "InvalidPathError"
	// KindUnequalImageCount indicates matched documents embed a different number of images
	KindUnequalImageCount ErrorKind = "UnequalImageCountError"
	// KindUnequalFileCount indicates the filtered directory trees differ in size
	KindUnequalFileCount ErrorKind = "UnequalFileCountError"
	// KindIgnoreFileParse indicates a malformed ignore-file
	KindIgnoreFileParse ErrorKind = "IgnoreFileParseError"
	// KindOutputWrite indicates persistence was requested but could not happen
	KindOutputWrite ErrorKind = "OutputWriteError"
	// KindImageLoad indicates an embedded image could not be read or decoded
	KindImageLoad ErrorKind = "ImageLoadError"
	// KindTextCompare indicates a document could not be parsed for text comparison
	KindTextCompare ErrorKind = "TextCompareError"
	// KindConfig indicates invalid or unknown request options
	KindConfig ErrorKind = "ConfigError"
	// KindCanceled indicates the check was interrupted by its context
	KindCanceled ErrorKind = "CanceledError"
)

// CheckError is a single, attributable failure of a check
type CheckError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
}

// NewCheckError creates a CheckError
func NewCheckError(kind ErrorKind, message, path string) *CheckError {
	return &CheckError{Kind: kind, Message: message, Path: path}
}

func (e *CheckError) Error() string {
	if e.Path != "" && !strings.Contains(e.Message, e.Path) {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Rejection is the error-bearing outcome of a check.
// It always carries at least one CheckError.
type Rejection struct {
	Errors []*CheckError `json:"errors"`
}

// Reject builds a Rejection from the given errors, dropping nils
func Reject(errs ...*CheckError) *Rejection {
	r := &Rejection{Errors: make([]*CheckError, 0, len(errs))}
	for _, e := range errs {
		if e != nil {
			r.Errors = append(r.Errors, e)
		}
	}
	return r
}

func (r *Rejection) Error() string {
	if len(r.Errors) == 1 {
		return "check rejected: " + r.Errors[0].Error()
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("check rejected with %d errors: %s", len(r.Errors), strings.Join(msgs, "; "))
}

// Has reports whether the rejection carries an error of the given kind
func (r *Rejection) Has(kind ErrorKind) bool {
	for _, e := range r.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// MarshalJSON keeps the errors array present even when empty
func (r *Rejection) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []*CheckError{}
	}
	return json.Marshal(struct {
		Errors []*CheckError `json:"errors"`
	}{errs})
}

// AsCheckErrors flattens err into CheckErrors.
// Rejections are unpacked, CheckErrors are kept, anything else is tagged with fallback.
func AsCheckErrors(err error, fallback ErrorKind, path string) []*CheckError {
	if err == nil {
		return nil
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Errors
	}
	var ce *CheckError
	if errors.As(err, &ce) {
		return []*CheckError{ce}
	}
	return []*CheckError{NewCheckError(fallback, err.Error(), path)}
}

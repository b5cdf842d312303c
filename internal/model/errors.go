package model

import "errors"

var (
	// Upload errors
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrUploadRejected   = errors.New("upload rejected")
	ErrUploadInProgress = errors.New("upload already in progress")

	// Inventory errors
	ErrListingUnavailable = errors.New("file listing unavailable")
	ErrGroupNotFound      = errors.New("document group not found")

	// Deletion errors
	ErrDeleteFailed        = errors.New("delete failed")
	ErrDeleteCancelled     = errors.New("delete cancelled")
	ErrInvalidConfirmation = errors.New("invalid delete confirmation")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind names the recoverable failure categories surfaced to the user.
type ErrorKind string

const (
	ErrorKindNone               ErrorKind = ""
	ErrorKindInvalidFileType    ErrorKind = "InvalidFileType"
	ErrorKindUploadRejected     ErrorKind = "UploadRejected"
	ErrorKindListingUnavailable ErrorKind = "ListingUnavailable"
	ErrorKindDeleteFailed       ErrorKind = "DeleteFailed"
)

// KindOf classifies err into one of the user-facing error kinds.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrInvalidFileType):
		return ErrorKindInvalidFileType
	case errors.Is(err, ErrUploadRejected):
		return ErrorKindUploadRejected
	case errors.Is(err, ErrListingUnavailable):
		return ErrorKindListingUnavailable
	case errors.Is(err, ErrDeleteFailed):
		return ErrorKindDeleteFailed
	default:
		return ErrorKindNone
	}
}

package processor

import (
	"errors"
	"fmt"
)

// Kind classifies an upload failure.
type Kind string

const (
	// KindServerRejected means the service answered but did not accept the upload.
	KindServerRejected Kind = "server_rejected"
	// KindTransportFailure means no usable response was obtained.
	KindTransportFailure Kind = "transport_failure"
)

const (
	// GenericFailureMessage is used when the service gives no reason.
	GenericFailureMessage = "Failed to process file"
	// MalformedResponseMessage is used when the data does not fit the sheet model.
	MalformedResponseMessage = "malformed response"
)

var (
	ErrServerRejected   = errors.New("server rejected upload")
	ErrTransportFailure = errors.New("transport failure")
)

// UploadError is returned by Client.Upload. Message is suitable for display.
type UploadError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is matches ErrServerRejected and ErrTransportFailure by kind.
func (e *UploadError) Is(target error) bool {
	switch target {
	case ErrServerRejected:
		return e.Kind == KindServerRejected
	case ErrTransportFailure:
		return e.Kind == KindTransportFailure
	}
	return false
}

// NewServerRejected creates a rejection with the service's message, or the
// generic message when it is empty.
func NewServerRejected(status int, message string, cause error) *UploadError {
	if message == "" {
		message = GenericFailureMessage
	}
	return &UploadError{
		Kind:       KindServerRejected,
		Message:    message,
		StatusCode: status,
		Err:        cause,
	}
}

// NewTransportFailure creates a connectivity error naming the service address.
func NewTransportFailure(baseURL string, cause error) *UploadError {
	return &UploadError{
		Kind:    KindTransportFailure,
		Message: fmt.Sprintf("Connection failed: %v. Check if the processing service is running at %s.", cause, baseURL),
		Err:     cause,
	}
}

package upload

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileSelected       = errors.New("no file selected")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrUploadInProgress is returned by Submit while a request is in flight.
	ErrUploadInProgress = errors.New("upload already in progress")
	// ErrSuperseded is returned when a newer selection or submit replaced
	// the attempt before its response arrived. The response is discarded.
	ErrSuperseded = errors.New("upload superseded")
)

// Reason identifies why a local validation failed.
type Reason string

const (
	ReasonUnsupportedExtension Reason = "unsupported_extension"
	ReasonNoFileSelected       Reason = "no_file_selected"
)

// ValidationError is a local failure that never reaches the network.
type ValidationError struct {
	Reason Reason
	Name   string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonUnsupportedExtension:
		return "Please select a valid Excel file (.xlsx or .xls)"
	case ReasonNoFileSelected:
		return "Please select a file first"
	}
	return fmt.Sprintf("invalid file %q", e.Name)
}

func (e *ValidationError) Unwrap() error {
	switch e.Reason {
	case ReasonUnsupportedExtension:
		return ErrUnsupportedExtension
	case ReasonNoFileSelected:
		return ErrNoFileSelected
	}
	return nil
}

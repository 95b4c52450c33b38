package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSecret  = errors.New("ayo: api secret is not configured")
	ErrSyncInProgress = errors.New("sync is already running")
	ErrNotFound       = errors.New("not found")
)

// SignatureError - the request could not be signed. Raised before any network call.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature error: %v", e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// TransportError - DNS, timeout or connection failure talking to the vendor.
type TransportError struct {
	URL     string
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %s", e.URL, e.Message)
}

// RemoteError - the vendor answered with a non-2xx status.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: status=%d body=%s", e.StatusCode, e.Body)
}

// MappingError - a remote record references a local entity that does not exist.
type MappingError struct {
	Resource string
	Key      string
	Value    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s with %s %s not found", e.Resource, e.Key, e.Value)
}

// ValidationError - a remote record is malformed.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func IsMapping(err error) bool {
	var target *MappingError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var remote *RemoteError
	var transport *TransportError
	return errors.As(err, &remote) || errors.As(err, &transport)
}

package api

import "fmt"

// NetworkError wraps a transport-level failure. These are retryable: the
// request never reached the backend (or the response never made it back).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError means the entity does not exist or the caller cannot see it.
// Retrying without new input will not help.
type NotFoundError struct {
	Key     string // backend error_key, e.g. "chat_not_found"
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "not found"
}

// AccessDeniedError means the entity exists but the caller is not a participant.
type AccessDeniedError struct {
	Key     string
	Message string
}

func (e *AccessDeniedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "access denied"
}

// CredentialExpiredError is returned when the backend rejected the access
// token and a refresh attempt did not produce a usable one.
type CredentialExpiredError struct {
	Err error
}

func (e *CredentialExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential expired: %v", e.Err)
	}
	return "credential expired"
}

func (e *CredentialExpiredError) Unwrap() error { return e.Err }

// APIError covers every other non-2xx response.
type APIError struct {
	Status  int
	Key     string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

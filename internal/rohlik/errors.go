package rohlik

import "fmt"

// HttpError is any non-2xx upstream status other than the auth pair (401/403).
type HttpError struct {
	Status     int
	StatusText string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.Status, e.StatusText)
}

// AuthError means a 401/403 survived the single transparent re-login retry.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("still unauthorized (%d) after re-login", e.Status)
}

// LoginError means the login call was rejected, or was accepted without a
// resolvable user id (treated as a protocol violation, not a silent success).
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("login rejected with status %d", e.Status)
	}
	return fmt.Sprintf("login rejected with status %d: %s", e.Status, e.Message)
}

// NotFoundError means a referenced cart line or product is absent.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no match for %q", e.Ref)
}

// ArgumentError means a required action input was missing or invalid.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return e.Reason
}

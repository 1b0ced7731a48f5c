package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpsellRequired  = errors.New("plan upgrade required")
	ErrTenantSuspended = errors.New("tenant suspended")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrServer          = errors.New("server error")

	// Registration field errors.
	ErrIdentifierRequired = errors.New("email is required")
	ErrIdentifierInvalid  = errors.New("email is invalid")
	ErrIdentifierTaken    = errors.New("email is already registered")
	ErrWeakSecret         = errors.New("password is too weak")

	// Client-side validation.
	ErrInvalidAlertStatus = errors.New("invalid alert operational status")
	ErrInvalidLimit       = errors.New("log limit must be 5, 10 or 20")
)

// Error is a non-2xx backend response.
type Error struct {
	Status           int
	Code             string // "error" field
	Message          string
	Reason           string
	TenantStatus     string
	Upsell           bool
	RequiredPlanHint string
	Body             []byte

	kind error
}

type wireError struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	Reason           string `json:"reason"`
	TenantStatus     string `json:"tenant_status"`
	Upsell           bool   `json:"upsell"`
	RequiredPlanHint string `json:"required_plan_hint"`
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}
	var w wireError
	if json.Unmarshal(body, &w) == nil {
		e.Code = w.Error
		e.Message = w.Message
		e.Reason = w.Reason
		e.TenantStatus = w.TenantStatus
		e.Upsell = w.Upsell
		e.RequiredPlanHint = w.RequiredPlanHint
	}
	e.kind = classify(e)
	return e
}

func classify(e *Error) error {
	switch e.Code {
	case "email_required":
		return ErrIdentifierRequired
	case "invalid_email":
		return ErrIdentifierInvalid
	case "weak_password":
		return ErrWeakSecret
	case "email_taken":
		return ErrIdentifierTaken
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusPaymentRequired:
		return ErrUpsellRequired
	case (e.Status == http.StatusForbidden || e.Status == http.StatusLocked) && e.TenantStatus != "":
		return ErrTenantSuspended
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServer
	case e.Status >= 400:
		return ErrInvalidRequest
	}
	return nil
}

func (e *Error) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Code
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, detail)
}

// Unwrap returns the sentinel the response maps to.
func (e *Error) Unwrap() error {
	return e.kind
}

// StatusOf returns the HTTP status of an *Error in err's chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

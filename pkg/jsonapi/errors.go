package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// Error is an error object. ID carries the request id so clients can quote it.
type Error struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// ErrorSource points at the part of the request that caused the error.
type ErrorSource struct {
	Pointer string `json:"pointer,omitempty"`
	Header  string `json:"header,omitempty"`
}

// StatusCode returns Status as an int, or 0 when it is not numeric.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// WithID returns a copy of e carrying id.
func (e Error) WithID(id string) Error {
	e.ID = id
	return e
}

// ErrorBuilder assembles an Error with a custom code.
type ErrorBuilder struct {
	e Error
}

// NewError starts an error with the given status, code and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{e: Error{Status: strconv.Itoa(status), Code: code, Title: title}}
}

// Detail sets the human readable explanation.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.e.Detail = detail
	return b
}

// Pointer names the offending body member.
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	b.source().Pointer = pointer
	return b
}

// Header names the offending request header.
func (b *ErrorBuilder) Header(header string) *ErrorBuilder {
	b.source().Header = header
	return b
}

func (b *ErrorBuilder) source() *ErrorSource {
	if b.e.Source == nil {
		b.e.Source = &ErrorSource{}
	}
	return b.e.Source
}

// Build returns the error.
func (b *ErrorBuilder) Build() Error {
	return b.e
}

type problem struct {
	code, detail string
}

// problems holds the code and default detail for every status the API returns.
var problems = map[int]problem{
	http.StatusBadRequest:            {"bad_request", "The request is malformed"},
	http.StatusUnauthorized:          {"unauthorized", "Authentication required"},
	http.StatusPaymentRequired:       {"insufficient_credits", "Not enough credits"},
	http.StatusForbidden:             {"forbidden", "Access denied"},
	http.StatusNotFound:              {"not_found", "Not found"},
	http.StatusConflict:              {"conflict", "The request conflicts with the current state"},
	http.StatusRequestEntityTooLarge: {"payload_too_large", "Request body too large"},
	http.StatusUnprocessableEntity:   {"validation_error", "Validation failed"},
	http.StatusTooManyRequests:       {"rate_limit_exceeded", "Rate limit exceeded"},
	http.StatusInternalServerError:   {"internal_error", "An internal error occurred"},
	http.StatusServiceUnavailable:    {"service_unavailable", "Service temporarily unavailable"},
	http.StatusGatewayTimeout:        {"timeout", "The operation timed out"},
}

// statusError builds the standard error for status. An empty detail uses the default.
func statusError(status int, detail string) Error {
	p := problems[status]
	if detail == "" {
		detail = p.detail
	}
	return NewError(status, p.code, http.StatusText(status)).Detail(detail).Build()
}

func ErrBadRequest(detail string) Error { return statusError(http.StatusBadRequest, detail) }
func ErrUnauthorized(detail string) Error { return statusError(http.StatusUnauthorized, detail) }
func ErrPaymentRequired(detail string) Error { return statusError(http.StatusPaymentRequired, detail) }
func ErrForbidden(detail string) Error { return statusError(http.StatusForbidden, detail) }
func ErrConflict(detail string) Error { return statusError(http.StatusConflict, detail) }
func ErrRateLimited(detail string) Error { return statusError(http.StatusTooManyRequests, detail) }
func ErrInternal(detail string) Error { return statusError(http.StatusInternalServerError, detail) }
func ErrGatewayTimeout(detail string) Error { return statusError(http.StatusGatewayTimeout, detail) }

func ErrServiceUnavailable(detail string) Error {
	return statusError(http.StatusServiceUnavailable, detail)
}

// ErrNotFound reports a missing resource of the given kind.
func ErrNotFound(kind string) Error {
	return statusError(http.StatusNotFound, fmt.Sprintf("The requested %s was not found", kind))
}

// ErrPayloadTooLarge reports a body above limit bytes.
func ErrPayloadTooLarge(limit int64) Error {
	return statusError(http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit))
}

// ErrValidation reports an invalid attribute.
func ErrValidation(field, message string) Error {
	e := statusError(http.StatusUnprocessableEntity, message)
	e.Source = &ErrorSource{Pointer: "/data/attributes/" + field}
	return e
}

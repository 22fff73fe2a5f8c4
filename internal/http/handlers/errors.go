// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and mirror HTTP status semantics. Every error
// response carries one of them next to the human-readable `error` message,
// so clients can branch on the code and show the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden",
//	  "error": "Invalid or missing access key"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeTooLarge         = "payload_too_large"
)

// The rate limiter in package middleware writes "too_many_requests" itself.

// Caller-facing messages. Expired and missing drops share msgNotFound.
const (
	msgMalformedJSON = "Malformed JSON"
	msgTooLarge      = "Request body too large"
	msgNotFound      = "Not found"
	msgAccessDenied  = "Invalid or missing access key"
	msgUnknownKind   = "Unknown drop kind"
	msgInternal      = "internal server error"
)

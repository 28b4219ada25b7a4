package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseErrorKind classifies a request the parser rejected.
type ParseErrorKind int

const (
	// ErrEmptyRequest means no bytes (or only whitespace) arrived.
	ErrEmptyRequest ParseErrorKind = iota
	// ErrMalformedRequestLine means the first line lacks a method and target.
	ErrMalformedRequestLine
	// ErrMalformedHeader means a header line has no name/value separator.
	ErrMalformedHeader
	// ErrIncompleteBody means fewer body bytes arrived than Content-Length.
	ErrIncompleteBody
	// ErrTrailingData means more bytes arrived than Content-Length allows.
	ErrTrailingData
	// ErrRequestTooLarge means the request exceeded the read limit.
	ErrRequestTooLarge
	// ErrInvalidBody means the body is not the structured data expected.
	ErrInvalidBody
	// ErrLengthRequired means a request that carries a body has no
	// Content-Length, so its end cannot be told from a slow peer.
	ErrLengthRequired
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrEmptyRequest:
		return "empty request"
	case ErrMalformedRequestLine:
		return "malformed request line"
	case ErrMalformedHeader:
		return "malformed header"
	case ErrIncompleteBody:
		return "incomplete body"
	case ErrTrailingData:
		return "trailing data"
	case ErrRequestTooLarge:
		return "request too large"
	case ErrInvalidBody:
		return "invalid body"
	case ErrLengthRequired:
		return "length required"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", int(k))
	}
}

// ParseError describes why a request could not be parsed.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *ParseError) Unwrap() error { return e.Err }

// Status returns the HTTP status used to reject the request.
func (e *ParseError) Status() int {
	switch e.Kind {
	case ErrRequestTooLarge:
		return 413
	case ErrLengthRequired:
		return 411
	}
	return 400
}

func parseErr(kind ParseErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Request is one parsed HTTP request.
type Request struct {
	Method   string
	Target   string // Raw request target as received
	Path     string // Decoded path without query
	RawQuery string
	Query    url.Values
	Proto    string
	Headers  map[string]string // Keys lower-cased
	Body     []byte

	// Params holds path parameters bound by the router.
	Params map[string]string
	// RemoteAddr is filled in by the server.
	RemoteAddr string
}

// Header returns the named header value, case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Param returns a bound path parameter.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// QueryInt returns the named query parameter as an int, or def when absent
// or not a number.
func (r *Request) QueryInt(name string, def int) int {
	v := r.Query.Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DecodeJSON decodes the body into v. An empty or malformed body yields a
// *ParseError of kind ErrInvalidBody.
func (r *Request) DecodeJSON(v any) error {
	body := bytes.TrimSpace(r.Body)
	if len(body) == 0 {
		return parseErr(ErrInvalidBody, "empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ParseError{Kind: ErrInvalidBody, Detail: err.Error(), Err: err}
	}
	return nil
}

// AcceptsGzip reports whether the client accepts gzip content coding.
func (r *Request) AcceptsGzip() bool {
	for _, part := range strings.Split(r.Header("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		if strings.ReplaceAll(strings.TrimSpace(params), " ", "") == "q=0" {
			return false
		}
		return true
	}
	return false
}

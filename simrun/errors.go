package simrun

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindAuth       ErrorKind = "auth"
	KindBadRequest ErrorKind = "bad_request"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindServer     ErrorKind = "server"
	KindParse      ErrorKind = "parse"
	KindUnknown    ErrorKind = "unknown"
)

var (
	// ErrConflict matches (errors.Is) any APIError of KindConflict. A 409 on
	// submission means either an idempotency replay or an already-open model
	// for the same chid; the service does not tell them apart.
	ErrConflict = errors.New("simrun: conflict")

	ErrNoChid = errors.New("simrun: no CHID provided")
)

// ErrorObject is one entry of the service's {errors:[...]} envelope.
type ErrorObject struct {
	ID     string          `json:"id,omitempty"`
	Links  json.RawMessage `json:"links,omitempty"`
	Status string          `json:"status,omitempty"`
	Code   string          `json:"code"`
	Title  string          `json:"title,omitempty"`
	Detail string          `json:"detail,omitempty"`
	Source json.RawMessage `json:"source,omitempty"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

// APIError is returned by every Client call that fails after the request was built.
type APIError struct {
	Kind ErrorKind

	StatusCode int
	// Status is the reason phrase ("Not Found").
	Status string

	Method string
	URL    string

	// Errors is the parsed envelope, when the body was one.
	Errors []ErrorObject
	// Message is the best-effort description of the body: the compact JSON of
	// the errors array, the compact JSON of any other JSON body, or raw text.
	Message string

	// Raw is a bounded copy of the response body.
	Raw []byte

	Cause error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d: %s: %s", e.StatusCode, e.Status, e.Message)
	}
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Method != "" || e.URL != "" {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.Method + " " + e.URL))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Cause }

func (e *APIError) Is(target error) bool {
	return target == ErrConflict && e.Kind == KindConflict
}

// Code returns the code of the first envelope entry, if any.
func (e *APIError) Code() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Kind == KindNotFound
}

func IsAuth(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Kind == KindAuth
}

func IsTransport(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Kind == KindTransport
}

// mapError is the single translation point from transport failures into
// APIError. Errors that did not come from the HTTP layer (token acquisition,
// request building) pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	he, ok := httpx.AsError(err)
	if !ok {
		return err
	}
	if he.StatusCode == 0 {
		msg := ""
		if he.Cause != nil {
			msg = he.Cause.Error()
		}
		return &APIError{
			Kind:    KindTransport,
			Method:  he.Method,
			URL:     he.URL,
			Message: msg,
			Cause:   err,
		}
	}

	msg, objs := errorMessage(he.RawBody)
	status := he.Status
	if status == "" {
		status = http.StatusText(he.StatusCode)
	}
	return &APIError{
		Kind:       classifyHTTP(he.StatusCode),
		StatusCode: he.StatusCode,
		Status:     status,
		Method:     he.Method,
		URL:        he.URL,
		Errors:     objs,
		Message:    msg,
		Raw:        append([]byte(nil), he.RawBody...),
		Cause:      err,
	}
}

func classifyHTTP(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestedRangeNotSatisfiable:
		return KindBadRequest
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		if status >= 500 {
			return KindServer
		}
		return KindUnknown
	}
}

// errorMessage renders an error body. A body that is not JSON (or is JSON
// null) is returned verbatim.
func errorMessage(raw []byte) (string, []ErrorObject) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) || string(trimmed) == "null" {
		return string(raw), nil
	}

	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Errors) > 0 && string(env.Errors) != "null" {
		var objs []ErrorObject
		_ = json.Unmarshal(env.Errors, &objs)
		return compactJSON(env.Errors), objs
	}
	return compactJSON(trimmed), nil
}

func compactJSON(b []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return string(b)
	}
	return buf.String()
}

func parseError(method, url string, err error) error {
	return &APIError{
		Kind:    KindParse,
		Method:  method,
		URL:     url,
		Message: "decode response: " + err.Error(),
		Cause:   err,
	}
}

package simrun

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/httpx"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		in      *httpx.Error
		kind    ErrorKind
		message string
		text    string
		code    string
	}{
		{
			name:    "errors envelope",
			in:      &httpx.Error{StatusCode: 404, Status: "Not Found", RawBody: []byte(`{ "errors": [ {"code": "no_run", "title": "missing"} ] }`)},
			kind:    KindNotFound,
			message: `[{"code":"no_run","title":"missing"}]`,
			code:    "no_run",
		},
		{
			name:    "other json",
			in:      &httpx.Error{StatusCode: 400, Status: "Bad Request", RawBody: []byte(`{"message": "bad chid"}`)},
			kind:    KindBadRequest,
			message: `{"message":"bad chid"}`,
			text:    `400: Bad Request: {"message":"bad chid"}`,
		},
		{
			name:    "raw text",
			in:      &httpx.Error{StatusCode: 502, Status: "Bad Gateway", RawBody: []byte("upstream down")},
			kind:    KindServer,
			message: "upstream down",
			text:    "502: Bad Gateway: upstream down",
		},
		{
			name:    "json null",
			in:      &httpx.Error{StatusCode: 403, RawBody: []byte("null")},
			kind:    KindAuth,
			message: "null",
			text:    "403: Forbidden: null",
		},
		{
			name: "empty body",
			in:   &httpx.Error{StatusCode: 401, Status: "Unauthorized"},
			kind: KindAuth,
			text: "401: Unauthorized: ",
		},
		{
			name: "range not satisfiable",
			in:   &httpx.Error{StatusCode: 416, Status: "Requested Range Not Satisfiable"},
			kind: KindBadRequest,
		},
		{
			name: "teapot",
			in:   &httpx.Error{StatusCode: 418, Status: "I'm a teapot"},
			kind: KindUnknown,
		},
		{
			name: "conflict",
			in:   &httpx.Error{StatusCode: 409, Status: "Conflict", RawBody: []byte("already open")},
			kind: KindConflict,
			text: "409: Conflict: already open",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.in)
			ae, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.in.StatusCode, ae.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, ae.Message)
			}
			if tt.text != "" {
				assert.Equal(t, tt.text, ae.Error())
			}
			assert.Equal(t, tt.code, ae.Code())
			assert.ErrorIs(t, err, tt.in)
		})
	}
}

func TestMapError_Transport(t *testing.T) {
	cause := errors.New("connection reset")
	err := mapError(&httpx.Error{Method: http.MethodGet, URL: "https://api.example.test/v3/me", Cause: cause})

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, ae.Kind)
	assert.Equal(t, "transport: GET https://api.example.test/v3/me: connection reset", ae.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransport(err))
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	token := fmt.Errorf("acquire token: %w", errors.New("no account"))
	assert.Same(t, token, mapError(token))
}

func TestAPIError_Predicates(t *testing.T) {
	conflict := fmt.Errorf("submit: %w", &APIError{Kind: KindConflict, StatusCode: 409})
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsNotFound(conflict))
	assert.False(t, IsConflict(&APIError{Kind: KindServer}))
	assert.True(t, IsAuth(&APIError{Kind: KindAuth}))
	assert.False(t, IsAuth(errors.New("plain")))
}

// Package httpx is a small HTTP client wrapper shared by the SDK packages:
//   - request building against a base URL with a path prefix and default headers
//   - bearer, basic, form, JSON and byte-range request options
//   - single-attempt execution; the caller owns any retry or polling policy
//   - an error type carrying method, URL, status, status text and a bounded body
//   - hook points and RoundTripper middleware for logging and tests
package httpx

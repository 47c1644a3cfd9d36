package chargify

import "github.com/samvad-hq/chargify-go/pkg/httpclient"

// Result is the outcome of one Request. Exactly one of two shapes is set:
// a Response (any HTTP status), or no Response with Err holding the
// network-level cause.
type Result struct {
	Response httpclient.Response
	Err      error
}

// NoResponse reports whether the transport failed before any response arrived.
func (r Result) NoResponse() bool {
	return r.Response == nil
}

// StatusCode returns the HTTP status, or 0 when there was no response.
func (r Result) StatusCode() int {
	if r.Response == nil {
		return 0
	}
	return r.Response.StatusCode()
}

// Body returns the response body, or nil when there was no response.
func (r Result) Body() []byte {
	if r.Response == nil {
		return nil
	}
	return r.Response.Body()
}

// Success reports a 2xx response.
func (r Result) Success() bool {
	code := r.StatusCode()
	return code >= 200 && code < 300
}

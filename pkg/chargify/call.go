package chargify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Call reads records of the calls resource. Each Chargify Direct submission
// produces a call whose id is handed back on the redirect.
type Call struct {
	client *Client
}

// CallRecord is a decoded call.
type CallRecord struct {
	ID        string          `json:"id" yaml:"id"`
	APIID     string          `json:"api_id" yaml:"api_id"`
	Timestamp string          `json:"timestamp" yaml:"timestamp"`
	Nonce     string          `json:"nonce" yaml:"nonce"`
	Success   bool            `json:"success" yaml:"success"`
	Request   json.RawMessage `json:"request,omitempty" yaml:"-"`
	Response  json.RawMessage `json:"response,omitempty" yaml:"-"`
}

// CallError is one entry of a call's result errors.
type CallError struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Message   string `json:"message" yaml:"message"`
}

type callEnvelope struct {
	Call CallRecord `json:"call"`
}

type callResult struct {
	Result struct {
		StatusCode looseString `json:"status_code"`
		ResultCode looseString `json:"result_code"`
		Errors     []CallError `json:"errors"`
	} `json:"result"`
}

// looseString accepts both JSON strings and numbers.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

// Read fetches the call with the given id.
func (c *Call) Read(ctx context.Context, callID string) (Result, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return Result{}, fmt.Errorf("%w: call id is required", ErrInvalidUsage)
	}
	return c.client.Request(ctx, "calls/"+url.PathEscape(callID), "GET", nil, nil)
}

// Decode parses a JSON Read result. It returns ErrNoResponse when the
// transport failed and an *APIError for non-2xx statuses.
func (c *Call) Decode(res Result) (*CallRecord, error) {
	if res.NoResponse() {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, res.Err)
	}
	if !res.Success() {
		return nil, newAPIError(res.StatusCode(), res.Body())
	}
	var env callEnvelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	return &env.Call, nil
}

func (r *CallRecord) result() callResult {
	var out callResult
	if r == nil || len(r.Response) == 0 {
		return out
	}
	_ = json.Unmarshal(r.Response, &out)
	return out
}

// StatusCode is response.result.status_code, empty when absent.
func (r *CallRecord) StatusCode() string { return string(r.result().Result.StatusCode) }

// ResultCode is response.result.result_code, empty when absent.
func (r *CallRecord) ResultCode() string { return string(r.result().Result.ResultCode) }

// Errors lists response.result.errors.
func (r *CallRecord) Errors() []CallError { return r.result().Result.Errors }

package publishers

import (
	"time"

	"github.com/samvad-hq/chargify-go/pkg/chargify"
)

// resultCodeOK is the result_code Chargify reports for a successful Direct call.
const resultCodeOK = "2000"

// Event is the payload published after a Chargify Direct redirect was received.
type Event struct {
	CallID     string               `json:"call_id"`
	StatusCode string               `json:"status_code"`
	ResultCode string               `json:"result_code"`
	Nonce      string               `json:"nonce"`
	Verified   bool                 `json:"verified"`
	Success    bool                 `json:"success"`
	Call       *chargify.CallRecord `json:"call,omitempty"`
	ReceivedAt time.Time            `json:"received_at"`
}

// NewEvent constructs an Event from verified redirect params and the call
// record, which may be nil when it could not be fetched. Success comes from the
// record when present and from the redirect's result_code otherwise.
func NewEvent(p chargify.RedirectParams, rec *chargify.CallRecord) Event {
	success := p.ResultCode == resultCodeOK
	if rec != nil {
		success = rec.Success
	}
	return Event{
		CallID:     p.CallID,
		StatusCode: p.StatusCode,
		ResultCode: p.ResultCode,
		Nonce:      p.Nonce,
		Verified:   true,
		Success:    success,
		Call:       rec,
		ReceivedAt: time.Now().UTC(),
	}
}

// attributes are the routing keys message brokers receive next to the body.
// Empty values are left out.
func (e Event) attributes() map[string]string {
	out := make(map[string]string, 4)
	for k, v := range map[string]string{
		"call_id":     e.CallID,
		"status_code": e.StatusCode,
		"result_code": e.ResultCode,
	} {
		if v != "" {
			out[k] = v
		}
	}
	if e.Success {
		out["outcome"] = "success"
	} else {
		out["outcome"] = "failure"
	}
	return out
}

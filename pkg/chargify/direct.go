package chargify

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direct builds signed Chargify Direct forms and verifies the redirect that
// Chargify sends back after processing one.
//
// A form posts straight from the browser to the API. It is authenticated by
// an HMAC-SHA1 signature over api id, timestamp, nonce and the encoded data,
// keyed with the api secret, so the secret itself never leaves the server.
type Direct struct {
	client    *Client
	timestamp string
	nonce     string
	redirect  string
	data      url.Values
}

// SecureField is one hidden input of a Direct form.
type SecureField struct {
	Name  string
	Value string
}

// RedirectParams are the query parameters of a Direct redirect.
type RedirectParams struct {
	APIID      string
	Timestamp  string
	Nonce      string
	StatusCode string
	ResultCode string
	CallID     string
	Signature  string
}

// SignedAt parses the redirect timestamp. A missing, non-numeric or
// non-positive timestamp is an ErrInvalidRedirect.
func (p RedirectParams) SignedAt() (time.Time, error) {
	sec, err := strconv.ParseInt(p.Timestamp, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidRedirect, p.Timestamp)
	}
	return time.Unix(sec, 0), nil
}

func newDirect(c *Client) *Direct {
	return &Direct{
		client:    c,
		timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		nonce:     newNonce(),
		data:      url.Values{},
	}
}

func newNonce() string {
	sum := sha1.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// SetRedirect sets the URL Chargify redirects the browser to. It travels in
// the signed data as redirect_uri.
func (d *Direct) SetRedirect(u string) *Direct {
	d.redirect = u
	return d
}

// Redirect returns the redirect URL.
func (d *Direct) Redirect() string { return d.redirect }

// SetData replaces the tamper-proof form data.
func (d *Direct) SetData(values url.Values) *Direct {
	d.data = url.Values{}
	for k, v := range values {
		d.data[k] = append([]string(nil), v...)
	}
	return d
}

// SetTimestamp overrides the unix timestamp taken at construction.
func (d *Direct) SetTimestamp(ts int64) *Direct {
	d.timestamp = strconv.FormatInt(ts, 10)
	return d
}

// SetNonce overrides the random nonce.
func (d *Direct) SetNonce(nonce string) *Direct {
	d.nonce = nonce
	return d
}

// Timestamp is the unix time, in seconds, that goes into secure[timestamp].
func (d *Direct) Timestamp() string { return d.timestamp }

// Nonce is the value that goes into secure[nonce].
func (d *Direct) Nonce() string { return d.nonce }

// SignupAction is the form action for a signup.
func (d *Direct) SignupAction() string {
	return d.client.BaseURL() + "/signups"
}

// CardUpdateAction is the form action for updating a subscription's card.
func (d *Direct) CardUpdateAction(subscriptionID string) string {
	return d.client.BaseURL() + "/subscriptions/" + url.PathEscape(subscriptionID) + "/card_update"
}

// DataString is the URL-encoded data, keys sorted.
func (d *Direct) DataString() string {
	values := url.Values{}
	for k, v := range d.data {
		values[k] = v
	}
	if d.redirect != "" {
		values.Set("redirect_uri", d.redirect)
	}
	return values.Encode()
}

// Signature is the hex HMAC-SHA1 of api_id+timestamp+nonce+data.
func (d *Direct) Signature() string {
	return sign(d.client.APISecret(), d.client.APIID(), d.timestamp, d.nonce, d.DataString())
}

// SecureFields returns the hidden inputs in the order Chargify documents them.
func (d *Direct) SecureFields() []SecureField {
	return []SecureField{
		{Name: "secure[api_id]", Value: d.client.APIID()},
		{Name: "secure[timestamp]", Value: d.timestamp},
		{Name: "secure[nonce]", Value: d.nonce},
		{Name: "secure[data]", Value: d.DataString()},
		{Name: "secure[signature]", Value: d.Signature()},
	}
}

// HiddenFields renders SecureFields as HTML hidden inputs, one per line.
func (d *Direct) HiddenFields() string {
	var b strings.Builder
	for _, f := range d.SecureFields() {
		b.WriteString(`<input type="hidden" name="`)
		b.WriteString(html.EscapeString(f.Name))
		b.WriteString(`" value="`)
		b.WriteString(html.EscapeString(f.Value))
		b.WriteString("\" />\n")
	}
	return b.String()
}

// ParseRedirect extracts the Direct parameters from a redirect query.
func ParseRedirect(q url.Values) RedirectParams {
	return RedirectParams{
		APIID:      q.Get("api_id"),
		Timestamp:  q.Get("timestamp"),
		Nonce:      q.Get("nonce"),
		StatusCode: q.Get("status_code"),
		ResultCode: q.Get("result_code"),
		CallID:     q.Get("call_id"),
		Signature:  q.Get("signature"),
	}
}

// VerifyRedirect reports whether p was signed with this client's secret.
func (d *Direct) VerifyRedirect(p RedirectParams) bool {
	if p.Signature == "" || p.APIID != d.client.APIID() {
		return false
	}
	want := sign(d.client.APISecret(), p.APIID, p.Timestamp, p.Nonce, p.StatusCode, p.ResultCode, p.CallID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(p.Signature)))
}

func sign(secret string, parts ...string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

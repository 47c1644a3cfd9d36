package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/chargify-go/internal/storage"
	"github.com/samvad-hq/chargify-go/pkg/chargify"
	"github.com/samvad-hq/chargify-go/pkg/publishers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIID  = "id-123"
	testSecret = "secret-789"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

func newFakeAPI(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCallback(t *testing.T, apiURL string, pub EventPublisher, opts ...CallbackOption) *Callback {
	t.Helper()
	client := chargify.New(map[string]string{
		"api_id":       testAPIID,
		"api_password": "pw",
		"api_secret":   testSecret,
	}, chargify.WithBaseURL(apiURL))
	store, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "nonces.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cb, err := NewCallback(":0", client, store, pub, nil, opts...)
	require.NoError(t, err)
	return cb
}

func signedQuery(nonce, resultCode string) url.Values {
	return signedQueryAt(strconv.FormatInt(time.Now().Unix(), 10), nonce, resultCode)
}

func signedQueryAt(ts, nonce, resultCode string) url.Values {
	q := url.Values{
		"api_id":      {testAPIID},
		"timestamp":   {ts},
		"nonce":       {nonce},
		"status_code": {"200"},
		"result_code": {resultCode},
		"call_id":     {"call-1"},
	}
	mac := hmac.New(sha1.New, []byte(testSecret))
	mac.Write([]byte(testAPIID + ts + nonce + "200" + resultCode + "call-1"))
	q.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	return q
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCallbackHealthz(t *testing.T) {
	cb := newTestCallback(t, "http://127.0.0.1:1", &recordingPublisher{})
	rec := get(t, cb.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCallbackAcceptsSignedRedirectOnce(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"call":{"id":"call-1","api_id":"id-123","nonce":"n1","success":true,
		"response":{"result":{"status_code":"200","result_code":"2000","errors":[]}}}}`)
	pub := &recordingPublisher{}
	cb := newTestCallback(t, api.URL, pub)

	target := "/chargify/direct/return?" + signedQuery("n1", "2000").Encode()
	rec := get(t, cb.Handler(), target)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "call-1", body["call_id"])
	assert.Equal(t, true, body["success"])

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, "call-1", evt.CallID)
	assert.True(t, evt.Verified)
	require.NotNil(t, evt.Call)
	assert.Equal(t, "2000", evt.Call.ResultCode())

	replay := get(t, cb.Handler(), target)
	assert.Equal(t, http.StatusConflict, replay.Code)
	assert.Len(t, pub.events, 1)
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	pub := &recordingPublisher{}
	cb := newTestCallback(t, "http://127.0.0.1:1", pub)

	q := signedQuery("n1", "2000")
	q.Set("result_code", "4000")
	rec := get(t, cb.Handler(), "/chargify/direct/return?"+q.Encode())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, pub.events)
}

func TestCallbackRequiresCallID(t *testing.T) {
	cb := newTestCallback(t, "http://127.0.0.1:1", &recordingPublisher{})
	rec := get(t, cb.Handler(), "/chargify/direct/return?nonce=n1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackPublishesWhenCallLookupFails(t *testing.T) {
	api := newFakeAPI(t, http.StatusInternalServerError, `oops`)
	pub := &recordingPublisher{err: errors.New("sink down")}
	cb := newTestCallback(t, api.URL, pub)

	rec := get(t, cb.Handler(), "/chargify/direct/return?"+signedQuery("n2", "4220").Encode())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])

	require.Len(t, pub.events, 1)
	assert.Nil(t, pub.events[0].Call)
	assert.Equal(t, "4220", pub.events[0].ResultCode)
}

func TestNewCallbackValidatesDependencies(t *testing.T) {
	_, err := NewCallback(":0", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestCallbackRequiresNonce(t *testing.T) {
	pub := &recordingPublisher{}
	cb := newTestCallback(t, "http://127.0.0.1:1", pub)

	rec := get(t, cb.Handler(), "/chargify/direct/return?"+signedQuery("", "2000").Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "nonce is required")
	assert.Empty(t, pub.events)
}

func TestCallbackRejectsRedirectsOutsideWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	pub := &recordingPublisher{}
	cb := newTestCallback(t, "http://127.0.0.1:1", pub,
		WithRedirectMaxAge(time.Hour), withClock(func() time.Time { return now }))

	for name, tc := range map[string]struct {
		ts   string
		want int
	}{
		"signed in 2011":    {"1300000000", http.StatusUnauthorized},
		"just past max age": {strconv.FormatInt(now.Add(-time.Hour-time.Second).Unix(), 10), http.StatusUnauthorized},
		"too far in future": {strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10), http.StatusUnauthorized},
		"not a number":      {"yesterday", http.StatusBadRequest},
		"missing timestamp": {"", http.StatusBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			rec := get(t, cb.Handler(), "/chargify/direct/return?"+signedQueryAt(tc.ts, "n-"+name, "2000").Encode())
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, pub.events)
}

func TestCallbackAcceptsSmallClockSkew(t *testing.T) {
	now := time.Unix(1700000000, 0)
	api := newFakeAPI(t, http.StatusOK, `{"call":{"id":"call-1","success":true}}`)
	pub := &recordingPublisher{}
	cb := newTestCallback(t, api.URL, pub, withClock(func() time.Time { return now }))

	ts := strconv.FormatInt(now.Add(time.Minute).Unix(), 10)
	rec := get(t, cb.Handler(), "/chargify/direct/return?"+signedQueryAt(ts, "n1", "2000").Encode())
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, pub.events, 1)
}

// A redirect replayed after its nonce expired must still be refused.
func TestCallbackRejectsReplayAfterNonceExpiry(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"call":{"id":"call-1","success":true}}`)
	client := chargify.New(map[string]string{
		"api_id":       testAPIID,
		"api_password": "pw",
		"api_secret":   testSecret,
	}, chargify.WithBaseURL(api.URL))
	store, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "nonces.db"), storage.Options{
		NonceTTL:        time.Second,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	signed := time.Now()
	clock := signed
	pub := &recordingPublisher{}
	cb, err := NewCallback(":0", client, store, pub, nil,
		WithRedirectMaxAge(time.Second), withClock(func() time.Time { return clock }))
	require.NoError(t, err)

	target := "/chargify/direct/return?" + signedQueryAt(strconv.FormatInt(signed.Unix(), 10), "n1", "2000").Encode()
	require.Equal(t, http.StatusOK, get(t, cb.Handler(), target).Code)

	time.Sleep(2100 * time.Millisecond)
	clock = time.Now()
	replay := get(t, cb.Handler(), target)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Len(t, pub.events, 1)
}

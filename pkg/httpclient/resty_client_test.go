package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRestyClientDoesNotFollowRedirects(t *testing.T) {
	var followed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/next" {
			followed = true
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	c := NewRestyClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/start"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode() != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode())
	}
	if followed {
		t.Fatalf("redirect should not have been followed")
	}
}

func TestRestyClientSendsAuthHeadersAndGetBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "pw" {
			t.Errorf("unexpected basic auth %q/%q ok=%v", user, pass, ok)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("missing header, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("expected GET body to be forwarded, got %q", body)
		}
		if got := r.URL.Query().Get("a"); got != "b" {
			t.Errorf("query a = %q", got)
		}
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewRestyClient(Options{
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
		Username: "id",
		Password: "pw",
		Headers:  map[string]string{"X-Test": "1"},
	})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/thing",
		Body:   []byte("payload"),
		Query:  map[string]string{"a": "b"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode() != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", resp.StatusCode())
	}
	if resp.Header().Get("X-Reply") != "yes" {
		t.Fatalf("response header not exposed")
	}
}

func TestRestyClientReturnsNilResponseOnDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewRestyClient(Options{BaseURL: url, Timeout: time.Second})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if resp != nil {
		t.Fatalf("expected nil response, got %#v", resp)
	}
}

type recordingLogger struct {
	warnings []interface{}
}

func (r *recordingLogger) DebugObj(string, string, interface{}) {}
func (r *recordingLogger) ErrorObj(string, string, interface{}) {}
func (r *recordingLogger) WarnObj(_, _ string, obj interface{}) {
	r.warnings = append(r.warnings, obj)
}

func TestRestyClientRoutesWarningsToLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := &recordingLogger{}
	c := NewRestyClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Username: "id", Password: "pw", Logger: log})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(log.warnings) == 0 {
		t.Fatalf("expected resty's plain-HTTP credentials warning to reach the logger")
	}
	if msg, _ := log.warnings[0].(string); !strings.Contains(msg, "HTTP mode") {
		t.Fatalf("unexpected warning %#v", log.warnings[0])
	}
}

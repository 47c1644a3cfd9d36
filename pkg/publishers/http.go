package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/chargify-go/pkg/httpclient"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	desc   Descriptor
	method string
	url    string
	client httpclient.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = defaultHTTPMethod
	}
	return &httpPublisher{
		desc:   cfg.Descriptor(),
		method: method,
		url:    cfg.HTTP.URL,
		client: httpclient.NewRestyClient(httpclient.Options{
			Timeout:         time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
			Headers:         headers,
			FollowRedirects: true,
			Logger:          orNop(log),
		}),
		log: orNop(log),
	}, nil
}

func (h *httpPublisher) Descriptor() Descriptor { return h.desc }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	resp, err := h.client.Do(ctx, httpclient.Request{Method: h.method, Path: h.url, Body: body})
	if resp == nil {
		return fmt.Errorf("http request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("http response status %d: %s", code, snippet(resp.Body()))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.desc.ID,
		"call_id":      evt.CallID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func snippet(body []byte) string {
	if len(body) > 256 {
		body = body[:256]
	}
	return strings.TrimSpace(string(body))
}

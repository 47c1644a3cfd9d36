package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a RestyClient.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
	Headers  map[string]string
	// Logger receives resty's warnings and errors; nil silences them.
	Logger Logger
	// FollowRedirects enables resty's default redirect handling. When false the
	// first response is returned as-is, including 3xx.
	FollowRedirects bool
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient from the given options. The underlying
// connection pool is created once and shared by every request.
func NewRestyClient(opts Options) *RestyClient {
	c := resty.New().SetTimeout(opts.Timeout).SetLogger(restyLogger{log: opts.Logger})
	if opts.BaseURL != "" {
		c.SetBaseURL(opts.BaseURL)
	}
	if opts.Username != "" || opts.Password != "" {
		c.SetBasicAuth(opts.Username, opts.Password)
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	if !opts.FollowRedirects {
		c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	}
	// Bodies on GET are unusual but callers rely on them.
	c.SetAllowGetMethodPayload(true)
	return &RestyClient{client: c}
}

// Do executes req. When the transport fails after a response was received both
// the response and the error are returned; when nothing was received the
// response is nil.
func (r *RestyClient) Do(ctx context.Context, req Request) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rr := r.client.R().SetContext(ctx)
	if req.Body != nil {
		rr.SetBody(req.Body)
	}
	if len(req.Query) > 0 {
		rr.SetQueryParams(req.Query)
	}

	resp, err := rr.Execute(req.Method, req.Path)
	if resp == nil || resp.RawResponse == nil {
		return nil, err
	}
	return &restyResponse{resp: resp}, err
}

type restyResponse struct {
	resp *resty.Response
}

func (r *restyResponse) Body() []byte        { return r.resp.Body() }
func (r *restyResponse) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponse) Header() http.Header { return r.resp.Header() }

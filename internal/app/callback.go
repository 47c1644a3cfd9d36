package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samvad-hq/chargify-go/internal/config"
	"github.com/samvad-hq/chargify-go/internal/logger"
	"github.com/samvad-hq/chargify-go/internal/storage"
	"github.com/samvad-hq/chargify-go/pkg/chargify"
	"github.com/samvad-hq/chargify-go/pkg/publishers"
)

// EventPublisher publishes Direct results downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Callback receives the browser redirect Chargify issues after a Direct form
// submission, verifies it and fans the outcome out to publishers.
type Callback struct {
	client    *chargify.Client
	store     storage.Store
	publisher EventPublisher
	log       logger.Logger
	addr      string
	router    *gin.Engine

	maxAge time.Duration
	now    func() time.Time
}

const (
	// DefaultRedirectMaxAge bounds how old a signed redirect may be. It must
	// not exceed the nonce store TTL, or an expired nonce could be replayed.
	DefaultRedirectMaxAge = 24 * time.Hour

	redirectClockSkew = 5 * time.Minute
)

// CallbackOption customizes a Callback.
type CallbackOption func(*Callback)

// WithRedirectMaxAge rejects redirects signed more than d ago.
func WithRedirectMaxAge(d time.Duration) CallbackOption {
	return func(cb *Callback) {
		if d > 0 {
			cb.maxAge = d
		}
	}
}

func withClock(now func() time.Time) CallbackOption {
	return func(cb *Callback) { cb.now = now }
}

// NewCallback wires the receiver from its dependencies. Each request works on
// its own client Session so LastResponse is never shared between handlers.
func NewCallback(addr string, client *chargify.Client, store storage.Store, pub EventPublisher, log logger.Logger, opts ...CallbackOption) (*Callback, error) {
	if client == nil {
		return nil, fmt.Errorf("chargify client must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("nonce store must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if pub == nil {
		pub = publishers.NewFanout(nil)
	}

	cb := &Callback{
		client:    client,
		store:     store,
		publisher: pub,
		log:       log,
		addr:      addr,
		maxAge:    DefaultRedirectMaxAge,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.router = cb.routes()
	return cb, nil
}

// NewCallbackFromConfig builds the receiver and everything it owns from cfg.
func NewCallbackFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Callback, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	client := chargify.New(cfg.ClientSettings(), chargify.WithFormat(cfg.Format), chargify.WithLogger(log))

	fanout, err := publishers.LoadFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      fanout.Size(),
		"publishers": fanout.Summaries(),
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		NonceTTL:        cfg.NonceTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"nonce_ttl_seconds":        int(cfg.NonceTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return NewCallback(cfg.CallbackAddr, client, store, fanout, log, WithRedirectMaxAge(cfg.NonceTTL))
}

// Handler exposes the router, mainly for tests.
func (cb *Callback) Handler() http.Handler {
	return cb.router
}

func (cb *Callback) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), cb.requestLogger())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/chargify/direct/return", cb.handleReturn)
	return r
}

func (cb *Callback) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		cb.log.InfoObj("callback request", "http_request", map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}

func (cb *Callback) handleReturn(c *gin.Context) {
	params := chargify.ParseRedirect(c.Request.URL.Query())
	if params.CallID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "call_id is required"})
		return
	}
	if params.Nonce == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce is required"})
		return
	}

	client := cb.client.Session()
	if !client.Direct().VerifyRedirect(params) {
		cb.log.WarnObj("direct redirect signature rejected", "direct_redirect", map[string]any{
			"call_id": params.CallID,
			"api_id":  params.APIID,
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	signedAt, err := params.SignedAt()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp"})
		return
	}
	// Older redirects may carry a nonce the store has already forgotten.
	if age := cb.now().Sub(signedAt); age > cb.maxAge || age < -redirectClockSkew {
		cb.log.WarnObj("direct redirect outside accepted window", "direct_redirect", map[string]any{
			"call_id":   params.CallID,
			"signed_at": signedAt.UTC().Format(time.RFC3339),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "redirect expired"})
		return
	}

	fresh, err := cb.store.Consume(params.Nonce)
	if err != nil {
		cb.log.ErrorObj("nonce store failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "nonce check failed"})
		return
	}
	if !fresh {
		c.JSON(http.StatusConflict, gin.H{"error": "redirect already processed"})
		return
	}

	ctx := c.Request.Context()
	rec, err := fetchCall(ctx, client, params.CallID)
	if err != nil {
		cb.log.WarnObj("call lookup failed", "call_lookup", map[string]any{
			"call_id": params.CallID,
			"error":   err.Error(),
		})
	}

	evt := publishers.NewEvent(params, rec)
	delivered, err := cb.publisher.Publish(ctx, evt)
	if err != nil {
		cb.log.ErrorObj("direct result publish failed", "publish_error", map[string]any{
			"call_id":   params.CallID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"call_id":     evt.CallID,
		"status_code": evt.StatusCode,
		"result_code": evt.ResultCode,
		"success":     evt.Success,
	})
}

func fetchCall(ctx context.Context, client *chargify.Client, callID string) (*chargify.CallRecord, error) {
	call := client.Call()
	res, err := call.Read(ctx, callID)
	if err != nil {
		return nil, err
	}
	return call.Decode(res)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (cb *Callback) Run(ctx context.Context) error {
	if cb == nil || cb.router == nil {
		return fmt.Errorf("callback receiver is not initialized")
	}
	defer cb.closeStore()

	srv := &http.Server{
		Addr:              cb.addr,
		Handler:           cb.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cb.log.InfoObj("callback receiver listening", "addr", cb.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		cb.log.InfoObj("callback receiver exiting", "reason", ctx.Err().Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (cb *Callback) closeStore() {
	if err := cb.store.Close(); err != nil {
		cb.log.ErrorObj("storage close failed", "error", err)
	}
}

package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SignatureHeader carries "sha256=" followed by the hex HMAC-SHA256 of the
// request body.
const SignatureHeader = "X-Pest-Signature"

var defaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// WebhookConfig configures a WebhookDispatcher.
type WebhookConfig struct {
	URLs   []string
	Secret string // empty = unsigned deliveries
	// RetryDelays is the wait before each attempt; its length is the attempt
	// count. Nil uses 0s, 1s, 5s.
	RetryDelays []time.Duration
	Timeout     time.Duration
}

// WebhookDispatcher POSTs every event to a fixed list of endpoints.
type WebhookDispatcher struct {
	urls        []string
	secret      string
	retryDelays []time.Duration
	httpClient  *http.Client
	onMetrics   MetricsRecorder
	lifetime    context.Context // nil = deliveries run to completion
	logger      *zap.Logger
}

// NewWebhookDispatcher creates a WebhookDispatcher.
func NewWebhookDispatcher(cfg WebhookConfig, logger *zap.Logger) *WebhookDispatcher {
	delays := cfg.RetryDelays
	if len(delays) == 0 {
		delays = defaultRetryDelays
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		urls:        cfg.URLs,
		secret:      cfg.Secret,
		retryDelays: delays,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (d *WebhookDispatcher) SetMetricsRecorder(fn MetricsRecorder) {
	d.onMetrics = fn
}

// SetLifetime bounds background deliveries: when ctx is done, pending retries
// and in-flight requests are abandoned. Typically the server's shutdown context.
func (d *WebhookDispatcher) SetLifetime(ctx context.Context) {
	d.lifetime = ctx
}

// Dispatch implements Dispatcher. Each endpoint is delivered on its own
// goroutine, detached from the request context but bound to the lifetime
// context when one is set.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		d.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}
	signature := ""
	if d.secret != "" {
		signature = Sign(body, d.secret)
	}

	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := func() bool { return false }
	if d.lifetime != nil {
		stop = context.AfterFunc(d.lifetime, cancel)
	}

	var wg sync.WaitGroup
	for _, url := range d.urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deliver(detached, url, e, body, signature)
		}()
	}
	go func() {
		wg.Wait()
		stop()
		cancel()
	}()
}

// deliver sends the event to one endpoint with retries.
func (d *WebhookDispatcher) deliver(ctx context.Context, url string, e Event, body []byte, signature string) {
	for attempt, delay := range d.retryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				d.logger.Warn("webhook: delivery abandoned on shutdown",
					zap.String("url", url),
					zap.String("event", e.Type),
					zap.Int("attempt", attempt+1),
				)
				return
			}
		}

		success, errMsg := d.doDelivery(ctx, url, body, signature)
		if d.onMetrics != nil {
			d.onMetrics("webhook", success)
		}
		if success {
			return
		}

		d.logger.Warn("webhook: delivery failed",
			zap.String("url", url),
			zap.String("event", e.Type),
			zap.Int("attempt", attempt+1),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST.
func (d *WebhookDispatcher) doDelivery(ctx context.Context, url string, body []byte, signature string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return true, ""
}

// Sign computes the HMAC-SHA256 signature sent in SignatureHeader.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

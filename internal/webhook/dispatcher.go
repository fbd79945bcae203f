package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"post-webhook/internal/content"
	"post-webhook/internal/instrument"
)

// DefaultTimeout bounds a single outbound webhook request.
const DefaultTimeout = 30 * time.Second

// Delivery events recorded in the log.
const (
	EventPublish = "publish"
	EventTest    = "test"
)

const maxResponseBody = 64 * 1024

// ShouldDispatch reports whether a status transition is a new publish of a
// regular post with a webhook configured.
func ShouldDispatch(newStatus, oldStatus, postType, url string) bool {
	return url != "" &&
		newStatus == content.StatusPublish &&
		oldStatus != content.StatusPublish &&
		postType == content.TypePost
}

// PostDataProvider builds the payload on demand, only once dispatch is decided.
type PostDataProvider func(ctx context.Context) (*Payload, error)

// DispatchResult holds the outcome of a single webhook HTTP call.
type DispatchResult struct {
	StatusCode   int
	ResponseBody string
	Error        string
	Duration     time.Duration
}

// OK reports a 2xx response.
func (r *DispatchResult) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Delivery is one attempted send, as handed to a Recorder.
type Delivery struct {
	PostID      int64
	Event       string
	URL         string
	RequestBody []byte
	Result      *DispatchResult
}

// Recorder keeps a history of deliveries.
type Recorder interface {
	Record(ctx context.Context, d Delivery)
}

// Dispatcher sends post payloads to the webhook endpoint. Sends are
// synchronous and never report failure to the caller.
type Dispatcher struct {
	client    *http.Client
	timeout   time.Duration
	condition *Condition
	recorder  Recorder
}

type Option func(*Dispatcher)

// WithCondition adds an expression gate applied after the publish rule.
func WithCondition(c *Condition) Option {
	return func(d *Dispatcher) { d.condition = c }
}

// WithRecorder stores every delivery attempt.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithHTTPClient replaces the transport. The dispatcher timeout still applies.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

func NewDispatcher(timeout time.Duration, opts ...Option) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaybeDispatch sends the payload when the transition qualifies. url is the
// endpoint configured at call time; "" disables sending.
func (d *Dispatcher) MaybeDispatch(ctx context.Context, newStatus, oldStatus, postType, url string, provider PostDataProvider) {
	if !ShouldDispatch(newStatus, oldStatus, postType, url) {
		return
	}

	payload, err := provider(ctx)
	if err != nil {
		log.Printf("ERROR: webhook payload: %v", err)
		return
	}

	allowed, err := d.condition.Allows(newStatus, oldStatus, payload)
	if err != nil {
		log.Printf("ERROR: webhook post %d: %v", payload.ID, err)
		return
	}
	if !allowed {
		return
	}

	d.Send(ctx, EventPublish, url, payload)
}

// Send performs one POST of payload to url. The request is detached from the
// caller's cancellation and bounded only by the dispatcher timeout.
func (d *Dispatcher) Send(ctx context.Context, event, url string, payload *Payload) *DispatchResult {
	ctx = context.WithoutCancel(ctx)
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "webhook", "dispatcher", "webhook.dispatch")
	defer span.End()
	span.SetMetadata("url", url)
	span.SetMetadata("event", event)
	span.SetMetadata("post_id", payload.ID)

	body, err := payload.Marshal()
	var result *DispatchResult
	if err != nil {
		result = &DispatchResult{Error: fmt.Sprintf("encode payload: %v", err)}
	} else {
		result = d.post(ctx, url, body)
	}

	if result.OK() {
		span.SetStatus("ok")
	} else {
		span.SetStatus("error")
		span.SetMetadata("error", result.Error)
		log.Printf("WARN: webhook %s for post %d to %s failed: %s", event, payload.ID, url, result.describe())
	}
	span.SetMetadata("status_code", result.StatusCode)

	if d.recorder != nil {
		d.recorder.Record(ctx, Delivery{
			PostID:      payload.ID,
			Event:       event,
			URL:         url,
			RequestBody: body,
			Result:      result,
		})
	}
	return result
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) *DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &DispatchResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &DispatchResult{Error: fmt.Sprintf("http call: %v", err), Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return &DispatchResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
		Duration:     time.Since(start),
	}
}

func (r *DispatchResult) describe() string {
	if r.Error != "" {
		return r.Error
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

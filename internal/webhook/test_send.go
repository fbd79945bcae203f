package webhook

import (
	"context"
	"errors"
	"fmt"

	"post-webhook/internal/content"
	"post-webhook/internal/store"
)

// Test-send outcomes.
const (
	TestSent    = "SENT"
	TestDenied  = "FORBIDDEN"
	TestNoURL   = "NO_WEBHOOK_URL"
	TestNoPosts = "NO_POSTS"
)

const (
	msgTestSent    = "Test webhook sent successfully."
	msgTestDenied  = "You don't have permission."
	msgTestNoURL   = "Please provide a valid URL"
	msgTestNoPosts = "No posts found to send a test."
)

// TestResult is what the admin sees after asking for a test dispatch.
type TestResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK reports whether a request was sent.
func (r TestResult) OK() bool { return r.Code == TestSent }

// LatestSource finds the newest published post of a type.
type LatestSource interface {
	Latest(ctx context.Context, postType string) (*content.Post, error)
}

// TestSender sends the latest post to the configured endpoint on demand.
type TestSender struct {
	dispatcher *Dispatcher
	urls       URLSource
	posts      LatestSource
	site       *content.Site
}

func NewTestSender(d *Dispatcher, urls URLSource, posts LatestSource, site *content.Site) *TestSender {
	return &TestSender{dispatcher: d, urls: urls, posts: posts, site: site}
}

// SendTest checks the caller may manage options, then sends the latest post
// exactly like a publish event. Success is reported whatever the endpoint
// answered; the delivery log holds the real outcome.
func (s *TestSender) SendTest(ctx context.Context, user *content.UserContext) (TestResult, error) {
	if !user.Can(content.CapManageOptions) {
		return TestResult{Code: TestDenied, Message: msgTestDenied}, nil
	}

	url, err := s.urls.WebhookURL(ctx)
	if err != nil {
		return TestResult{}, fmt.Errorf("read webhook url: %w", err)
	}
	if url == "" {
		return TestResult{Code: TestNoURL, Message: msgTestNoURL}, nil
	}

	post, err := s.posts.Latest(ctx, content.TypePost)
	if errors.Is(err, store.ErrNotFound) {
		return TestResult{Code: TestNoPosts, Message: msgTestNoPosts}, nil
	}
	if err != nil {
		return TestResult{}, fmt.Errorf("load latest post: %w", err)
	}

	s.dispatcher.Send(ctx, EventTest, url, BuildPayload(post, s.site))
	return TestResult{Code: TestSent, Message: msgTestSent}, nil
}

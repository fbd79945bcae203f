package webhook

import (
	"context"
	"log"

	"post-webhook/internal/content"
)

// URLSource yields the currently configured webhook URL.
type URLSource interface {
	WebhookURL(ctx context.Context) (string, error)
}

// PostSource reloads a post from the content store.
type PostSource interface {
	Get(ctx context.Context, id int64) (*content.Post, error)
}

// PublishHook adapts the dispatcher to post status transitions. The URL is
// read on every transition and the post is reloaded before building the
// payload, so terms and author reflect the store at send time.
func PublishHook(d *Dispatcher, urls URLSource, posts PostSource, site *content.Site) content.TransitionFunc {
	return func(ctx context.Context, newStatus, oldStatus string, post *content.Post) {
		url, err := urls.WebhookURL(ctx)
		if err != nil {
			log.Printf("ERROR: read webhook url: %v", err)
			return
		}
		d.MaybeDispatch(ctx, newStatus, oldStatus, post.Type, url, func(ctx context.Context) (*Payload, error) {
			fresh, err := posts.Get(ctx, post.ID)
			if err != nil {
				return nil, err
			}
			return BuildPayload(fresh, site), nil
		})
	}
}

package settings

import (
	"context"
	"errors"
	"fmt"

	"post-webhook/internal/store"
)

// WebhookURLOption is the option holding the endpoint notified on publish.
const WebhookURLOption = "new_post_webhook"

// Options is a key/value settings table. The last write wins.
type Options struct {
	store *store.Store
}

func NewOptions(s *store.Store) *Options {
	return &Options{store: s}
}

// Get returns the option value, or def when it was never set.
func (o *Options) Get(ctx context.Context, name, def string) (string, error) {
	pb := o.store.Dialect.NewParamBuilder()
	var value string
	err := o.store.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM _options WHERE name = %s", pb.Add(name)), pb.Params()...).Scan(&value)
	if err != nil {
		if errors.Is(store.MapError(o.store.Dialect, err), store.ErrNotFound) {
			return def, nil
		}
		return "", fmt.Errorf("get option %s: %w", name, err)
	}
	return value, nil
}

// Set stores value under name, replacing any previous value.
func (o *Options) Set(ctx context.Context, name, value string) error {
	pb := o.store.Dialect.NewParamBuilder()
	_, err := store.Exec(ctx, o.store.DB,
		fmt.Sprintf(`INSERT INTO _options (name, value) VALUES (%s, %s)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = %s`,
			pb.Add(name), pb.Add(value), o.store.Dialect.NowExpr()),
		pb.Params()...)
	if err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

// WebhookURL returns the configured endpoint; "" means dispatch is disabled.
func (o *Options) WebhookURL(ctx context.Context) (string, error) {
	return o.Get(ctx, WebhookURLOption, "")
}

// SetWebhookURL sanitizes raw and stores the result, returning what was stored.
func (o *Options) SetWebhookURL(ctx context.Context, raw string) (string, error) {
	clean := SanitizeURL(raw)
	if err := o.Set(ctx, WebhookURLOption, clean); err != nil {
		return "", err
	}
	return clean, nil
}

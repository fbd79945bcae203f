package webhook

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"post-webhook/internal/store"
)

// DeliveryLog records webhook attempts in _webhook_logs. It is an audit trail
// only; nothing is ever retried from it.
type DeliveryLog struct {
	store *store.Store
}

func NewDeliveryLog(s *store.Store) *DeliveryLog {
	return &DeliveryLog{store: s}
}

// Record inserts one row. Failures are logged and otherwise ignored.
func (l *DeliveryLog) Record(ctx context.Context, d Delivery) {
	pb := l.store.Dialect.NewParamBuilder()
	_, err := store.Exec(ctx, l.store.DB,
		fmt.Sprintf(`INSERT INTO _webhook_logs (id, post_id, event, url, request_body, response_status, response_body, error, duration_ms)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
			pb.Add(uuid.New().String()), pb.Add(d.PostID), pb.Add(d.Event), pb.Add(d.URL), pb.Add(string(d.RequestBody)),
			pb.Add(d.Result.StatusCode), pb.Add(d.Result.ResponseBody), pb.Add(d.Result.Error),
			pb.Add(float64(d.Result.Duration.Microseconds())/1000.0)),
		pb.Params()...)
	if err != nil {
		log.Printf("ERROR: failed to log webhook delivery for post %d: %v", d.PostID, err)
	}
}

// DeliveryPageSize returns the page size List uses for limit: 50 when it is out of range.
func DeliveryPageSize(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}

// List returns recent deliveries, newest first by insertion order.
func (l *DeliveryLog) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	limit = DeliveryPageSize(limit)
	if offset < 0 {
		offset = 0
	}
	pb := l.store.Dialect.NewParamBuilder()
	rows, err := store.QueryRows(ctx, l.store.DB,
		fmt.Sprintf(`SELECT id, post_id, event, url, response_status, error, duration_ms, created_at
		 FROM _webhook_logs ORDER BY seq DESC LIMIT %s OFFSET %s`, pb.Add(limit), pb.Add(offset)),
		pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list webhook deliveries: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

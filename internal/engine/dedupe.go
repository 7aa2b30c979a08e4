package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DedupingSender wraps a NotificationSender and suppresses identical
// sends within a TTL window. The event source delivers at-least-once, so
// a re-delivered event would otherwise notify the same recipients twice;
// suppression at the adapter boundary keeps the dispatcher itself simple.
type DedupingSender struct {
	inner NotificationSender
	seen  *expirable.LRU[string, struct{}]
}

// NewDedupingSender creates a deduplicating wrapper remembering up to
// maxSize sends for the given window.
func NewDedupingSender(inner NotificationSender, maxSize int, window time.Duration) *DedupingSender {
	return &DedupingSender{
		inner: inner,
		seen:  expirable.NewLRU[string, struct{}](maxSize, nil, window),
	}
}

func (d *DedupingSender) Send(ctx context.Context, recipients []string, title, body string) error {
	key := sendKey(recipients, title, body)
	if _, dup := d.seen.Get(key); dup {
		return nil
	}
	if err := d.inner.Send(ctx, recipients, title, body); err != nil {
		return err
	}
	// Only successful sends are remembered; a failed send stays
	// retryable by a re-delivered event.
	d.seen.Add(key, struct{}{})
	return nil
}

func sendKey(recipients []string, title, body string) string {
	sum := sha256.Sum256([]byte(strings.Join(recipients, ",") + "\x00" + title + "\x00" + body))
	return hex.EncodeToString(sum[:])
}

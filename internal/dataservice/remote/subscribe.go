package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/pkg/events"
)

// FeedURL is the websocket address of the change feed.
func (c *Client) FeedURL() string {
	switch {
	case strings.HasPrefix(c.base, "https://"):
		return "wss://" + strings.TrimPrefix(c.base, "https://") + "/ws"
	default:
		return "ws://" + strings.TrimPrefix(c.base, "http://") + "/ws"
	}
}

// Subscribe delivers every change the server announces to handler until
// ctx is done, reconnecting with backoff when the feed drops. handler runs
// on the reading goroutine.
func (c *Client) Subscribe(ctx context.Context, handler func(events.Event)) error {
	backoff := NewBackoff()
	for {
		err := c.stream(ctx, handler, backoff.Reset)
		if ctx.Err() != nil {
			return nil
		}
		delay := backoff.Next()
		c.logger.Warn("change feed disconnected",
			zap.Error(err),
			zap.Int("attempt", backoff.Attempts()),
			zap.Duration("retry_in", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) stream(ctx context.Context, handler func(events.Event), connected func()) error {
	conn, _, err := c.dialer.DialContext(ctx, c.FeedURL(), nil)
	if err != nil {
		return fmt.Errorf("dial change feed: %w", err)
	}
	defer conn.Close()
	connected()
	c.logger.Info("change feed connected", zap.String("url", c.FeedURL()))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("read change feed: %w", err)
		}
		handler(ev)
	}
}

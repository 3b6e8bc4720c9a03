// Package progress maintains the push channel for generation progress
// events. The channel is receive-only: the server broadcasts, the client
// listens, and a lost connection is re-dialed after a fixed delay.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
)

// Channel owns one websocket subscription and delivers decoded progress
// events on Events. Run blocks until its context is cancelled.
type Channel struct {
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	events         chan models.ProgressEvent
	sink           notify.Sink
}

// NewChannel prepares a channel for wsURL. Events are not delivered until
// Run is started.
func NewChannel(wsURL string, reconnectDelay time.Duration, sink notify.Sink) *Channel {
	if sink == nil {
		sink = notify.Discard
	}
	return &Channel{
		url:            wsURL,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
		events:         make(chan models.ProgressEvent, 16),
		sink:           sink,
	}
}

// Events returns the decoded event stream. The channel is closed when Run
// returns.
func (c *Channel) Events() <-chan models.ProgressEvent {
	return c.events
}

// Run dials the server and pumps events until ctx is cancelled. Each lost
// connection schedules exactly one reconnect after the configured delay,
// regardless of how the connection failed.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.events)

	for {
		if err := c.runOnce(ctx); err != nil {
			fmt.Printf("[ProgressChannel] connection lost: %v\n", err)
			c.sink.Notify(notify.LevelWarning, "Progress channel lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// runOnce holds a single connection open, reading until it breaks or ctx
// is cancelled. A ctx cancellation returns nil so Run can exit quietly.
func (c *Channel) runOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	fmt.Printf("[ProgressChannel] connected to %s\n", c.url)
	c.sink.Notify(notify.LevelInfo, "Progress channel connected")

	// Unblock ReadMessage when the context is cancelled.
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
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		ev, err := models.DecodeProgressEvent(data)
		if err != nil {
			if errors.Is(err, models.ErrUnknownEvent) {
				fmt.Printf("[ProgressChannel] skipping message: %v\n", err)
				continue
			}
			fmt.Printf("[ProgressChannel] bad message: %v\n", err)
			continue
		}

		select {
		case c.events <- *ev:
		case <-ctx.Done():
			return nil
		}
	}
}

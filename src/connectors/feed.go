package connectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

// NotificationFeed maintains the websocket push channel for one venue and
// delivers acknowledgment/fill/reject/cancel-confirm messages in the order
// the venue sends them. A single read loop preserves the venue sequence.
type NotificationFeed struct {
	venue     string
	url       string
	apiKey    string
	apiSecret string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	out chan VenueNotification
}

// NewNotificationFeed creates a feed; Connect must be called before
// notifications flow.
func NewNotificationFeed(venue, url, apiKey, apiSecret string) *NotificationFeed {
	return &NotificationFeed{
		venue:     venue,
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		out:       make(chan VenueNotification, 256),
	}
}

// Notifications returns the delivery channel. Closed when the feed stops.
func (f *NotificationFeed) Notifications() <-chan VenueNotification {
	return f.out
}

// Connect dials the venue and starts the read and keepalive loops. The feed
// reconnects with backoff until ctx is cancelled.
func (f *NotificationFeed) Connect(ctx context.Context) error {
	if err := f.dial(ctx); err != nil {
		return err
	}

	go f.run(ctx)
	return nil
}

func (f *NotificationFeed) dial(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connected {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to venue feed: %w", err)
	}

	sub := map[string]string{
		"op":  "subscribe",
		"ch":  "orders",
		"key": f.apiKey,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to order channel: %w", err)
	}

	f.conn = conn
	f.connected = true

	logger.WithFields(logger.Fields{
		"venue": f.venue,
		"url":   f.url,
	}).Info("venue notification feed connected")

	return nil
}

// run owns the connection lifecycle: read until failure, then redial with
// backoff. Exactly one reader keeps venue ordering intact.
func (f *NotificationFeed) run(ctx context.Context) {
	defer close(f.out)

	go f.keepAlive(ctx)

	backoff := time.Second
	for {
		f.readLoop(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}

		if err := f.dial(ctx); err != nil {
			logger.WithError(err).WithField("venue", f.venue).Error("venue feed reconnect failed")
			continue
		}
		backoff = time.Second
	}
}

func (f *NotificationFeed) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.disconnect()
			return
		default:
		}

		var note VenueNotification
		if err := f.conn.ReadJSON(&note); err != nil {
			logger.WithError(err).WithField("venue", f.venue).Error("failed to read venue notification")
			f.disconnect()
			return
		}

		note.Venue = f.venue
		if note.OccurredAt.IsZero() {
			note.OccurredAt = time.Now().UTC()
		}

		select {
		case f.out <- note:
		case <-ctx.Done():
			f.disconnect()
			return
		}
	}
}

func (f *NotificationFeed) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			if f.connected {
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					logger.WithError(err).WithField("venue", f.venue).Error("failed to ping venue feed")
				}
			}
			f.mu.Unlock()
		}
	}
}

func (f *NotificationFeed) disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = false
	if f.conn != nil {
		f.conn.Close()
	}
}

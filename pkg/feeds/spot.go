// Package feeds streams the spot price of the market's underlying asset.
// The feed backs the price-difference entry filter: it tracks the live
// price together with the reference price captured at window open.
package feeds

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second

	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// tradeMessage is the subset of the exchange trade stream payload we use.
type tradeMessage struct {
	Price string `json:"p"`
}

// SpotFeed maintains a websocket subscription to a trade stream and exposes
// the latest price. The first price observed after Start (or after
// ResetReference) becomes the reference price.
type SpotFeed struct {
	url string
	log *logrus.Entry

	mu        sync.RWMutex
	current   float64
	reference float64
	hasCur    bool
	hasRef    bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpotFeed creates a feed reading from the given websocket URL.
func NewSpotFeed(url string) *SpotFeed {
	return &SpotFeed{
		url: url,
		log: logrus.WithField("component", "spotfeed"),
	}
}

// Start launches the feed's read loop. It reconnects with exponential
// backoff until Stop is called or the context is cancelled.
func (f *SpotFeed) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.run(ctx)
}

// Stop shuts the feed down and waits for the read loop to exit.
func (f *SpotFeed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
}

// Snapshot returns the live price and the window-open reference price.
// ok is false until both have been observed.
func (f *SpotFeed) Snapshot() (current, reference float64, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.reference, f.hasCur && f.hasRef
}

// ResetReference clears the reference price; the next trade observed
// becomes the new reference. Call this when a new market window opens.
func (f *SpotFeed) ResetReference() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasRef = false
}

func (f *SpotFeed) run(ctx context.Context) {
	defer close(f.done)

	delay := initialReconnectDelay
	for {
		if err := f.readOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.WithError(err).Warnf("feed disconnected, reconnecting in %s", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// readOnce dials the stream and consumes messages until the connection
// drops or the context is cancelled.
func (f *SpotFeed) readOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.WithField("url", f.url).Info("spot feed connected")

	// Unblock ReadMessage when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg tradeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			f.log.WithError(err).Debug("skipping unparseable message")
			continue
		}
		if msg.Price == "" {
			continue
		}

		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		f.observe(price)
	}
}

func (f *SpotFeed) observe(price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = price
	f.hasCur = true
	if !f.hasRef {
		f.reference = price
		f.hasRef = true
	}
}

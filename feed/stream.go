package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StreamURL is the Binance miniTicker stream for ETH/USDT.
const StreamURL = "wss://stream.binance.com:9443/ws/ethusdt@miniTicker"

// Stream is a websocket-backed price source. It keeps the most recent ticker
// in memory and serves it instantly; when the cached tick is older than the
// staleness bound the source reports failure so the feed fails over to the
// REST sources.
type Stream struct {
	url       string
	staleness time.Duration
	log       *logrus.Entry

	mu   sync.RWMutex
	last float64
	at   time.Time

	cancel context.CancelFunc
}

func NewStream(url string, staleness time.Duration) *Stream {
	if url == "" {
		url = StreamURL
	}
	if staleness <= 0 {
		staleness = 30 * time.Second
	}
	return &Stream{
		url:       url,
		staleness: staleness,
		log:       logrus.WithField("component", "feed.stream"),
	}
}

func (s *Stream) Name() string { return "binance-stream" }

// Price serves the cached tick. It never blocks on the network.
func (s *Stream) Price(ctx context.Context) (float64, error) {
	s.mu.RLock()
	last, at := s.last, s.at
	s.mu.RUnlock()

	if at.IsZero() {
		return 0, fmt.Errorf("no tick received yet")
	}
	if age := time.Since(at); age > s.staleness {
		return 0, fmt.Errorf("tick stale by %s", age.Round(time.Second))
	}
	return last, nil
}

// Start connects and launches the read loop with reconnect backoff. The loop
// stops when ctx is cancelled or Stop is called.
func (s *Stream) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Stop tears down the stream.
func (s *Stream) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Stream) run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.readLoop(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// miniTicker is the subset of the Binance miniTicker payload we need.
type miniTicker struct {
	Close string `json:"c"`
}

func (s *Stream) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	s.log.WithField("url", s.url).Info("stream connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.staleness * 2))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var tick miniTicker
		if err := json.Unmarshal(msg, &tick); err != nil {
			continue
		}
		var price float64
		if _, err := fmt.Sscanf(tick.Close, "%f", &price); err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.last = price
		s.at = time.Now()
		s.mu.Unlock()
	}
}

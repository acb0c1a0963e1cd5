package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_NoTickYet(t *testing.T) {
	t.Parallel()

	s := NewStream("ws://unused", time.Minute)
	_, err := s.Price(context.Background())
	assert.Error(t, err)
}

func TestStream_StaleTickRejected(t *testing.T) {
	t.Parallel()

	s := NewStream("ws://unused", 10*time.Millisecond)
	s.mu.Lock()
	s.last = 3000
	s.at = time.Now().Add(-time.Second)
	s.mu.Unlock()

	_, err := s.Price(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale")
}

func TestStream_FreshTickServed(t *testing.T) {
	t.Parallel()

	s := NewStream("ws://unused", time.Minute)
	s.mu.Lock()
	s.last = 3000
	s.at = time.Now()
	s.mu.Unlock()

	price, err := s.Price(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3000.0, price, 1e-12)
}

func TestStream_ReadsTicksFromServer(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 50; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"c":"3123.45"}`)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(wsURL, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		price, err := s.Price(ctx)
		if err == nil {
			assert.InDelta(t, 3123.45, price, 1e-9)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no tick received before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

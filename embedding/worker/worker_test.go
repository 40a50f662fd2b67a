package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memexhq/memex/embedding"
	"github.com/memexhq/memex/embedding/mock"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialTest(t *testing.T, ts *httptest.Server, cfg ClientConfig) *Client {
	t.Helper()
	cfg.URL = wsURL(ts)
	cfg.Logger = zerolog.Nop()
	client, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientServer_EmbedRoundTrip(t *testing.T) {
	embedder := mock.New()
	ts := httptest.NewServer(NewServer(embedder, zerolog.Nop()))
	defer ts.Close()

	client := dialTest(t, ts, ClientConfig{})
	assert.Equal(t, embedding.Dimension, client.Dimensions())

	got, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	want, err := embedder.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, want, got, "worker round trip must preserve the embedding")
}

func TestClientServer_ConcurrentRequestsCorrelate(t *testing.T) {
	embedder := mock.New()
	ts := httptest.NewServer(NewServer(embedder, zerolog.Nop()))
	defer ts.Close()

	client := dialTest(t, ts, ClientConfig{})

	texts := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			got, err := client.Embed(context.Background(), text)
			if !assert.NoError(t, err) {
				return
			}
			want, _ := embedder.Embed(context.Background(), text)
			assert.Equal(t, want, got, "response for %q answered to the wrong request", text)
		}(text)
	}
	wg.Wait()
}

func TestClient_EmbedderErrorSurfaces(t *testing.T) {
	embedder := mock.NewFailing(assert.AnError)
	ts := httptest.NewServer(NewServer(embedder, zerolog.Nop()))
	defer ts.Close()

	client := dialTest(t, ts, ClientConfig{})

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, embedding.ErrUnavailable)
}

func TestClient_RequestTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(message{Type: typeReady, Dims: 8})
		// Swallow requests without ever answering.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	client := dialTest(t, ts, ClientConfig{RequestTimeout: 50 * time.Millisecond})

	_, err := client.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, embedding.ErrTimeout)
}

func TestClient_ReadyHandshakeTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never send ready.
		time.Sleep(time.Second)
	}))
	defer ts.Close()

	_, err := Dial(context.Background(), ClientConfig{
		URL:         wsURL(ts),
		DialTimeout: 100 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	require.Error(t, err)
}

func TestClient_ProgressPushes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(message{Type: typeReady, Dims: 8})
		for {
			var req message
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			conn.WriteJSON(message{Type: typeProgress, Progress: 50})
			conn.WriteJSON(message{ID: req.ID, Success: true, Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}})
		}
	}))
	defer ts.Close()

	var mu sync.Mutex
	var progress []float64
	client := dialTest(t, ts, ClientConfig{
		Progress: func(pct float64) {
			mu.Lock()
			progress = append(progress, pct)
			mu.Unlock()
		},
	})

	_, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, progress, 1)
	assert.Equal(t, 50.0, progress[0])
}

func TestClient_ConnectionLossRejectsPending(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(message{Type: typeReady, Dims: 8})
		// Drop the connection as soon as a request arrives.
		conn.ReadMessage()
		conn.Close()
	}))
	defer ts.Close()

	client := dialTest(t, ts, ClientConfig{})

	_, err := client.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, embedding.ErrUnavailable)

	// The client is now unusable, not wedged.
	_, err = client.Embed(context.Background(), "again")
	assert.ErrorIs(t, err, embedding.ErrUnavailable)
}

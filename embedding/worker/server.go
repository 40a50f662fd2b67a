package worker

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/memexhq/memex/embedding"
)

// Server hosts an embedder behind the worker protocol. It is the process
// boundary half of the channel: the memex side dials it with a Client and
// never loads the model in-process.
type Server struct {
	embedder embedding.Embedder
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer wraps an embedder for serving.
func NewServer(embedder embedding.Embedder, logger zerolog.Logger) *Server {
	return &Server{
		embedder: embedder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 16,
		},
		logger: logger.With().Str("component", "embedding-server").Logger(),
	}
}

// ServeHTTP upgrades the connection, announces readiness and answers embed
// requests until the client disconnects. Requests are processed
// concurrently; responses carry the request id so ordering is free.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(msg message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := write(message{Type: typeReady, Dims: s.embedder.Dimensions()}); err != nil {
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var req message
		if err := conn.ReadJSON(&req); err != nil {
			s.logger.Debug().Err(err).Msg("client disconnected")
			return
		}
		if req.Type != typeEmbed || req.ID == "" {
			continue
		}

		wg.Add(1)
		go func(req message) {
			defer wg.Done()
			vec, err := s.embedder.Embed(context.Background(), req.Text)
			if err != nil {
				s.logger.Warn().Err(err).Str("request_id", req.ID).Msg("embed failed")
				write(message{ID: req.ID, Success: false, Error: err.Error()})
				return
			}
			write(message{ID: req.ID, Success: true, Embedding: vec})
		}(req)
	}
}

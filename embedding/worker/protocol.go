// Package worker runs an embedder in an isolated process and reaches it
// over a websocket message channel. Requests and responses are correlated
// by unique id; every request carries a deadline so a hung worker can never
// wedge the caller.
//
// The wire protocol is a single JSON message shape used in both directions:
//
//	client -> worker: {"id": "...", "type": "embed", "text": "..."}
//	worker -> client: {"id": "...", "success": true, "embedding": [...]}
//	worker -> client: {"type": "ready", "dims": 384}        (handshake)
//	worker -> client: {"type": "progress", "progress": 42}  (side channel)
package worker

// Message types pushed by the worker without a correlating request id.
const (
	typeReady    = "ready"
	typeProgress = "progress"
	typeEmbed    = "embed"
)

// message is the single wire frame for both directions.
type message struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`

	// Request fields.
	Text string `json:"text,omitempty"`

	// Response fields.
	Success   bool      `json:"success,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Error     string    `json:"error,omitempty"`

	// Push fields.
	Dims     int     `json:"dims,omitempty"`
	Progress float64 `json:"progress,omitempty"`
}

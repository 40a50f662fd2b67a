//go:build onnx

// memex-embedder hosts the local ONNX embedding model behind the worker
// protocol so the memex process never loads ONNX Runtime itself. Run it as
// a sidecar and point memex at it:
//
//	memex-embedder -model model.onnx -tokenizer tokenizer.json -addr :8765
//	memex --worker ws://127.0.0.1:8765/embed recall "..."
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/memexhq/memex/embedding/onnx"
	"github.com/memexhq/memex/embedding/worker"
)

func main() {
	addr := flag.String("addr", ":8765", "Listen address")
	modelPath := flag.String("model", "", "Path to the ONNX model file")
	tokenizerPath := flag.String("tokenizer", "", "Path to tokenizer.json")
	libPath := flag.String("lib", "", "ONNX Runtime shared library path (default: $ONNXRUNTIME_LIB)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	embedder, err := onnx.New(onnx.Config{
		ModelPath:     *modelPath,
		TokenizerPath: *tokenizerPath,
		LibraryPath:   *libPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load ONNX embedder")
	}
	defer embedder.Close()

	mux := http.NewServeMux()
	mux.Handle("/embed", worker.NewServer(embedder, logger))

	logger.Info().Str("addr", *addr).Msg("embedding worker listening")
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
}

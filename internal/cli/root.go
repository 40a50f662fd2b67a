// Package cli implements the memex CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/memexhq/memex"
	"github.com/memexhq/memex/embedding"
	"github.com/memexhq/memex/embedding/worker"
)

var (
	dbPath    string
	workerURL string
	verbose   bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memex",
	Short: "Local-first memory for pages you've read",
	Long: "memex remembers pages, videos and documents and recalls the most relevant\n" +
		"ones for natural-language queries via hybrid vector + keyword search.\n" +
		"Semantic search needs an embedding worker (--worker); without one, recall\n" +
		"degrades to keyword search and remember is unavailable.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMEX_DB or ~/.memex/memex.db)")
	RootCmd.PersistentFlags().StringVarP(&workerURL, "worker", "w", "", "Embedding worker websocket URL (default: $MEMEX_WORKER)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("MEMEX_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memex", "memex.db")
}

func getWorkerURL() string {
	if workerURL != "" {
		return workerURL
	}
	return os.Getenv("MEMEX_WORKER")
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// openManager assembles the default stack. The embedder factory dials the
// worker lazily so keyword-only commands never touch the network.
func openManager() (*memex.Manager, error) {
	logger := newLogger()
	url := getWorkerURL()

	factory := func(ctx context.Context) (embedding.Embedder, error) {
		if url == "" {
			return nil, fmt.Errorf("no embedding worker configured (set --worker or $MEMEX_WORKER)")
		}
		return worker.Dial(ctx, worker.ClientConfig{URL: url, Logger: logger})
	}

	path := getDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return memex.Open(path, factory, nil, logger)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

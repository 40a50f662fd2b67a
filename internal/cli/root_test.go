package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDBPath_Precedence(t *testing.T) {
	t.Setenv("MEMEX_DB", "")
	dbPath = ""
	t.Cleanup(func() { dbPath = "" })

	home, _ := filepath.Abs(getDBPath())
	assert.Equal(t, "memex.db", filepath.Base(home))
	assert.Equal(t, ".memex", filepath.Base(filepath.Dir(home)))

	t.Setenv("MEMEX_DB", "/tmp/env.db")
	assert.Equal(t, "/tmp/env.db", getDBPath(), "env beats the default")

	dbPath = "/tmp/flag.db"
	assert.Equal(t, "/tmp/flag.db", getDBPath(), "flag beats env")
}

func TestGetWorkerURL_Precedence(t *testing.T) {
	t.Setenv("MEMEX_WORKER", "")
	workerURL = ""
	t.Cleanup(func() { workerURL = "" })

	assert.Empty(t, getWorkerURL())

	t.Setenv("MEMEX_WORKER", "ws://127.0.0.1:8765/embed")
	assert.Equal(t, "ws://127.0.0.1:8765/embed", getWorkerURL())

	workerURL = "ws://other:9000/embed"
	assert.Equal(t, "ws://other:9000/embed", getWorkerURL(), "flag beats env")
}

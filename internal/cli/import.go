package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/memexhq/memex/backup"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from a backup snapshot",
		Long:  "Import memories from snapshot JSON (stdin or file). Mode 'merge' skips URLs already stored; 'replace' clears the store first.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().StringP("mode", "m", "merge", "Conflict policy: merge or replace")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	mode, _ := cmd.Flags().GetString("mode")

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read snapshot", err)
	}

	snapshot, err := backup.Decode(data)
	if err != nil {
		exitErr("parse snapshot", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	result := m.ImportMemories(cmd.Context(), snapshot, backup.Mode(mode))

	b, _ := json.Marshal(result)
	fmt.Println(string(b))
	if !result.Success {
		os.Exit(1)
	}
}

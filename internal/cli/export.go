package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/memexhq/memex/backup"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all memories as a backup snapshot",
		Long:  "Export all memories, embeddings included, as snapshot JSON. Writes to stdout unless -o is given; -o with a directory uses the conventional dated filename.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file or directory")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	snapshot := m.ExportMemories()
	b, err := backup.Encode(snapshot)
	if err != nil {
		exitErr("encode snapshot", err)
	}

	if out == "" {
		fmt.Println(string(b))
		return
	}

	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, backup.Filename(time.Now()))
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		exitErr("write backup", err)
	}
	fmt.Printf(`{"exported":%d,"file":%q}`+"\n", snapshot.MemoryCount, out)
}

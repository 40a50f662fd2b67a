package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all memories, newest first",
		Run:   runList,
	}

	cmd.Flags().Bool("embeddings", false, "Include embedding vectors")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	withEmbeddings, _ := cmd.Flags().GetBool("embeddings")

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	var out interface{}
	if withEmbeddings {
		out = m.MemoriesWithEmbeddings()
	} else {
		out = m.ListMemories()
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

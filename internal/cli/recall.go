package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Recall relevant memories for a query",
		Long:  "Recall the most relevant memories. Uses hybrid vector + keyword search when the embedding worker is reachable, keyword search otherwise.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().IntP("limit", "l", 5, "Maximum results")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	// Best effort; recall degrades to keyword search on failure.
	_ = m.InitEmbedder(cmd.Context())

	results := m.RecallMemories(cmd.Context(), query, limit)

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	fmt.Printf(`{"memories":%d,"db":%q}`+"\n", m.Count(), getDBPath())
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/memexhq/memex"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Remember a page (content from stdin)",
		Long:  "Remember a page. Content is read from stdin; duplicate URLs are rejected.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("url", "u", "", "Page URL (required)")
	cmd.Flags().StringP("title", "t", "", "Page title")
	cmd.Flags().StringP("summary", "s", "", "Short summary")
	cmd.Flags().StringSlice("tags", nil, "Tags (comma-separated)")
	cmd.MarkFlagRequired("url")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	url, _ := cmd.Flags().GetString("url")
	title, _ := cmd.Flags().GetString("title")
	summary, _ := cmd.Flags().GetString("summary")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	// Init failure surfaces through the remember result.
	_ = m.InitEmbedder(cmd.Context())

	result := m.RememberPage(cmd.Context(), memex.Page{
		URL:     url,
		Title:   title,
		Content: string(content),
		Summary: summary,
		Tags:    tags,
	})

	b, _ := json.Marshal(result)
	fmt.Println(string(b))
	if !result.Success {
		os.Exit(1)
	}
}

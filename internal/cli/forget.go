package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	forgetCmd := &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete one memory by id",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}
	RootCmd.AddCommand(forgetCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all memories",
		Run:   runClear,
	}
	clearCmd.Flags().Bool("yes", false, "Skip confirmation")
	RootCmd.AddCommand(clearCmd)
}

func runForget(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	deleted := m.ForgetMemory(cmd.Context(), args[0])
	fmt.Printf(`{"deleted":%t}`+"\n", deleted)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to delete all memories without --yes"))
	}

	m, err := openManager()
	if err != nil {
		exitErr("open memex", err)
	}
	defer m.Close()

	count := m.Count()
	if err := m.ForgetAll(cmd.Context()); err != nil {
		exitErr("clear", err)
	}
	fmt.Printf(`{"cleared":%d}`+"\n", count)
}

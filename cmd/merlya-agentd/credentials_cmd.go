package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merlya/merlya-core/pkg/credentials"
)

// processCredStore is the process-lifetime credential store backing the
// CLI's credentials subcommands. A real daemon process shares this same
// store with the skill executor and SSH resolver; the CLI here only
// exercises SetSecret/Set/All directly since there is no running daemon to
// talk to over IPC.
var processCredStore = credentials.NewStore()

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "manage in-process credential variables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-secret KEY VALUE",
		Short: "store a secret variable, withheld from LLM-bound text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processCredStore.SetSecret(args[0], args[1])
			fmt.Printf("secret %q stored\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "store a non-secret config/host variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processCredStore.Set(args[0], args[1], credentials.TypeConfig)
			fmt.Printf("variable %q stored\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list every stored variable, with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, v := range processCredStore.All() {
				value := v.Value
				if v.Type == credentials.TypeSecret {
					value = "********"
				}
				fmt.Printf("%-32s %-8s %s\n", key, v.Type, value)
			}
			return nil
		},
	})

	return cmd
}

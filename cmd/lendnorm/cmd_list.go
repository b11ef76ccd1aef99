package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yieldindex/lendnorm/internal/adaptors"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured protocols",
	Long: `Prints every protocol in the protocol table for the configured chain with its
adaptor, chain and url. No RPC connection is made.`,
	Args: cobra.NoArgs,
	RunE: listProtocols,
}

func listProtocols(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	protocols, err := loadProtocols(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tADAPTOR\tCHAIN\tURL")
	for _, protocol := range protocols {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", protocol.Project, protocol.Adaptor, protocol.Chain, protocol.URL)
	}
	fmt.Fprintf(w, "\nadaptors: %v\n", adaptors.Names())
	return w.Flush()
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/schema"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mrec version and the bundled schema id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := schema.Default()
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": Version, "schema": v.ID()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mrec", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "schema", v.ID())
			return nil
		},
	}
}

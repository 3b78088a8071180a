package main

import (
	"github.com/spf13/cobra"
)

// newDeleteCmd creates the delete command.
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stored template",
		Long: `Remove a stored template. Other versions of the same template are kept.
The document package is removed once no template uses it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newPrinter(cmd)

			engine, closeEngine, err := openEngine(cmd)
			if err != nil {
				printer.Error(err)
				return err
			}
			defer closeEngine()

			if err := engine.Delete(cmd.Context(), args[0]); err != nil {
				printer.Error(err)
				return err
			}
			return printer.Success(map[string]any{
				"message": "Deleted " + args[0],
				"id":      args[0],
			})
		},
	}
}

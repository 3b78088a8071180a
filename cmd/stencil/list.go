package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// newListCmd creates the list command.
func newListCmd() *cobra.Command {
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		Long: `List stored templates ordered by name and version.

Examples:
  stencil list
  stencil list --state finalized --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, stateFlag)
		},
	}

	cmd.Flags().StringVar(&stateFlag, "state", "", "Only list templates in this state (draft, finalized)")

	return cmd
}

func runList(cmd *cobra.Command, stateFilter string) error {
	printer := newPrinter(cmd)

	if stateFilter != "" {
		var state stencil.State
		if err := state.UnmarshalText([]byte(stateFilter)); err != nil {
			err = output.NewUserError(err.Error())
			printer.Error(err)
			return err
		}
	}

	engine, closeEngine, err := openEngine(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer closeEngine()

	recs, err := engine.List(cmd.Context())
	if err != nil {
		printer.Error(err)
		return err
	}
	filtered := make([]stencil.Record, 0, len(recs))
	for _, rec := range recs {
		if stateFilter == "" || rec.State.String() == stateFilter {
			filtered = append(filtered, rec)
		}
	}

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{
			"count":     len(filtered),
			"templates": filtered,
		})
	}
	if len(filtered) == 0 {
		printer.Println("No templates stored.")
		return nil
	}
	rows := make([][]string, 0, len(filtered))
	for _, rec := range filtered {
		rows = append(rows, []string{
			rec.ID,
			rec.Name,
			rec.Category,
			strconv.Itoa(rec.Version),
			rec.State.String(),
			strconv.Itoa(len(rec.Variables)),
		})
	}
	printer.Table([]string{"ID", "NAME", "CATEGORY", "VERSION", "STATE", "VARIABLES"}, rows)
	return nil
}

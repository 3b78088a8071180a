package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// newShowCmd creates the show command.
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a template and its variables",
		Long: `Display a stored template: its state, version and every variable with the
document text it covers.

Examples:
  stencil show 6f1c...
  stencil show 6f1c... --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, id string) error {
	printer := newPrinter(cmd)

	engine, closeEngine, err := openEngine(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer closeEngine()

	tmpl, err := engine.Open(cmd.Context(), id)
	if err != nil {
		printer.Error(err)
		return err
	}
	rec, err := tmpl.Record()
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.WriteJSON(rec)
	}
	outputShowHuman(printer, tmpl)
	return nil
}

func outputShowHuman(printer *output.Printer, tmpl *stencil.Template) {
	printer.KeyValue("ID", tmpl.ID)
	printer.KeyValue("Name", tmpl.Name)
	if tmpl.Category != "" {
		printer.KeyValue("Category", tmpl.Category)
	}
	printer.KeyValue("Version", strconv.Itoa(tmpl.Version))
	if tmpl.ParentID != "" {
		printer.KeyValue("Parent", tmpl.ParentID)
	}
	printer.KeyValue("State", tmpl.State().String())

	printer.Section("Variables")
	vars := tmpl.Variables()
	if len(vars) == 0 {
		printer.Println("none")
		return
	}
	text := []rune(tmpl.Document().Text())
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		covered := ""
		if v.Range.End <= len(text) {
			covered = string(text[v.Range.Start:v.Range.End])
		}
		rows = append(rows, []string{
			v.Name,
			string(v.Type),
			strconv.FormatBool(v.Required),
			formatDefault(v.Default),
			v.Range.String(),
			covered,
		})
	}
	printer.Table([]string{"NAME", "TYPE", "REQUIRED", "DEFAULT", "RANGE", "TEXT"}, rows)
}

func formatDefault(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return fmt.Sprint(v)
	}
}

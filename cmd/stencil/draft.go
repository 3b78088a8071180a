package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

type draftFlags struct {
	defs     string
	name     string
	category string
	from     string
	finalize bool
}

// newDraftCmd creates the draft command.
func newDraftCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "draft [<file.docx>]",
		Short: "Create a template and mark its variables",
		Long: `Create a draft template from a .docx and mark the variables listed in a
definitions file. With --from, start a new version of a finalized template
instead; its variables are carried over and the definitions add to them.

The definitions file is YAML:

  name: Surat Keterangan Hadir
  category: kepegawaian
  finalize: true
  variables:
    - name: nama_pegawai
      type: text
      required: true
      text: NAMA PEGAWAI        # or range: {start: 34, end: 46}
    - name: tanggal
      type: date
      required: true
      text: TANGGAL
      constraints: {format: DD MMMM YYYY}

Examples:
  stencil draft surat.docx --defs surat.yaml
  stencil draft surat.docx --defs surat.yaml --finalize
  stencil draft --from 6f1c... --defs extra.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraft(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.defs, "defs", "d", "", "YAML file listing the variables to mark")
	cmd.Flags().StringVar(&flags.name, "name", "", "Template name (default: from the definitions, then the file name)")
	cmd.Flags().StringVar(&flags.category, "category", "", "Template category")
	cmd.Flags().StringVar(&flags.from, "from", "", "Start a new version of this finalized template")
	cmd.Flags().BoolVar(&flags.finalize, "finalize", false, "Finalize the template after marking")

	return cmd
}

func runDraft(cmd *cobra.Command, args []string, flags draftFlags) error {
	printer := newPrinter(cmd)

	if (len(args) == 0) == (flags.from == "") {
		err := output.NewUserError("specify either a .docx file or --from")
		printer.Error(err)
		return err
	}

	defs := &stencil.DefinitionFile{}
	if flags.defs != "" {
		f, err := os.Open(flags.defs)
		if err != nil {
			err = output.NewUserError(err.Error())
			printer.Error(err)
			return err
		}
		defs, err = stencil.LoadDefinitions(f)
		_ = f.Close()
		if err != nil {
			printer.Error(err)
			return err
		}
	}
	if flags.finalize {
		defs.Finalize = true
	}

	engine, closeEngine, err := openEngine(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer closeEngine()

	tmpl, err := startDraft(cmd, engine, args, flags, defs)
	if err != nil {
		printer.Error(err)
		return err
	}
	if err := stencil.ApplyDefinitions(tmpl, defs); err != nil {
		printer.Error(err)
		return err
	}
	if err := engine.Save(cmd.Context(), tmpl); err != nil {
		printer.Error(err)
		return err
	}

	return printer.Success(map[string]any{
		"message":   "Saved " + tmpl.String(),
		"id":        tmpl.ID,
		"name":      tmpl.Name,
		"version":   tmpl.Version,
		"state":     tmpl.State().String(),
		"variables": len(tmpl.Variables()),
	})
}

// startDraft opens the package named in args, or derives a new version
// from --from.
func startDraft(cmd *cobra.Command, engine *stencil.Engine, args []string, flags draftFlags, defs *stencil.DefinitionFile) (*stencil.Template, error) {
	if flags.from != "" {
		parent, err := engine.Open(cmd.Context(), flags.from)
		if err != nil {
			return nil, err
		}
		return parent.NewVersion()
	}

	name := firstNonEmpty(flags.name, defs.Name, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))
	category := firstNonEmpty(flags.category, defs.Category)

	f, err := os.Open(args[0])
	if err != nil {
		return nil, output.NewUserError(err.Error())
	}
	defer func() { _ = f.Close() }()
	return engine.Draft(cmd.Context(), f, name, category)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newFinalizeCmd creates the finalize command.
func newFinalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <id>",
		Short: "Freeze a draft template so it can generate documents",
		Long: `Finalize a draft. The template must have at least one variable and every
variable must still match the document. A finalized template cannot change;
use 'stencil draft --from <id>' to start a new version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalize(cmd, args[0])
		},
	}
}

func runFinalize(cmd *cobra.Command, id string) error {
	printer := newPrinter(cmd)

	engine, closeEngine, err := openEngine(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer closeEngine()

	tmpl, err := engine.Open(cmd.Context(), id)
	if err == nil {
		err = tmpl.Finalize()
	}
	if err == nil {
		err = engine.Save(cmd.Context(), tmpl)
	}
	if err != nil {
		printer.Error(err)
		return err
	}
	return printer.Success(map[string]any{
		"message": "Finalized " + tmpl.String(),
		"id":      tmpl.ID,
		"state":   tmpl.State().String(),
	})
}

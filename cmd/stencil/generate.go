package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

type generateFlags struct {
	set      []string
	bindings string
	locale   string
	output   string
}

// newGenerateCmd creates the generate command.
func newGenerateCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <id>",
		Short: "Generate a document from a finalized template",
		Long: `Generate a .docx from a finalized template. Values come from a YAML bindings
file, from --set flags, or both; --set wins.

Without --output the document is written to <output_dir>/<id>.docx.
Use --output - to write it to stdout.

Examples:
  stencil generate 6f1c... --set nama_pegawai="Budi Santoso" --set tanggal=2024-03-01
  stencil generate 6f1c... --bindings budi.yaml -o surat-budi.docx
  stencil generate 6f1c... --bindings budi.yaml --locale en -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.set, "set", nil, "Bind a variable (name=value, repeatable)")
	cmd.Flags().StringVarP(&flags.bindings, "bindings", "b", "", "YAML file mapping variable names to values")
	cmd.Flags().StringVar(&flags.locale, "locale", "", "Locale for dates and numbers (default: from config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file, or - for stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, id string, flags generateFlags) error {
	printer := newPrinter(cmd)

	bindings, err := readBindings(flags.bindings, flags.set)
	if err != nil {
		printer.Error(err)
		return err
	}

	engine, closeEngine, err := openEngine(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer closeEngine()

	result, err := engine.Generate(cmd.Context(), stencil.GenerationRequest{
		TemplateID: id,
		Bindings:   bindings,
		Locale:     flags.locale,
	})
	if err != nil {
		printer.Error(err)
		return err
	}

	if flags.output == "-" {
		if _, err := cmd.OutOrStdout().Write(result.Output); err != nil {
			return output.NewSystemErrorWithCause("writing document", err)
		}
		// stdout carries the document, so warnings always go to stderr.
		for _, w := range result.Warnings {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
		}
		return nil
	}

	path := flags.output
	if path == "" {
		path = filepath.Join(engine.Config().OutputDir, id+".docx")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(result.Output)); err != nil {
		err = output.NewSystemErrorWithCause("writing "+path, err)
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{
			"output":   path,
			"size":     len(result.Output),
			"warnings": result.Warnings,
		})
	}
	for _, w := range result.Warnings {
		printer.Warn("%s", w)
	}
	return printer.Success(map[string]any{"message": "Generated " + path})
}

// readBindings merges the bindings file with --set values. A file holding
// nothing yields no bindings.
func readBindings(path string, set []string) (map[string]any, error) {
	bindings := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, output.NewUserError(err.Error())
		}
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&bindings); err != nil && !errors.Is(err, io.EOF) {
			return nil, output.NewUserError(fmt.Sprintf("parsing %s: %v", path, err))
		}
	}
	for _, kv := range set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, output.NewUserError(fmt.Sprintf("--set %q: want name=value", kv))
		}
		bindings[name] = value
	}
	return bindings, nil
}

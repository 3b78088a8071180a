package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "init [<path>]",
		Short: "Write a config file with the default settings",
		Long: `Write a YAML config file holding the default settings, ready to edit.
The path defaults to stencil.yaml. Existing files are kept unless --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newPrinter(cmd)
			path := "stencil.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !forceFlag {
				err := output.NewUserError(fmt.Sprintf("%s already exists (use --force to overwrite)", path))
				printer.Error(err)
				return err
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				err = output.NewSystemErrorWithCause("checking "+path, err)
				printer.Error(err)
				return err
			}

			if err := stencil.WriteConfigFile(path, stencil.DefaultConfig()); err != nil {
				err = output.NewSystemErrorWithCause("writing "+path, err)
				printer.Error(err)
				return err
			}
			return printer.Success(map[string]any{
				"message": "Wrote " + path,
				"path":    path,
			})
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := newPrinter(cmd)
			cfg, err := loadConfig(cmd)
			if err != nil {
				printer.Error(err)
				return err
			}
			if printer.IsJSON() {
				return printer.WriteJSON(cfg)
			}
			printer.KeyValue("database_path", cfg.DatabasePath)
			printer.KeyValue("output_dir", cfg.OutputDir)
			printer.KeyValue("default_locale", cfg.DefaultLocale)
			printer.KeyValue("strict_bindings", fmt.Sprint(cfg.StrictBindings))
			printer.KeyValue("max_package_size", fmt.Sprint(cfg.MaxPackageSize))
			printer.KeyValue("cache_max_size", fmt.Sprint(cfg.CacheMaxSize))
			printer.KeyValue("cache_ttl", cfg.CacheTTL.String())
			printer.KeyValue("log_level", cfg.LogLevel)
			return nil
		},
	}
}

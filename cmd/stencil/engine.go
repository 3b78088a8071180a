package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-letterstencil/internal/output"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/store"
)

// loadConfig reads --config when given and the STENCIL_* environment
// otherwise, then applies --db.
func loadConfig(cmd *cobra.Command) (*stencil.Config, error) {
	var (
		cfg *stencil.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = stencil.LoadConfigFile(path)
		if err != nil {
			return nil, output.NewUserError(err.Error())
		}
	} else {
		cfg = stencil.ConfigFromEnvironment()
		if err := cfg.Validate(); err != nil {
			return nil, output.NewUserError(fmt.Sprintf("invalid environment configuration: %v", err))
		}
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}
	return cfg, nil
}

// openEngine builds an engine on the configured SQLite database. The
// returned function closes the store and the database.
func openEngine(cmd *cobra.Command) (*stencil.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	stencil.SetGlobalConfig(cfg)
	logger := stencil.Logger()

	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, output.NewSystemErrorWithCause("opening database "+cfg.DatabasePath, err)
	}
	if err := store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, output.NewSystemErrorWithCause("preparing database "+cfg.DatabasePath, err)
	}
	st, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, output.NewSystemErrorWithCause("preparing database "+cfg.DatabasePath, err)
	}
	st.SetLogger(logger)

	engine := stencil.New(st, stencil.WithConfig(cfg), stencil.WithLogger(logger))
	closeFn := func() {
		_ = engine.Close()
		_ = db.Close()
	}
	return engine, closeFn, nil
}

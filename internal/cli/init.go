package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/catalog"
	"github.com/mesh-intelligence/mrec/internal/paths"
)

func newInitCmd() *cobra.Command {
	var userData bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize mrec configuration and catalog",
		Long: `Create the configuration directory with a default config.yaml and the
data directory with an empty catalog database. With --user-data the
per-user data directory is recorded in a newly written config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, userData)
		},
	}
	cmd.Flags().BoolVar(&userData, "user-data", false, "use the per-user data directory instead of $(CWD)/.mrec-db")
	return cmd
}

func runInit(cmd *cobra.Command, userData bool) error {
	dataDir := flags.dataDir
	if userData && dataDir == "" {
		dir, err := paths.DefaultDataDir()
		if err != nil {
			return fmt.Errorf("resolve user data dir: %w", err)
		}
		dataDir = dir
	}
	if dataDir != "" {
		abs, err := filepath.Abs(dataDir)
		if err != nil {
			return err
		}
		dataDir = abs
	}

	// setup already wrote a default config.yaml when none existed; an
	// explicit data directory is recorded only in a fresh file.
	configPath := paths.ConfigFile(settings.configDir)
	if dataDir != "" && settings.cfg.DataDir == "" {
		cfg := defaultConfigFile(dataDir)
		cfg.LogLevel = settings.cfg.LogLevel
		cfg.LazyLoading = settings.cfg.LazyLoading
		cfg.ExternalDir = settings.cfg.ExternalDir
		if len(settings.cfg.IndexFields) > 0 {
			cfg.Index.Fields = settings.cfg.IndexFields
		}
		if err := rewriteConfig(configPath, cfg); err != nil {
			return err
		}
	}

	if dataDir == "" {
		dir, err := resolveDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = dir
	}
	c, err := catalog.Open(filepath.Join(dataDir, catalog.DBFile), settings.cfg.IndexFields)
	if err != nil {
		return fmt.Errorf("initialize catalog: %w", err)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, map[string]string{"config": configPath, "data": dataDir, "catalog": c.Path()})
	}
	fmt.Fprintln(out, "mrec initialized")
	fmt.Fprintln(out, "  config: ", configPath)
	fmt.Fprintln(out, "  data:   ", dataDir)
	fmt.Fprintln(out, "  catalog:", c.Path())
	return nil
}

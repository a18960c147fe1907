// Package cli implements the mrec command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/paths"
	"github.com/mesh-intelligence/mrec/internal/schema"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
	lazy      bool
}

var flags rootFlags

// settings is the effective configuration after PersistentPreRunE.
var settings struct {
	configDir string
	cfg       types.Config
	runID     string
}

// NewRootCmd creates the top-level "mrec" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mrec",
		Short: "Read, write and verify measurement records",
		Long: `mrec works with measurement records: JSON documents with a metadata
header, sampling grids and data channels whose samples are stored inline
or in checksummed external files.`,
		Version: Version,
		// Errors are printed once by Execute.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $MREC_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory holding the catalog (default: $(CWD)/.mrec-db)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.lazy, "lazy", false, "defer reading external data files until needed (default from config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newExampleCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newChannelsCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newHeaderCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newFindCmd())
	root.AddCommand(newRecordsCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mrec:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps record and input errors to exitUserError and everything
// else (I/O, catalog) to exitSysError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrStructural),
		errors.Is(err, types.ErrIntegrity),
		errors.Is(err, types.ErrUnsupportedEncoding),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrIndexFieldInvalid),
		errors.Is(err, types.ErrLogLevelUnknown),
		errors.Is(err, types.ErrExternalDirInvalid),
		strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "accepts "),
		strings.HasPrefix(err.Error(), "requires "):
		return exitUserError
	default:
		return exitSysError
	}
}

// setup loads config.yaml, installs the logger and compiles the bundled
// schema so that a broken schema fails every command up front.
func setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("lazy") {
		cfg.LazyLoading = flags.lazy
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}

	runID := generateRunID()
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, runID)

	if _, err := schema.Default(); err != nil {
		return err
	}

	settings.configDir = configDir
	settings.cfg = cfg
	settings.runID = runID
	slog.Debug("mrec: start", "command", cmd.Name(), "config_dir", configDir)
	return nil
}

func setupLogging(w io.Writer, level, runID string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h).With("run_id", runID))
}

// generateRunID tags all log lines of one invocation.
func generateRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// resolveDataDir returns the data directory from flag, config or env.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flags.dataDir, settings.cfg.DataDir)
}

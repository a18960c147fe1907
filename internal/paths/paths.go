// Package paths resolves the configuration and data directories of the mrec
// tool and the files inside them.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "mrec"

// CWD-relative default for the data directory, and the file names used
// inside the directories.
const (
	DefaultDataDirName = ".mrec-db"
	ConfigFileName     = "config.yaml"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "MREC_CONFIG_DIR"
	EnvDataDir   = "MREC_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns the per-user directory for AppName. On Linux xdgEnv is
// honored first, then ~/<linuxHome...>; other platforms use
// os.UserConfigDir (~/Library/Application Support, %APPDATA%).
func userDir(xdgEnv string, linuxHome ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxHome...), AppName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/mrec (fallback ~/.config/mrec)
// macOS:   ~/Library/Application Support/mrec
// Windows: %APPDATA%/mrec
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific per-user data directory.
// ResolveDataDir does not fall back to it; it is offered by mrec init.
//
// Linux:   $XDG_DATA_HOME/mrec (fallback ~/.local/share/mrec)
// macOS:   ~/Library/Application Support/mrec
// Windows: %APPDATA%/mrec
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir returns the configuration directory:
// flag > MREC_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory holding the catalog:
// flag > data_dir from config.yaml > MREC_DATA_DIR > $(CWD)/.mrec-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of the configuration file in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

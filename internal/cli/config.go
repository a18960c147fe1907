package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mrec/internal/paths"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyDataDir     = "data_dir"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLazyLoading = "lazy_loading"
	cfgKeyExternalDir = "external_dir"
	cfgKeyIndexFields = "index.fields"
)

// configFile is the layout of config.yaml.
type configFile struct {
	DataDir     string      `yaml:"data_dir,omitempty"`
	LogLevel    string      `yaml:"log_level"`
	LazyLoading bool        `yaml:"lazy_loading"`
	ExternalDir string      `yaml:"external_dir"`
	Index       indexConfig `yaml:"index"`
}

type indexConfig struct {
	Fields map[string]string `yaml:"fields"`
}

// defaultIndexFields are the header fields a new catalog records.
var defaultIndexFields = map[string]string{
	"project": "$.projectName",
	"machine": "$.machine.name",
	"process": "$.process.processType",
	"created": "$.creationDate",
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir:     dataDir,
		LogLevel:    types.DefaultLogLevel,
		ExternalDir: types.DefaultExternalDir,
		Index:       indexConfig{Fields: defaultIndexFields},
	}
}

// loadConfig reads config.yaml from configDir with Viper, creating the
// directory and a default file on first run.
func loadConfig(configDir string) (types.Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("%w: create config dir: %w", types.ErrIO, err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), defaultConfigFile("")); err != nil {
		return types.Config{}, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyLazyLoading, false)
	v.SetDefault(cfgKeyExternalDir, types.DefaultExternalDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return types.Config{
		DataDir:     v.GetString(cfgKeyDataDir),
		LogLevel:    strings.ToLower(v.GetString(cfgKeyLogLevel)),
		LazyLoading: v.GetBool(cfgKeyLazyLoading),
		ExternalDir: v.GetString(cfgKeyExternalDir),
		IndexFields: v.GetStringMapString(cfgKeyIndexFields),
	}, nil
}

// rewriteConfig replaces config.yaml with cfg.
func rewriteConfig(path string, cfg configFile) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: replace config: %w", types.ErrIO, err)
	}
	return writeConfigIfMissing(path, cfg)
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. An existing file is left alone.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat config file: %w", types.ErrIO, err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# mrec configuration\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("%w: write config: %w", types.ErrIO, err)
	}
	return nil
}

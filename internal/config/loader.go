package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// EnvPrefix is prepended to every environment override, e.g. SHELFSAFE_RETENTION_KEEP_LAST.
const EnvPrefix = "SHELFSAFE"

// DefaultKeepLast is the number of date folders kept when retention is not configured.
const DefaultKeepLast = 6

// Config represents the top-level YAML configuration file.
type Config struct {
	Include   []string        `mapstructure:"include"   yaml:"include,omitempty"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level,omitempty"`
	Backup    BackupConfig    `mapstructure:"backup"    yaml:"backup"`
	Databases DatabasesConfig `mapstructure:"databases" yaml:"databases"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
}

// BackupConfig contains global backup options.
type BackupConfig struct {
	OutputDirectory       string `mapstructure:"output_directory"        yaml:"output_directory"`
	IncludeCompanionFiles bool   `mapstructure:"include_companion_files" yaml:"include_companion_files"`
	// SafetyDirectory overrides where pre-restore safety backups go.
	// Empty means "safety-backups" next to the restore target.
	SafetyDirectory string `mapstructure:"safety_directory" yaml:"safety_directory,omitempty"`
}

// DatabasesConfig holds the mandatory primary database and the optional secondary one.
type DatabasesConfig struct {
	Primary   DatabaseConfig `mapstructure:"primary"   yaml:"primary"`
	Secondary DatabaseConfig `mapstructure:"secondary" yaml:"secondary"`
}

// DatabaseConfig describes one SQLite database file.
type DatabaseConfig struct {
	Name    string `mapstructure:"name"    yaml:"name,omitempty"`
	Path    string `mapstructure:"path"    yaml:"path"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// RetentionConfig specifies how many date folders to keep.
type RetentionConfig struct {
	KeepLast int `mapstructure:"keep_last" yaml:"keep_last"`
}

// LogicalName is the name used in backup file names; it defaults to the file's base name.
func (d DatabaseConfig) LogicalName() string {
	if d.Name != "" {
		return d.Name
	}
	return filepath.Base(d.Path)
}

// SecondaryEnabled reports whether the secondary database takes part in backups.
func (c Config) SecondaryEnabled() bool {
	return c.Databases.Secondary.Enabled && c.Databases.Secondary.Path != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("backup.output_directory", "./backups")
	v.SetDefault("backup.include_companion_files", true)
	v.SetDefault("backup.safety_directory", "")
	v.SetDefault("databases.primary.name", "")
	v.SetDefault("databases.primary.path", "")
	v.SetDefault("databases.primary.enabled", true)
	v.SetDefault("databases.secondary.name", "")
	v.SetDefault("databases.secondary.path", "")
	v.SetDefault("databases.secondary.enabled", true)
	v.SetDefault("retention.keep_last", DefaultKeepLast)
}

// expandHomeHook rewrites a leading "~" in any string field to the user's home directory.
func expandHomeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		s, _ := data.(string)
		if !strings.HasPrefix(s, "~") {
			return data, nil
		}
		return homedir.Expand(s)
	}
}

// Load reads the configuration from the given YAML file using Viper,
// merges any included files, applies SHELFSAFE_* environment overrides,
// and unmarshals into the Config struct.
func (c *Config) Load(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read base config %s: %v", ErrLoadConfig, path, err)
	}

	for _, inc := range v.GetStringSlice("include") {
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("%w: read include %s: %v", ErrLoadConfig, inc, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: merge include %s: %v", ErrLoadConfig, inc, err)
		}
	}

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		expandHomeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.UnmarshalExact(c, hooks); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return nil
}

// Validate checks the fields every backup run depends on.
func (c *Config) Validate() error {
	if c.Databases.Primary.Path == "" {
		return fmt.Errorf("%w: databases.primary.path is required", ErrValidateConfig)
	}
	if c.Backup.OutputDirectory == "" {
		return fmt.Errorf("%w: backup.output_directory is required", ErrValidateConfig)
	}
	if c.Retention.KeepLast < 1 {
		return fmt.Errorf("%w: retention.keep_last must be at least 1, got %d",
			ErrValidateConfig, c.Retention.KeepLast)
	}
	if c.SecondaryEnabled() && c.Databases.Secondary.LogicalName() == c.Databases.Primary.LogicalName() {
		return fmt.Errorf("%w: primary and secondary databases share the name %q",
			ErrValidateConfig, c.Databases.Primary.LogicalName())
	}
	return nil
}

// LoadAndValidate is Load followed by Validate.
func LoadAndValidate(path string) (Config, error) {
	var cfg Config
	if err := cfg.Load(path); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings is the process-wide configuration, loaded once at startup from
// ~/.fetchd/settings.yaml. A default file is written on first run.
type Settings struct {
	Download DownloadSettings `mapstructure:"download"`
	Server   ServerSettings   `mapstructure:"server"`
	Logging  LoggingSettings  `mapstructure:"logging"`
}

type DownloadSettings struct {
	// Dir is the default download directory for new downloads.
	Dir string `mapstructure:"dir"`
	// MaxConcurrent is loaded and exposed but not enforced; 0 means
	// unlimited.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

type ServerSettings struct {
	Port int `mapstructure:"port"`
}

type LoggingSettings struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultPort is where the daemon listens unless configured otherwise.
const DefaultPort = 9988

// FetchdDir returns the per-user application directory, creating it if
// needed.
func FetchdDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".fetchd")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Downloads", "fetchd")
}

// Load reads settings from path, falling back to the default location when
// path is empty. A missing file is created with defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = filepath.Join(FetchdDir(), "settings.yaml")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("download.dir", defaultDownloadDir())
	v.SetDefault("download.max_concurrent", 0)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", filepath.Join(FetchdDir(), "fetchd.log"))
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			slog.Info("no settings file found, creating", "path", path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("creating settings directory: %w", err)
			}
			if err := v.WriteConfigAs(path); err != nil {
				return nil, fmt.Errorf("writing default settings: %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading settings file %q: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}

	if err := os.MkdirAll(settings.Download.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory %q: %w", settings.Download.Dir, err)
	}
	return &settings, nil
}

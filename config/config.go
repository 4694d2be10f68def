package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/mkrett/shuttle/pkg/validator"
)

var (
	once sync.Once
	cfg  *Config
)

// GetConfig loads the configuration exactly once and panics on failure; a
// process with a broken config has nothing useful to do.
func GetConfig() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		cfg = loaded
	})
	return cfg
}

// Load reads config.yaml from the working directory (or the path in
// SHUTTLE_CONFIG), applies SHUTTLE_-prefixed environment overrides and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHUTTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults plus env must still validate.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.Validate(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.addSource", false)

	v.SetDefault("app.name", "shuttle")
	v.SetDefault("app.host", "")
	v.SetDefault("app.port", 8080)

	// 25 GiB ceiling, hourly sweep, 24h retention.
	v.SetDefault("upload.maxSize", int64(25)<<30)
	v.SetDefault("upload.tempDir", "./data/tmp")
	v.SetDefault("upload.sweepInterval", "1h")
	v.SetDefault("upload.retention", "24h")

	v.SetDefault("catalog.path", "./data/catalog.json")

	v.SetDefault("objectstore.type", "local")
	v.SetDefault("objectstore.local.root", "./data/objects")
	v.SetDefault("objectstore.cache.enabled", false)
	v.SetDefault("objectstore.cache.dir", "./data/cache")
	v.SetDefault("objectstore.cache.maxSize", 1024)
}

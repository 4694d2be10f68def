package config

import "time"

type Config struct {
	// General configuration
	Env string `yaml:"env" mapstructure:"env" validate:"required"`
	Log Log    `yaml:"log" mapstructure:"log" validate:"required"`
	App App    `yaml:"app" mapstructure:"app" validate:"required"`

	// Protocol and storage components
	Upload      Upload      `yaml:"upload" mapstructure:"upload" validate:"required"`
	Catalog     Catalog     `yaml:"catalog" mapstructure:"catalog" validate:"required"`
	Objectstore Objectstore `yaml:"objectstore" mapstructure:"objectstore" validate:"required"`
}

type App struct {
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port" validate:"required,gte=1,lte=65535"`
}

type Log struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=json text"`
	AddSource bool   `yaml:"addSource" mapstructure:"addSource"`
}

type Upload struct {
	// MaxSize is the largest declared upload length accepted, in bytes.
	MaxSize int64 `yaml:"maxSize" mapstructure:"maxSize" validate:"required,gte=1"`
	// TempDir holds in-progress session blobs, named by session id.
	TempDir string `yaml:"tempDir" mapstructure:"tempDir" validate:"required"`
	// SweepInterval is how often the temp sweeper runs.
	SweepInterval time.Duration `yaml:"sweepInterval" mapstructure:"sweepInterval" validate:"required,gt=0"`
	// Retention is how long an abandoned session and its temp blob survive.
	Retention time.Duration `yaml:"retention" mapstructure:"retention" validate:"required,gt=0"`
}

type Catalog struct {
	// Path is the catalog document location on disk.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

type Objectstore struct {
	Type  string           `yaml:"type" mapstructure:"type" validate:"required,oneof=local storj"`
	Local LocalObjectstore `yaml:"local" mapstructure:"local"`
	Storj StorjObjectstore `yaml:"storj" mapstructure:"storj"`
	Cache CacheObjectstore `yaml:"cache" mapstructure:"cache"`
}

type LocalObjectstore struct {
	Root string `yaml:"root" mapstructure:"root"`
}

type StorjObjectstore struct {
	AccessGrant string `yaml:"accessGrant" mapstructure:"accessGrant"`
	Bucket      string `yaml:"bucket" mapstructure:"bucket"`
}

type CacheObjectstore struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	// MaxSize bounds the local read cache, in MB.
	MaxSize int64 `yaml:"maxSize" mapstructure:"maxSize" validate:"gte=0"`
}

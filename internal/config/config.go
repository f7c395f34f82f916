// Package config loads server and pipeline settings from defaults, an
// optional YAML file, .env, GREENAREA_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

// EnvPrefix prefixes every environment override, e.g. GREENAREA_WORKERS
const EnvPrefix = "GREENAREA"

// Config 应用配置
type Config struct {
	Port      string `mapstructure:"port"`
	DBPath    string `mapstructure:"db_path"`
	JWTSecret string `mapstructure:"jwt_secret"`
	MaxMemory int64  `mapstructure:"max_memory"` // Request body limit in bytes

	FirstYear    int                  `mapstructure:"first_year"`
	LastYear     int                  `mapstructure:"last_year"`
	Season       pipeline.Season      `mapstructure:"season"`
	Sensors      []string             `mapstructure:"sensors"`
	Thresholds   []float64            `mapstructure:"thresholds"`
	Workers      int                  `mapstructure:"workers"`
	Retry        pipeline.RetryPolicy `mapstructure:"retry"`
	TaskTimeout  time.Duration        `mapstructure:"task_timeout"`
	CloudCeiling float64              `mapstructure:"cloud_ceiling"` // Percent
	MaxImages    int                  `mapstructure:"max_images"`    // 0 keeps every eligible scene

	Archive   ArchiveConfig   `mapstructure:"archive"`
	Regions   RegionsConfig   `mapstructure:"regions"`
	Export    ExportConfig    `mapstructure:"export"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ArchiveConfig selects the scene source; URL wins over Dir
type ArchiveConfig struct {
	Dir      string        `mapstructure:"dir"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RegionsConfig locates the district boundaries
type RegionsConfig struct {
	Path         string `mapstructure:"path"`
	CodeProperty string `mapstructure:"code_property"`
	Names        string `mapstructure:"names"` // Optional YAML override of region names
	EPSG         int    `mapstructure:"epsg"`
}

// ExportConfig controls CSV output
type ExportConfig struct {
	Dir      string `mapstructure:"dir"`
	Area     string `mapstructure:"area"`
	Extended bool   `mapstructure:"extended"`
}

// RateLimitConfig throttles API clients per IP
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Error reports an unusable configuration
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8080")
	v.SetDefault("db_path", "./data/greenarea/greenarea.db")
	v.SetDefault("jwt_secret", "your-secret-key-change-in-production")
	v.SetDefault("max_memory", 1024*1024*32)

	v.SetDefault("first_year", 2020)
	v.SetDefault("last_year", 2024)
	v.SetDefault("season.start", pipeline.DefaultSeason.Start)
	v.SetDefault("season.end", pipeline.DefaultSeason.End)
	v.SetDefault("sensors", []string{"landsat8", "modis", "sentinel2"})
	v.SetDefault("thresholds", []float64{0.5, 0.6})
	v.SetDefault("workers", pipeline.DefaultWorkers)
	v.SetDefault("retry.max_attempts", pipeline.DefaultRetry.MaxAttempts)
	v.SetDefault("retry.initial_interval", pipeline.DefaultRetry.InitialInterval)
	v.SetDefault("retry.max_interval", pipeline.DefaultRetry.MaxInterval)
	v.SetDefault("task_timeout", 10*time.Minute)
	v.SetDefault("cloud_ceiling", composite.DefaultCloudCeiling)
	v.SetDefault("max_images", 0)

	v.SetDefault("archive.dir", "./data/archive")
	v.SetDefault("archive.url", "")
	v.SetDefault("archive.timeout", time.Minute)
	v.SetDefault("archive.cache_ttl", 30*time.Minute)

	v.SetDefault("regions.path", "./data/regions/seoul_districts.geojson")
	v.SetDefault("regions.code_property", region.DefaultCodeProperty)
	v.SetDefault("regions.names", "")
	v.SetDefault("regions.epsg", 32652)

	v.SetDefault("export.dir", "./output")
	v.SetDefault("export.area", "Seoul")
	v.SetDefault("export.extended", false)

	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)
}

// Load builds the configuration. path may be empty; flags may be nil. Flag
// names use dashes for underscores and dots, e.g. --first-year,
// --export-dir.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Env names of the original server settings
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	_ = v.BindEnv("db_path", EnvPrefix+"_DB_PATH", "DB_PATH")
	_ = v.BindEnv("jwt_secret", EnvPrefix+"_JWT_SECRET", "JWT_SECRET")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		log.Printf("[Config] Read config file: %s", v.ConfigFileUsed())
	}

	if flags != nil {
		for _, key := range v.AllKeys() {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagName(key string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(key)
}

// Plan returns the pipeline plan the configuration describes
func (c *Config) Plan() pipeline.Plan {
	return pipeline.Plan{
		FirstYear:   c.FirstYear,
		LastYear:    c.LastYear,
		Season:      c.Season,
		Sensors:     append([]string(nil), c.Sensors...),
		Thresholds:  append([]float64(nil), c.Thresholds...),
		Workers:     c.Workers,
		Retry:       c.Retry,
		TaskTimeout: c.TaskTimeout,
	}
}

// Validate rejects settings no run could use
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return &Error{Field: "workers", Reason: "must be positive"}
	}
	if c.Retry.MaxAttempts <= 0 {
		return &Error{Field: "retry.max_attempts", Reason: "must be positive"}
	}
	if c.CloudCeiling <= 0 || c.CloudCeiling > 100 {
		return &Error{Field: "cloud_ceiling", Reason: "must be in (0, 100]"}
	}
	if c.MaxImages < 0 {
		return &Error{Field: "max_images", Reason: "must not be negative"}
	}
	if _, err := spatial.UTMFromEPSG(c.Regions.EPSG); err != nil {
		return &Error{Field: "regions.epsg", Reason: err.Error()}
	}
	if c.Archive.Dir == "" && c.Archive.URL == "" {
		return &Error{Field: "archive", Reason: "dir or url is required"}
	}
	if err := c.Plan().Validate(); err != nil {
		return &Error{Field: "plan", Reason: strings.TrimPrefix(err.Error(), pipeline.ErrInvalidPlan.Error()+": ")}
	}
	return nil
}

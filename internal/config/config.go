// Package config loads simulation and storage settings from YAML with
// ARGJOURNAL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	Population         int     `yaml:"population"`
	Generations        int64   `yaml:"generations"`
	CompactionInterval int64   `yaml:"compaction_interval"`
	RecombinationRate  float64 `yaml:"recombination_rate"`
	Seed               uint64  `yaml:"seed"`
	Replicates         int     `yaml:"replicates"`
	Journal            Journal `yaml:"journal"`
	Archive            Archive `yaml:"archive"`
	Blob               Blob    `yaml:"blob"`
}

// Journal toggles journal behavior.
type Journal struct {
	Strict bool `yaml:"strict"`
}

// Archive selects where compaction segments are kept.
type Archive struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres|blob
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob configures the blob backend used by the blob archive driver.
type Blob struct {
	Driver string `yaml:"driver"` // fs|s3|memory
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 holds bucket coordinates; credentials come from the AWS chain.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Population:         100,
		Generations:        1000,
		CompactionInterval: 100,
		RecombinationRate:  1.0,
		Seed:               42,
		Replicates:         1,
		Journal:            Journal{Strict: true},
		Archive:            Archive{Driver: "memory", SQLitePath: "argjournal.db"},
		Blob:               Blob{Driver: "fs", FSRoot: "./argjournal-blobs"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	var errs []error
	if c.Population <= 0 {
		errs = append(errs, fmt.Errorf("population must be positive, got %d", c.Population))
	}
	if c.Generations < 0 {
		errs = append(errs, fmt.Errorf("generations must not be negative, got %d", c.Generations))
	}
	if c.CompactionInterval < 0 {
		errs = append(errs, fmt.Errorf("compaction_interval must not be negative, got %d", c.CompactionInterval))
	}
	if c.RecombinationRate < 0 {
		errs = append(errs, fmt.Errorf("recombination_rate must not be negative, got %g", c.RecombinationRate))
	}
	if c.Replicates <= 0 {
		errs = append(errs, fmt.Errorf("replicates must be positive, got %d", c.Replicates))
	}
	switch c.Archive.Driver {
	case "", "memory", "sqlite", "postgres", "blob":
	default:
		errs = append(errs, fmt.Errorf("unknown archive driver %q", c.Archive.Driver))
	}
	return errors.Join(errs...)
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	parse("ARGJOURNAL_POPULATION", func(v string) error {
		n, err := strconv.Atoi(v)
		cfg.Population = n
		return err
	})
	parse("ARGJOURNAL_GENERATIONS", func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		cfg.Generations = n
		return err
	})
	parse("ARGJOURNAL_COMPACTION_INTERVAL", func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		cfg.CompactionInterval = n
		return err
	})
	parse("ARGJOURNAL_RECOMBINATION_RATE", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		cfg.RecombinationRate = f
		return err
	})
	parse("ARGJOURNAL_SEED", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		cfg.Seed = n
		return err
	})
	parse("ARGJOURNAL_JOURNAL_STRICT", func(v string) error {
		b, err := strconv.ParseBool(v)
		cfg.Journal.Strict = b
		return err
	})
	str("ARGJOURNAL_ARCHIVE_DRIVER", &cfg.Archive.Driver)
	str("ARGJOURNAL_SQLITE_PATH", &cfg.Archive.SQLitePath)
	str("ARGJOURNAL_POSTGRES_DSN", &cfg.Archive.PostgresDSN)
	str("ARGJOURNAL_BLOB_DRIVER", &cfg.Blob.Driver)
	str("ARGJOURNAL_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("ARGJOURNAL_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("ARGJOURNAL_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("ARGJOURNAL_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	parse("ARGJOURNAL_BLOB_S3_PATH_STYLE", func(v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		cfg.Blob.S3.PathStyle = b
		return err
	})
	return errors.Join(errs...)
}

// ABOUTME: Service configuration for annstore, read from annstore.yaml
// ABOUTME: Defaults, YAML loading, ANNSTORE_* environment overrides and validation

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional name of the configuration file
const FileName = "annstore.yaml"

// Config is the full service configuration
type Config struct {
	Server    ServerConfig  `yaml:"server"`
	Storage   StorageConfig `yaml:"storage"`
	Log       LogConfig     `yaml:"log"`
	Compat    CompatConfig  `yaml:"compat"`
	TypesFile string        `yaml:"types_file"`
}

type ServerConfig struct {
	GrpcPort    int `yaml:"grpc_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type StorageConfig struct {
	// DataDir is the collection root; requested document paths resolve
	// inside it
	DataDir     string        `yaml:"data_dir"`
	LockDir     string        `yaml:"lock_dir"`
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// JournalPath is the revision journal's base file name; empty disables
	// the journal
	JournalPath string `yaml:"journal_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type CompatConfig struct {
	BioNLPST2013 bool `yaml:"bionlp_st_2013"`

	// RelationTypes limits which relation types may point at event
	// triggers in compatibility mode; empty allows all
	RelationTypes []string `yaml:"relation_types"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GrpcPort:    50061,
			MetricsPort: 9091,
		},
		Storage: StorageConfig{
			DataDir:     "data",
			LockDir:     ".annstore/locks",
			LockTimeout: 10 * time.Second,
			JournalPath: ".annstore/journal/revisions",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides values from ANNSTORE_* environment variables
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"ANNSTORE_DATA_DIR":     &c.Storage.DataDir,
		"ANNSTORE_LOCK_DIR":     &c.Storage.LockDir,
		"ANNSTORE_JOURNAL_PATH": &c.Storage.JournalPath,
		"ANNSTORE_LOG_LEVEL":    &c.Log.Level,
		"ANNSTORE_TYPES_FILE":   &c.TypesFile,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ANNSTORE_GRPC_PORT":    &c.Server.GrpcPort,
		"ANNSTORE_METRICS_PORT": &c.Server.MetricsPort,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("ANNSTORE_LOCK_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ANNSTORE_LOCK_TIMEOUT: %w", err)
		}
		c.Storage.LockTimeout = d
	}
	for name, dst := range map[string]*bool{
		"ANNSTORE_LOG_PRETTY":     &c.Log.Pretty,
		"ANNSTORE_BIONLP_ST_2013": &c.Compat.BioNLPST2013,
	} {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error
	if !validPort(c.Server.GrpcPort) {
		errs = append(errs, fmt.Errorf("server.grpc_port %d out of range", c.Server.GrpcPort))
	}
	if !validPort(c.Server.MetricsPort) {
		errs = append(errs, fmt.Errorf("server.metrics_port %d out of range", c.Server.MetricsPort))
	}
	if c.Server.GrpcPort == c.Server.MetricsPort {
		errs = append(errs, errors.New("server.grpc_port and server.metrics_port must differ"))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if c.Storage.LockDir == "" {
		errs = append(errs, errors.New("storage.lock_dir is required"))
	}
	if c.Storage.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("storage.lock_timeout must be positive, got %s", c.Storage.LockTimeout))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"structest/internal/fatal"
	"structest/internal/oracle"
	"structest/internal/runinfo"

	"gopkg.in/yaml.v3"
)

// Config captures all runtime options for a conformance run.
type Config struct {
	Oracle         string             `yaml:"oracle"`
	SourceRoot     string             `yaml:"source_root"`
	Sources        []string           `yaml:"sources"`
	Checks         []string           `yaml:"checks"`
	Workers        int                `yaml:"workers"`
	TimeoutSeconds int                `yaml:"timeout_seconds"`
	Report         ReportConfig       `yaml:"report"`
	Storage        StorageConfig      `yaml:"storage"`
	Logging        Logging            `yaml:"logging"`
	RunInfo        *runinfo.BasicInfo `yaml:"-"`
}

// ReportConfig controls where run artifacts are written.
type ReportConfig struct {
	OutputDir   string `yaml:"output_dir"`
	Archive     bool   `yaml:"archive"`
	UseUUIDPath bool   `yaml:"use_uuid_path"`
}

// Logging controls stdout logging behavior.
type Logging struct {
	Verbose bool   `yaml:"verbose"`
	LogFile string `yaml:"log_file"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (AWS and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fatal.Wrap(fatal.Config, err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fatal.Wrap(fatal.Config, err, "parse config %s", path)
		}
		// Paths in a config file are relative to the file.
		base := filepath.Dir(path)
		for _, p := range []*string{&cfg.Oracle, &cfg.SourceRoot} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(base, *p)
			}
		}
	}
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

// Validate checks the values a check run depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Oracle) == "" {
		return fatal.New(fatal.Config, "no oracle file configured; pass --oracle or set 'oracle' in the config file")
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fatal.New(fatal.Config, "storage.s3.bucket is required when S3 uploads are enabled")
	}
	if c.Storage.GCS.Enabled && c.Storage.GCS.Bucket == "" {
		return fatal.New(fatal.Config, "storage.gcs.bucket is required when GCS uploads are enabled")
	}
	return nil
}

// Kinds resolves the configured check kinds in order, without repeats.
// Unknown names are a configuration error.
func (c Config) Kinds() ([]oracle.Kind, error) {
	kinds := make([]oracle.Kind, 0, len(c.Checks))
	seen := make(map[oracle.Kind]bool, len(c.Checks))
	for _, name := range c.Checks {
		kind, err := oracle.ParseKind(name)
		if err != nil {
			return nil, fatal.Wrap(fatal.Config, err, "checks")
		}
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

func normalizeConfig(cfg *Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.TimeoutSeconds < 0 {
		cfg.TimeoutSeconds = 0
	}
	if cfg.SourceRoot == "" {
		cfg.SourceRoot = "."
	}
	cfg.Sources = trimAll(cfg.Sources)
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"**/*.java"}
	}
	cfg.Checks = dedupe(lowerAll(trimAll(cfg.Checks)))
	if len(cfg.Checks) == 0 {
		for _, kind := range oracle.Kinds {
			cfg.Checks = append(cfg.Checks, string(kind))
		}
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "reports"
	}
	cfg.Storage.S3.Prefix = strings.Trim(cfg.Storage.S3.Prefix, "/")
	cfg.Storage.GCS.Prefix = strings.Trim(cfg.Storage.GCS.Prefix, "/")
}

func defaultConfig() Config {
	return Config{
		SourceRoot: ".",
		Sources:    []string{"**/*.java"},
		Report: ReportConfig{
			OutputDir: "reports",
			Archive:   true,
		},
		Logging: Logging{
			LogFile: "logs/structest.log",
		},
	}
}

func trimAll(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

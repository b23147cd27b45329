package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/releve/internal/importer"
)

// FileName is the name of the project configuration file.
const FileName = "releve.yaml"

// Environment variables that override the file.
const (
	EnvDatabase = "RELEVE_DB"
	EnvLogLevel = "RELEVE_LOG_LEVEL"
)

// Config represents the top-level releve.yaml configuration.
type Config struct {
	Database DatabaseConfig             `yaml:"database"`
	Import   importer.Config            `yaml:"import"`
	Profiles map[string]importer.Config `yaml:"profiles,omitempty"`
	Log      LogConfig                  `yaml:"log"`
	Git      GitConfig                  `yaml:"git"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the project root
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// GitConfig controls versioning of the project files. It only applies
// when the project directory is a git repository.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a releve.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/releve.db",
		},
		Import: importer.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "releve",
			AuthorEmail: "releve@localhost",
		},
	}
}

// LoadProject reads <root>/releve.yaml, falling back to Default when the
// file does not exist, then applies <root>/.env and the environment.
func LoadProject(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from RELEVE_DB and RELEVE_LOG_LEVEL when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// DatabasePath returns the database location, resolved against root.
func (c *Config) DatabasePath(root string) string {
	p := c.Database.Path
	if p == "" {
		p = Default().Database.Path
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Registry returns the import profiles: the "import" section under the
// default name, plus every named profile. A file without an "import"
// section gets importer.DefaultConfig.
func (c *Config) Registry() (*importer.Registry, error) {
	imp := c.Import
	if imp.DateColumn == "" && imp.DescriptionColumn == "" && imp.DebitColumn == "" && imp.CreditColumn == "" {
		imp = importer.DefaultConfig()
	}
	r := importer.NewRegistry()
	if err := r.Add(importer.DefaultProfile, imp); err != nil {
		return nil, err
	}
	for name, p := range c.Profiles {
		if err := r.Add(name, p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

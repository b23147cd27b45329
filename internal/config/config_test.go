package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/releve/internal/importer"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	boursorama := importer.DefaultConfig()
	boursorama.DateColumn = "dateOp"
	boursorama.Delimiter = ";"
	cfg.Profiles = map[string]importer.Config{"boursorama": boursorama}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Database.Path, got.Database.Path)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Git, got.Git)
	assert.Equal(t, cfg.Import, got.Import)
	require.Contains(t, got.Profiles, "boursorama")
	assert.Equal(t, "dateOp", got.Profiles["boursorama"].DateColumn)
	assert.Equal(t, ";", got.Profiles["boursorama"].Delimiter)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "data/releve.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, importer.DefaultConfig(), cfg.Import)
	assert.Empty(t, cfg.Profiles)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Equal(t, "releve", cfg.Git.AuthorName)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "path: data/releve.db")
	assert.Contains(t, contents, "date_column: Date")
	assert.Contains(t, contents, "level: info")
	assert.Contains(t, contents, "auto_commit: true")
}

func TestLoadProject_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := LoadProject(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadProject_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDatabase, "/var/lib/releve/main.db")
	t.Setenv(EnvLogLevel, "debug")

	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default()))

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/releve/main.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/lib/releve/main.db", cfg.DatabasePath(root))
}

func TestLoadProject_DotEnv(t *testing.T) {
	// Setenv registers cleanup; unsetting lets .env supply the values.
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvLogLevel, "warn")
	require.NoError(t, os.Unsetenv(EnvDatabase))

	root := t.TempDir()
	env := EnvDatabase + "=db/from-env.db\n" + EnvLogLevel + "=error\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0o644))

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "db", "from-env.db"), cfg.DatabasePath(root))
	assert.Equal(t, "warn", cfg.Log.Level, "the environment wins over .env")
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/srv/finances", "data", "releve.db"), cfg.DatabasePath("/srv/finances"))

	cfg.Database.Path = ""
	assert.Equal(t, filepath.Join("/srv/finances", "data", "releve.db"), cfg.DatabasePath("/srv/finances"))
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	lcl := importer.Config{
		DateColumn:        "Date",
		DescriptionColumn: "Libelle",
		DebitColumn:       "Debit",
		CreditColumn:      "Credit",
		Delimiter:         ";",
	}
	cfg.Profiles = map[string]importer.Config{"LCL": lcl}

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "lcl"}, reg.Names())

	got, ok := reg.Get("lcl")
	require.True(t, ok)
	assert.Equal(t, ";", got.Delimiter)
	assert.Equal(t, importer.DefaultChunkSize, got.ChunkSize)

	bare := &Config{}
	reg, err = bare.Registry()
	require.NoError(t, err)
	def, ok := reg.Get(importer.DefaultProfile)
	require.True(t, ok)
	assert.Equal(t, "Libellé", def.DescriptionColumn)

	cfg.Profiles["broken"] = importer.Config{DateColumn: "Date"}
	_, err = cfg.Registry()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile broken")
}

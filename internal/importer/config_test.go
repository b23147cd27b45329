package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateLayout(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
		wantErr bool
	}{
		{"02/01/2006", "02/01/2006", false},
		{"2/1/2006", "2/1/2006", false},
		{"%d/%m/%Y", "2/1/2006", false},
		{"%Y-%m-%d", "2006-1-2", false},
		{"%d.%m.%y", "2.1.06", false},
		{"%d %B %Y", "2 January 2006", false},
		{"%d/%m", "", true},
		{"%Q/%m/%Y", "", true},
		{"%d/%m/%Y%", "", true},
		{"", "", true},
		{"hello", "", true},
	}
	for _, tt := range tests {
		got, err := dateLayout(tt.pattern)
		if tt.wantErr {
			assert.Error(t, err, "dateLayout(%q)", tt.pattern)
			continue
		}
		require.NoError(t, err, "dateLayout(%q)", tt.pattern)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"empty date column", func(c *Config) { c.DateColumn = " " }, "date_column"},
		{"duplicate column", func(c *Config) { c.CreditColumn = c.DebitColumn }, "credit_column"},
		{"long delimiter", func(c *Config) { c.Delimiter = ";;" }, "delimiter"},
		{"quote delimiter", func(c *Config) { c.Delimiter = `"` }, "delimiter"},
		{"bad decimal separator", func(c *Config) { c.DecimalSeparator = "'" }, "decimal_separator"},
		{"bad date pattern", func(c *Config) { c.DatePattern = "%d/%m" }, "date_pattern"},
		{"negative skip", func(c *Config) { c.HeaderSkipRows = -1 }, "header_skip_rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewPipeline(cfg)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.option, cerr.Option)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "2/1/2006", p.set.layout)
	assert.Equal(t, ',', p.set.delimiter)
	assert.Equal(t, byte(','), p.set.decimal)
}

func TestConfigError_Message(t *testing.T) {
	assert.Equal(t, "import config: delimiter: bad", (&ConfigError{Option: "delimiter", Reason: "bad"}).Error())
	assert.Equal(t, "import config: no header", (&ConfigError{Reason: "no header"}).Error())
}

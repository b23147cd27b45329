package importer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Config names the columns and formats of one bank's export. Field names
// in YAML match the option names used on the command line and in profiles.
type Config struct {
	DateColumn         string   `yaml:"date_column"`
	DescriptionColumn  string   `yaml:"description_column"`
	DebitColumn        string   `yaml:"debit_column"`
	CreditColumn       string   `yaml:"credit_column"`
	EncodingCandidates []string `yaml:"encoding_candidates"`
	Delimiter          string   `yaml:"delimiter"`
	DecimalSeparator   string   `yaml:"decimal_separator"`
	DatePattern        string   `yaml:"date_pattern"`
	HeaderSkipRows     int      `yaml:"header_skip_rows"`
	ChunkSize          int      `yaml:"chunk_size"`
}

// DefaultChunkSize bounds how many data rows are held before they are
// deduplicated and released.
const DefaultChunkSize = 500

// DefaultConfig returns the mapping for the common French bank export.
// Amounts use a decimal comma, so such cells arrive quoted.
func DefaultConfig() Config {
	return Config{
		DateColumn:         "Date",
		DescriptionColumn:  "Libellé",
		DebitColumn:        "Débit euros",
		CreditColumn:       "Crédit euros",
		EncodingCandidates: []string{"utf-8", "iso-8859-1"},
		Delimiter:          ",",
		DecimalSeparator:   ",",
		DatePattern:        "%d/%m/%Y",
		HeaderSkipRows:     0,
		ChunkSize:          DefaultChunkSize,
	}
}

// ConfigError reports a configuration that prevents reading any row: a bad
// column mapping, an unusable format option, no decodable encoding or no
// header row.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return "import config: " + e.Reason
	}
	return fmt.Sprintf("import config: %s: %s", e.Option, e.Reason)
}

// WithDefaults fills zero-valued options from DefaultConfig. Column names
// are left alone so a profile cannot silently inherit another bank's
// headers.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if len(c.EncodingCandidates) == 0 {
		c.EncodingCandidates = d.EncodingCandidates
	}
	if c.Delimiter == "" {
		c.Delimiter = d.Delimiter
	}
	if c.DecimalSeparator == "" {
		c.DecimalSeparator = d.DecimalSeparator
	}
	if c.DatePattern == "" {
		c.DatePattern = d.DatePattern
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	return c
}

// settings is a validated Config in the form the pipeline consumes.
type settings struct {
	columns   [4]string // date, description, debit, credit
	delimiter rune
	decimal   byte
	layout    string
	skip      int
	chunk     int
}

const (
	colDate = iota
	colDesc
	colDebit
	colCredit
)

func (c Config) validate() (settings, error) {
	var s settings

	cols := []struct {
		option string
		name   string
	}{
		{"date_column", c.DateColumn},
		{"description_column", c.DescriptionColumn},
		{"debit_column", c.DebitColumn},
		{"credit_column", c.CreditColumn},
	}
	seen := make(map[string]string, len(cols))
	for i, col := range cols {
		name := strings.TrimSpace(col.name)
		if name == "" {
			return s, &ConfigError{Option: col.option, Reason: "column name is empty"}
		}
		if other, dup := seen[name]; dup {
			return s, &ConfigError{Option: col.option, Reason: fmt.Sprintf("column %q already mapped by %s", name, other)}
		}
		seen[name] = col.option
		s.columns[i] = name
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return s, &ConfigError{Option: "delimiter", Reason: fmt.Sprintf("must be a single character, got %q", c.Delimiter)}
	}
	s.delimiter, _ = utf8.DecodeRuneInString(c.Delimiter)
	if s.delimiter == '"' || s.delimiter == '\r' || s.delimiter == '\n' || s.delimiter == utf8.RuneError {
		return s, &ConfigError{Option: "delimiter", Reason: fmt.Sprintf("%q cannot separate fields", c.Delimiter)}
	}

	switch c.DecimalSeparator {
	case ",", ".":
		s.decimal = c.DecimalSeparator[0]
	default:
		return s, &ConfigError{Option: "decimal_separator", Reason: fmt.Sprintf("must be \",\" or \".\", got %q", c.DecimalSeparator)}
	}

	layout, err := dateLayout(c.DatePattern)
	if err != nil {
		return s, &ConfigError{Option: "date_pattern", Reason: err.Error()}
	}
	s.layout = layout

	if c.HeaderSkipRows < 0 {
		return s, &ConfigError{Option: "header_skip_rows", Reason: "must not be negative"}
	}
	s.skip = c.HeaderSkipRows

	s.chunk = c.ChunkSize
	if s.chunk <= 0 {
		s.chunk = DefaultChunkSize
	}
	return s, nil
}

var strftime = map[byte]string{
	'd': "2",
	'e': "_2",
	'm': "1",
	'y': "06",
	'Y': "2006",
	'b': "Jan",
	'B': "January",
	'H': "15",
	'M': "04",
	'S': "05",
	'%': "%",
}

// dateLayout accepts either a Go reference layout ("2/1/2006") or a
// strftime pattern ("%d/%m/%Y") and returns a Go layout. The layout must
// carry a year, a month and a day.
//
// %d and %m read one or two digits, so "1/2/2025" and "01/02/2025" both
// parse. Go layouts are used as written: "2" and "1" are lenient the same
// way, while "02" and "01" require two digits.
func dateLayout(pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("empty date pattern")
	}

	layout := pattern
	if strings.Contains(pattern, "%") {
		var b strings.Builder
		for i := 0; i < len(pattern); i++ {
			if pattern[i] != '%' {
				b.WriteByte(pattern[i])
				continue
			}
			if i+1 == len(pattern) {
				return "", fmt.Errorf("dangling %% in %q", pattern)
			}
			i++
			repl, ok := strftime[pattern[i]]
			if !ok {
				return "", fmt.Errorf("unsupported directive %%%c in %q", pattern[i], pattern)
			}
			b.WriteString(repl)
		}
		layout = b.String()
	}

	ref := time.Date(2025, time.October, 24, 0, 0, 0, 0, time.UTC)
	got, err := time.Parse(layout, ref.Format(layout))
	if err != nil || got.Year() != ref.Year() || got.Month() != ref.Month() || got.Day() != ref.Day() {
		return "", fmt.Errorf("%q does not describe a full calendar date", pattern)
	}
	return layout, nil
}

// Package importlog keeps an append-only CSV history of import runs next
// to the database, so a user can see what each file contributed.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	File       string
	Encoding   string
	Rows       int
	Inserted   int
	Duplicates int
	Warnings   int
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,run_id,file,encoding,rows,inserted,duplicates,warnings"

const (
	numFields     = 8
	logDir        = "logs"
	logFile       = "logs/import-log.csv"
	colTimestamp  = 0
	colRunID      = 1
	colFile       = 2
	colEncoding   = 3
	colRows       = 4
	colInserted   = 5
	colDuplicates = 6
	colWarnings   = 7
)

// Path returns the location of the log under root.
func Path(root string) string {
	return filepath.Join(root, logFile)
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colFile] = e.File
	row[colEncoding] = e.Encoding
	row[colRows] = strconv.Itoa(e.Rows)
	row[colInserted] = strconv.Itoa(e.Inserted)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colWarnings] = strconv.Itoa(e.Warnings)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	e := Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		File:      record[colFile],
		Encoding:  record[colEncoding],
	}
	counts := []struct {
		col int
		dst *int
	}{
		{colRows, &e.Rows},
		{colInserted, &e.Inserted},
		{colDuplicates, &e.Duplicates},
		{colWarnings, &e.Warnings},
	}
	for _, c := range counts {
		n, err := strconv.Atoi(record[c.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing %s %q: %w", strings.Split(Header, ",")[c.col], record[c.col], err)
		}
		*c.dst = n
	}
	return e, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(root)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

package importlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 10, 24, 18, 5, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		RunID:      "6f1c2b9e-3d7a-4c55-9a0e-1b2c3d4e5f60",
		File:       "releve_2025-10.csv",
		Encoding:   "utf-8",
		Rows:       42,
		Inserted:   40,
		Duplicates: 1,
		Warnings:   1,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "releve_2025-10.csv", entries[0].File)
	assert.Equal(t, 40, entries[0].Inserted)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	again := testEntry()
	again.RunID = "second"
	again.Inserted, again.Duplicates = 0, 41
	require.NoError(t, Append(dir, []Entry{again}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 40, entries[0].Inserted)
	assert.Equal(t, "second", entries[1].RunID)
	assert.Equal(t, 41, entries[1].Duplicates)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	original.File = `relevé "octobre", final.csv`
	require.NoError(t, Append(dir, []Entry{original}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	got.Timestamp = original.Timestamp
	assert.Equal(t, original, got)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 8 fields")

	row := MarshalEntry(testEntry())
	row[colInserted] = "many"
	_, err = UnmarshalEntry(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parsing inserted "many"`)

	row = MarshalEntry(testEntry())
	row[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing timestamp")
}

func TestTimestampFormat(t *testing.T) {
	e := testEntry()
	e.Timestamp = time.Date(2025, 10, 24, 20, 5, 0, 0, time.FixedZone("CEST", 2*60*60))
	row := MarshalEntry(e)
	assert.Equal(t, "2025-10-24T18:05:00Z", row[colTimestamp])
}

func TestAppend_CreatesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

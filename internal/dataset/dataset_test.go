package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanogan-digital/directory-cli/pkg/socrata"
)

func TestFallback_FiltersZip(t *testing.T) {
	rows, err := Fallback("98855")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, "98855", r.Zip)
	}
}

func TestFallback_OtherZipExcludesTonasket(t *testing.T) {
	rows, err := Fallback("98844")
	require.NoError(t, err)
	for _, r := range rows {
		assert.NotEqual(t, "98855", r.Zip)
	}
}

func TestFilterZip_KeepsMissingZip(t *testing.T) {
	rows := []socrata.License{
		{BusinessName: "A", Zip: "98855"},
		{BusinessName: "B", Zip: ""},
		{BusinessName: "C", Zip: "98844"},
	}
	got := FilterZip(rows, "98855")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].BusinessName)
	assert.Equal(t, "B", got[1].BusinessName)
}

func TestFilterZip_EmptyZipKeepsAll(t *testing.T) {
	rows := []socrata.License{{BusinessName: "A"}, {BusinessName: "B"}}
	assert.Len(t, FilterZip(rows, ""), 2)
}

func TestImportFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "licenses.csv")
	content := strings.Join([]string{
		"License Number,Business Name,Street Address,City,Zip,License Status,License Type",
		"603123456,JOES BAKERY LLC,5 Main St,TONASKET,98855,Active,LLC",
		"603999999,MAIN STREET MARKET,102 N Main St,TONASKET,98855,Active,Sole Proprietor",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ImportFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "JOES BAKERY LLC", rows[0].BusinessName)
	assert.Equal(t, "5 Main St", rows[0].LocationAddress)
	assert.Equal(t, "98855", rows[0].Zip)
	assert.Equal(t, "LLC", rows[0].LicenseType)
}

func TestImportFile_UnsupportedExtension(t *testing.T) {
	_, err := ImportFile("licenses.txt")
	assert.Error(t, err)
}

func TestImportFile_CSVNoRecognizedColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o644))
	_, err := ImportFile(path)
	assert.Error(t, err)
}

func TestRowsToLicenses_SkipsEmptyRows(t *testing.T) {
	rows := [][]string{
		{"Business Name", "Zip"},
		{"", ""},
		{"REAL BUSINESS", "98855"},
	}
	got, err := rowsToLicenses(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "REAL BUSINESS", got[0].BusinessName)
}

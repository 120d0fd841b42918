package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/okanogan-digital/directory-cli/pkg/socrata"
)

// headerAliases maps export column headings (lowercased, trimmed) to
// License fields. Department of Revenue exports have shifted heading
// names over the years; the aliases cover the variants seen so far.
var headerAliases = map[string]string{
	"license number":    "license_number",
	"ubi":               "license_number",
	"business name":     "business_name",
	"location name":     "location_name",
	"location address":  "location_address",
	"street address":    "location_address",
	"business address":  "business_address",
	"city":              "city",
	"location city":     "city",
	"state":             "state",
	"zip":               "zip",
	"zip code":          "zip",
	"location zip":      "zip",
	"phone":             "phone",
	"license status":    "license_status",
	"status":            "license_status",
	"license type":      "license_type",
	"entity type":       "license_type",
	"first issue date":  "first_issue_date",
	"first issuance":    "first_issue_date",
}

// ImportFile reads a license export (.xlsx or .csv by extension) into
// license records. The first row must be a header row.
func ImportFile(path string) ([]socrata.License, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return importXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return importCSV(f)
	default:
		return nil, eris.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}
}

func importXLSX(path string) ([]socrata.License, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rowsToLicenses(rows)
}

func importCSV(r io.Reader) ([]socrata.License, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read csv")
		}
		rows = append(rows, record)
	}
	return rowsToLicenses(rows)
}

func rowsToLicenses(rows [][]string) ([]socrata.License, error) {
	if len(rows) == 0 {
		return nil, eris.New("dataset: empty file")
	}

	// Map column index -> field name from the header row.
	fields := make(map[int]string, len(rows[0]))
	for i, heading := range rows[0] {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(heading))]; ok {
			fields[i] = field
		}
	}
	if len(fields) == 0 {
		return nil, eris.New("dataset: no recognized columns in header row")
	}

	var out []socrata.License
	for _, row := range rows[1:] {
		var lic socrata.License
		empty := true
		for i, value := range row {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch fields[i] {
			case "license_number":
				lic.LicenseNumber = value
			case "business_name":
				lic.BusinessName = value
			case "location_name":
				lic.LocationName = value
			case "location_address":
				lic.LocationAddress = value
			case "business_address":
				lic.BusinessAddress = value
			case "city":
				lic.City = value
			case "state":
				lic.State = value
			case "zip":
				lic.Zip = value
			case "phone":
				lic.Phone = value
			case "license_status":
				lic.LicenseStatus = value
			case "license_type":
				lic.LicenseType = value
			case "first_issue_date":
				lic.FirstIssueDate = value
			default:
				continue
			}
			empty = false
		}
		if !empty {
			out = append(out, lic)
		}
	}
	return out, nil
}

// Package dataset provides the static fallback business list used when
// the open-data portal is unreachable, plus import of license exports.
package dataset

import (
	_ "embed"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/okanogan-digital/directory-cli/pkg/socrata"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback returns the embedded business list filtered to one ZIP code.
// The embedded data is a periodically refreshed copy of known local
// licenses, so an outage of the portal degrades freshness, not coverage.
func Fallback(zip string) ([]socrata.License, error) {
	var all []socrata.License
	if err := json.Unmarshal(fallbackJSON, &all); err != nil {
		return nil, eris.Wrap(err, "dataset: parse embedded fallback")
	}
	return FilterZip(all, zip), nil
}

// FilterZip keeps licenses registered in the given ZIP code. A license
// with no ZIP at all is kept; the fallback data predates consistent ZIP
// capture and dropping those rows would hide real businesses.
func FilterZip(rows []socrata.License, zip string) []socrata.License {
	if zip == "" {
		return rows
	}
	var out []socrata.License
	for _, r := range rows {
		if r.Zip == "" || r.Zip == zip {
			out = append(out, r)
		}
	}
	return out
}

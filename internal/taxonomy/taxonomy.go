// Package taxonomy maps source-specific category labels (Yelp category
// aliases, Google place types) onto the directory's own categories. The
// two per-source tables live in one structure keyed by source so they can
// be maintained, and overridden, together.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Table maps source labels to directory categories, keyed by source name.
type Table struct {
	Yelp   map[string]string `yaml:"yelp"`
	Google map[string]string `yaml:"google"`
}

// Default returns the compiled-in taxonomy table.
func Default() *Table {
	return &Table{
		Yelp: map[string]string{
			"restaurants":     "Food & Dining",
			"food":            "Food & Dining",
			"cafes":           "Food & Dining",
			"coffee":          "Food & Dining",
			"bakeries":        "Food & Dining",
			"breweries":       "Food & Dining",
			"bars":            "Food & Dining",
			"pizza":           "Food & Dining",
			"mexican":         "Food & Dining",
			"grocery":         "Retail",
			"shopping":        "Retail",
			"hardwarestores":  "Retail",
			"convenience":     "Retail",
			"autorepair":      "Services",
			"homeservices":    "Services",
			"realestate":      "Services",
			"banks":           "Services",
			"insurance":       "Services",
			"beautysvc":       "Services",
			"hair":            "Services",
			"health":          "Healthcare",
			"dentists":        "Healthcare",
			"physicians":      "Healthcare",
			"pharmacy":        "Healthcare",
			"farms":           "Agriculture",
			"farmersmarket":   "Agriculture",
			"nurseries":       "Agriculture",
			"petstore":        "Retail",
			"gas_stations":    "Services",
			"localservices":   "Services",
		},
		Google: map[string]string{
			"restaurant":         "Food & Dining",
			"cafe":               "Food & Dining",
			"bakery":             "Food & Dining",
			"bar":                "Food & Dining",
			"meal_takeaway":      "Food & Dining",
			"grocery_store":      "Retail",
			"supermarket":        "Retail",
			"hardware_store":     "Retail",
			"store":              "Retail",
			"clothing_store":     "Retail",
			"car_repair":         "Services",
			"gas_station":        "Services",
			"bank":               "Services",
			"insurance_agency":   "Services",
			"real_estate_agency": "Services",
			"hair_care":          "Services",
			"beauty_salon":       "Services",
			"lodging":            "Services",
			"doctor":             "Healthcare",
			"dentist":            "Healthcare",
			"pharmacy":           "Healthcare",
			"hospital":           "Healthcare",
			"veterinary_care":    "Healthcare",
			"florist":            "Agriculture",
		},
	}
}

// Load reads a taxonomy override file. Entries present in the file replace
// the compiled-in defaults per source label; sources absent from the file
// keep their defaults.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}

	var wrapper struct {
		Taxonomy Table `yaml:"taxonomy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse")
	}

	t := Default()
	for label, cat := range wrapper.Taxonomy.Yelp {
		t.Yelp[strings.ToLower(label)] = cat
	}
	for label, cat := range wrapper.Taxonomy.Google {
		t.Google[strings.ToLower(label)] = cat
	}
	return t, nil
}

// FromYelp resolves a Yelp category alias to a directory category.
// Returns "" when the alias has no mapping; callers keep their existing
// category in that case.
func (t *Table) FromYelp(alias string) string {
	return t.Yelp[strings.ToLower(strings.TrimSpace(alias))]
}

// FromGoogle resolves a Google place type to a directory category.
func (t *Table) FromGoogle(placeType string) string {
	return t.Google[strings.ToLower(strings.TrimSpace(placeType))]
}

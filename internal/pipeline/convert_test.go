package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanogan-digital/directory-cli/pkg/places"
	"github.com/okanogan-digital/directory-cli/pkg/socrata"
	"github.com/okanogan-digital/directory-cli/pkg/yelp"
)

func TestFoundationFromLicense(t *testing.T) {
	b := FoundationFromLicense(socrata.License{
		LicenseNumber:   "601123456",
		BusinessName:    "JOES BAKERY LLC",
		LocationName:    "joes bakery",
		LocationAddress: "5 Main St",
		Phone:           "5094861234",
		LicenseStatus:   "Active",
		LicenseType:     "Food Service",
	})

	assert.Equal(t, "lic-601123456", b.ID)
	assert.Equal(t, "Joes Bakery", b.Name) // location name preferred
	assert.Equal(t, "5 Main Street, Tonasket, Washington 98855", b.Address)
	assert.Equal(t, "(509) 486-1234", b.Phone)
	assert.Equal(t, "Services", b.Category)
	assert.Equal(t, "Active", b.LicenseStatus)
	assert.Contains(t, b.SourceData, "socrata")
}

func TestFoundationFromLicense_BusinessFieldsFallBack(t *testing.T) {
	b := FoundationFromLicense(socrata.License{
		BusinessName:    "ALPHA FEED & SUPPLY",
		BusinessAddress: "210 Whitcomb Ave",
	})

	assert.Equal(t, "Alpha Feed & Supply", b.Name)
	assert.Contains(t, b.Address, "Whitcomb Avenue")
	// No license number: ID comes from the content hash.
	assert.Contains(t, b.ID, "biz-")
}

func TestApplyLicense_NeverBlanksFields(t *testing.T) {
	b := FoundationFromLicense(socrata.License{
		LicenseNumber: "601",
		BusinessName:  "Alpha Feed",
		LicenseStatus: "Active",
	})
	applyLicense(&b, socrata.License{FirstIssueDate: "2010-01-15"})

	assert.Equal(t, "Active", b.LicenseStatus)
	assert.Equal(t, "601", b.LicenseNumber)
	assert.Equal(t, "2010-01-15", b.FirstIssueDate)
	assert.Contains(t, b.SourceData, "license")
}

func TestPlacesRecord(t *testing.T) {
	rec := placesRecord(&places.Place{
		DisplayName:      places.DisplayName{Text: "Joe's Bakery"},
		FormattedAddress: "5 Main Street, Tonasket, WA 98855",
		NationalPhone:    "(509) 486-1234",
		Rating:           4.7,
		Photos:           []places.Photo{{Name: "places/abc/photos/def"}, {Name: ""}},
		Location:         &places.LatLng{Latitude: 48.7, Longitude: -119.4},
		OpeningHours:     &places.OpeningHours{WeekdayDescriptions: []string{"Monday: 7 AM – 3 PM"}},
	}, &stubPlaces{})

	assert.Equal(t, "Joe's Bakery", rec.Name)
	require.Len(t, rec.PhotoURLs, 1) // empty photo names skipped
	assert.Equal(t, "https://photos.test/places/abc/photos/def", rec.PhotoURLs[0])
	require.NotNil(t, rec.Coordinates)
	assert.InDelta(t, 48.7, rec.Coordinates.Latitude, 0.0001)
	assert.Equal(t, []string{"Monday: 7 AM – 3 PM"}, rec.Hours)
}

func TestReviewsRecord(t *testing.T) {
	rec := reviewsRecord(&yelp.Business{
		Name:         "Joe's Bakery",
		DisplayPhone: "(509) 486-1234",
		URL:          "https://www.yelp.com/biz/joes-bakery",
		Rating:       4.5,
		ImageURL:     "https://img.yelp.test/main.jpg",
		Categories:   []yelp.Category{{Alias: "bakeries", Title: "Bakeries"}},
		Location:     yelp.Location{DisplayAddress: []string{"5 Main Street", "Tonasket, WA 98855"}},
		Hours: []yelp.Hours{{Open: []yelp.HoursBlock{
			{Day: 0, Start: "0700", End: "1500"},
		}}},
	})

	assert.Equal(t, "5 Main Street, Tonasket, WA 98855", rec.DisplayAddress)
	require.Len(t, rec.Categories, 1)
	assert.Equal(t, "bakeries", rec.Categories[0].Alias)
	// No photos array: the single image URL stands in.
	assert.Equal(t, []string{"https://img.yelp.test/main.jpg"}, rec.PhotoURLs)
	assert.Equal(t, "7:00 AM - 3:00 PM", rec.Hours["Monday"])
}

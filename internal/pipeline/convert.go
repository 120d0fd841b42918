package pipeline

import (
	"context"

	"github.com/okanogan-digital/directory-cli/internal/model"
	"github.com/okanogan-digital/directory-cli/internal/normalize"
	"github.com/okanogan-digital/directory-cli/pkg/places"
	"github.com/okanogan-digital/directory-cli/pkg/socrata"
	"github.com/okanogan-digital/directory-cli/pkg/yelp"
)

// photoWidthPx is the rendered width requested for place photos.
const photoWidthPx = 800

func licenseName(l socrata.License) string {
	if l.LocationName != "" {
		return l.LocationName
	}
	return l.BusinessName
}

func licenseAddress(l socrata.License) string {
	if l.LocationAddress != "" {
		return l.LocationAddress
	}
	return l.BusinessAddress
}

// FoundationFromLicense builds the initial directory record from one license
// row. Name, address, and phone are normalized up front; everything else
// waits for the merge step.
func FoundationFromLicense(l socrata.License) model.Business {
	name := normalize.BusinessName(licenseName(l))
	address := normalize.Address(licenseAddress(l))

	return model.Business{
		ID:              model.DeriveID(l.LicenseNumber, name, address),
		Name:            name,
		Address:         address,
		Phone:           normalize.Phone(l.Phone),
		Category:        normalize.Category(""),
		LicenseStatus:   l.LicenseStatus,
		LicenseType:     l.LicenseType,
		LicenseNumber:   l.LicenseNumber,
		FirstIssueDate:  l.FirstIssueDate,
		LocationName:    l.LocationName,
		BusinessName:    l.BusinessName,
		LocationAddress: l.LocationAddress,
		BusinessAddress: l.BusinessAddress,
		SourceData:      map[string]any{"socrata": l},
	}
}

// applyLicense refreshes a record's provenance fields from a re-resolved
// license row. Empty fields on the match never blank out existing values.
func applyLicense(b *model.Business, l socrata.License) {
	if l.LicenseStatus != "" {
		b.LicenseStatus = l.LicenseStatus
	}
	if l.LicenseType != "" {
		b.LicenseType = l.LicenseType
	}
	if l.LicenseNumber != "" {
		b.LicenseNumber = l.LicenseNumber
	}
	if l.FirstIssueDate != "" {
		b.FirstIssueDate = l.FirstIssueDate
	}
	if b.SourceData == nil {
		b.SourceData = make(map[string]any)
	}
	b.SourceData["license"] = l
}

// placesRecord converts an API place into the merge-facing shape, resolving
// photo resource names to fetchable URLs.
func placesRecord(p *places.Place, c places.Client) *model.PlacesRecord {
	rec := &model.PlacesRecord{
		Name:             p.DisplayName.Text,
		FormattedAddress: p.FormattedAddress,
		Phone:            p.NationalPhone,
		Website:          p.WebsiteURI,
		Rating:           p.Rating,
		Types:            p.Types,
	}
	for _, photo := range p.Photos {
		if photo.Name == "" {
			continue
		}
		rec.PhotoURLs = append(rec.PhotoURLs, c.PhotoURL(photo.Name, photoWidthPx))
	}
	if p.OpeningHours != nil {
		rec.Hours = p.OpeningHours.WeekdayDescriptions
	}
	if p.Location != nil {
		rec.Coordinates = &model.Coordinates{
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
		}
	}
	return rec
}

// reviewsRecord converts a Yelp business into the merge-facing shape.
func reviewsRecord(b *yelp.Business) *model.ReviewsRecord {
	rec := &model.ReviewsRecord{
		Name:   b.Name,
		Phone:  b.DisplayPhone,
		URL:    b.URL,
		Rating: b.Rating,
	}
	if len(b.Location.DisplayAddress) > 0 {
		rec.DisplayAddress = joinDisplayAddress(b.Location.DisplayAddress)
	}
	for _, cat := range b.Categories {
		rec.Categories = append(rec.Categories, model.ReviewsCategory{
			Alias: cat.Alias,
			Title: cat.Title,
		})
	}
	switch {
	case len(b.Photos) > 0:
		rec.PhotoURLs = b.Photos
	case b.ImageURL != "":
		rec.PhotoURLs = []string{b.ImageURL}
	}
	if len(b.Hours) > 0 {
		rec.Hours = yelp.FlattenHours(b.Hours)
	}
	if b.Coordinates != nil {
		rec.Coordinates = &model.Coordinates{
			Latitude:  b.Coordinates.Latitude,
			Longitude: b.Coordinates.Longitude,
		}
	}
	return rec
}

func joinDisplayAddress(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}

// licenseSource adapts the Socrata client to the matcher's source contract.
type licenseSource struct {
	c socrata.Client
}

func (s licenseSource) ByKey(ctx context.Context, key string) (*socrata.License, error) {
	return s.c.SearchByKey(ctx, key)
}

func (s licenseSource) ByName(ctx context.Context, name string, limit int) ([]socrata.License, error) {
	return s.c.SearchByName(ctx, name, limit)
}

func (s licenseSource) ByLocation(ctx context.Context, city string, limit int) ([]socrata.License, error) {
	return s.c.SearchByLocation(ctx, city, limit)
}

// Package merge combines up to four per-source records for one logical
// business into a single directory record. The merge is a pure function:
// identical inputs always produce identical output, and the foundation
// record is never mutated.
package merge

import (
	"sort"
	"strings"

	"github.com/okanogan-digital/directory-cli/internal/geo"
	"github.com/okanogan-digital/directory-cli/internal/model"
	"github.com/okanogan-digital/directory-cli/internal/normalize"
	"github.com/okanogan-digital/directory-cli/internal/taxonomy"
)

// FeaturedRating is the minimum source rating that marks a business as
// featured.
const FeaturedRating = 4.5

// genericPlaceTypes are Google place types too vague to count as services.
var genericPlaceTypes = map[string]struct{}{
	"point_of_interest": {},
	"establishment":     {},
	"food":              {},
}

// Merger layers source records onto foundation businesses.
type Merger struct {
	tax    *taxonomy.Table
	bounds *geo.Bounds
}

// New creates a Merger. A nil taxonomy falls back to the compiled-in
// table; a nil bounds disables coordinate validation.
func New(tax *taxonomy.Table, bounds *geo.Bounds) *Merger {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Merger{tax: tax, bounds: bounds}
}

// Merge produces one merged business from the foundation record and up to
// three enrichment records. Any of places, reviews, and scraped may be
// nil. The foundation's license provenance fields pass through verbatim;
// sourceData is only ever added to.
func (m *Merger) Merge(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) model.Business {
	out := foundation.Clone()

	out.Name = m.mergeName(foundation, places, reviews)
	out.Description = m.mergeDescription(foundation, reviews, scraped)
	out.Address = m.mergeAddress(foundation, places, reviews, scraped)
	out.Phone = m.mergePhone(foundation, places, reviews, scraped)
	out.Email = m.mergeEmail(foundation, scraped)
	out.Website = m.mergeWebsite(foundation, places, reviews)
	if hours := mergeHours(places, reviews, scraped); hours != "" {
		out.Hours = hours
	}
	m.mergeCoordinates(&out, places, reviews)
	m.mergeCategory(&out, places, reviews)
	if img := mergeImage(places, reviews, scraped); img != "" {
		out.Image = img
	}
	if services := mergeServices(places, scraped); len(services) > 0 {
		out.Services = services
	}
	if scraped != nil && len(scraped.Products) > 0 {
		out.Products = dedupe(scraped.Products)
	}
	if scraped != nil && len(scraped.Social) > 0 {
		social := make(map[string]string, len(scraped.Social))
		for k, v := range scraped.Social {
			social[k] = v
		}
		out.Social = social
	}
	out.Tags = mergeTags(foundation, places, reviews)
	if (places != nil && places.Rating >= FeaturedRating) ||
		(reviews != nil && reviews.Rating >= FeaturedRating) {
		out.Featured = true
	}
	m.recordSources(&out, places, reviews, scraped)

	// Name and address are never both empty after a merge.
	if out.Name == "" {
		out.Name = normalize.BusinessName(foundation.Name)
	}
	if out.Address == "" {
		out.Address = normalize.Address(foundation.Address)
	}

	return out
}

func (m *Merger) mergeName(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord) string {
	candidates := []string{foundation.Name}
	if places != nil {
		candidates = append(candidates, places.Name)
	}
	if reviews != nil {
		candidates = append(candidates, reviews.Name)
	}
	return normalize.BusinessName(longest(candidates))
}

func (m *Merger) mergeDescription(foundation model.Business, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) string {
	var candidates []string
	if scraped != nil {
		candidates = append(candidates, scraped.Description)
	}
	if reviews != nil && len(reviews.Categories) > 0 {
		titles := make([]string, 0, len(reviews.Categories))
		for _, c := range reviews.Categories {
			titles = append(titles, c.Title)
		}
		candidates = append(candidates, strings.Join(titles, ", "))
	}
	candidates = append(candidates, foundation.Description)
	return longest(candidates)
}

func (m *Merger) mergeAddress(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) string {
	var candidates []string
	if places != nil {
		candidates = append(candidates, places.FormattedAddress)
	}
	if reviews != nil {
		candidates = append(candidates, reviews.DisplayAddress)
	}
	if scraped != nil {
		candidates = append(candidates, scraped.Address)
	}
	candidates = append(candidates, foundation.Address)
	return normalize.Address(first(candidates))
}

func (m *Merger) mergePhone(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) string {
	var candidates []string
	if places != nil {
		candidates = append(candidates, places.Phone)
	}
	if reviews != nil {
		candidates = append(candidates, reviews.Phone)
	}
	if scraped != nil {
		candidates = append(candidates, scraped.Phone)
	}
	candidates = append(candidates, foundation.Phone)
	return normalize.Phone(first(candidates))
}

func (m *Merger) mergeEmail(foundation model.Business, scraped *model.ScrapedRecord) string {
	if scraped != nil && scraped.Email != "" {
		return scraped.Email
	}
	return foundation.Email
}

func (m *Merger) mergeWebsite(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord) string {
	var candidates []string
	if places != nil {
		candidates = append(candidates, places.Website)
	}
	if reviews != nil {
		candidates = append(candidates, reviews.URL)
	}
	candidates = append(candidates, foundation.Website)
	return normalize.Website(first(candidates))
}

// weekdays orders review hours deterministically.
var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func mergeHours(places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) string {
	if places != nil && len(places.Hours) > 0 {
		return strings.Join(places.Hours, ", ")
	}
	if reviews != nil && len(reviews.Hours) > 0 {
		return flattenHourMap(reviews.Hours)
	}
	if scraped != nil {
		return scraped.Hours
	}
	return ""
}

// flattenHourMap renders a day->hours map as "Day: hours, Day: hours" in
// weekday order; unknown keys follow, sorted.
func flattenHourMap(hours map[string]string) string {
	var parts []string
	seen := make(map[string]struct{}, len(hours))
	for _, day := range weekdays {
		if h, ok := hours[day]; ok {
			parts = append(parts, day+": "+h)
			seen[day] = struct{}{}
		}
	}
	var rest []string
	for day := range hours {
		if _, ok := seen[day]; !ok {
			rest = append(rest, day)
		}
	}
	sort.Strings(rest)
	for _, day := range rest {
		parts = append(parts, day+": "+hours[day])
	}
	return strings.Join(parts, ", ")
}

func (m *Merger) mergeCoordinates(out *model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord) {
	var coords *model.Coordinates
	switch {
	case places != nil && places.Coordinates != nil:
		coords = places.Coordinates
	case reviews != nil && reviews.Coordinates != nil:
		coords = reviews.Coordinates
	default:
		return // foundation coordinates, if any, survive via the base copy
	}
	if m.bounds != nil && !m.bounds.Contains(coords.Latitude, coords.Longitude) {
		return // bad geocode from the source, keep what we had
	}
	c := *coords
	out.Coordinates = &c
}

func (m *Merger) mergeCategory(out *model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord) {
	if reviews != nil && len(reviews.Categories) > 0 {
		primary := reviews.Categories[0]
		mapped := m.tax.FromYelp(primary.Alias)
		if mapped == "" {
			mapped = m.tax.FromYelp(primary.Title)
		}
		if mapped != "" {
			out.Category = mapped
		}
		if len(reviews.Categories) > 1 {
			out.Subcategory = reviews.Categories[1].Title
		}
		return
	}
	if places != nil && len(places.Types) > 0 {
		if mapped := m.tax.FromGoogle(places.Types[0]); mapped != "" {
			out.Category = mapped
		}
	}
}

func mergeImage(places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) string {
	if places != nil && len(places.PhotoURLs) > 0 {
		return places.PhotoURLs[0]
	}
	if reviews != nil && len(reviews.PhotoURLs) > 0 {
		return reviews.PhotoURLs[0]
	}
	if scraped != nil && len(scraped.ImageURLs) > 0 {
		return scraped.ImageURLs[0]
	}
	return ""
}

func mergeServices(places *model.PlacesRecord, scraped *model.ScrapedRecord) []string {
	var services []string
	if scraped != nil {
		services = append(services, scraped.Services...)
	}
	if places != nil {
		for _, t := range places.Types {
			if _, generic := genericPlaceTypes[t]; generic {
				continue
			}
			services = append(services, strings.ReplaceAll(t, "_", " "))
		}
	}
	return dedupe(services)
}

func mergeTags(foundation model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord) []string {
	tags := append([]string(nil), foundation.Tags...)
	if reviews != nil {
		for _, c := range reviews.Categories {
			tags = append(tags, c.Alias, strings.ToLower(c.Title))
		}
	}
	if places != nil {
		for _, t := range places.Types {
			tags = append(tags, strings.ReplaceAll(t, "_", " "))
		}
	}
	if foundation.LicenseType != "" {
		tags = append(tags, strings.ToLower(foundation.LicenseType))
	}
	if foundation.LicenseStatus != "" {
		tags = append(tags, strings.ToLower(foundation.LicenseStatus))
	}
	return dedupe(tags)
}

func (m *Merger) recordSources(out *model.Business, places *model.PlacesRecord, reviews *model.ReviewsRecord, scraped *model.ScrapedRecord) {
	add := func(key string, v any) {
		if out.SourceData == nil {
			out.SourceData = make(map[string]any, 3)
		}
		out.SourceData[key] = v
	}
	if places != nil {
		add("places", *places)
	}
	if reviews != nil {
		add("reviews", *reviews)
	}
	if scraped != nil {
		add("scraped", *scraped)
	}
}

// longest returns the longest non-empty candidate, first wins ties.
func longest(candidates []string) string {
	best := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// first returns the first non-empty candidate.
func first(candidates []string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// dedupe removes duplicate strings (case-sensitive) preserving first
// occurrence order. Empty strings are dropped.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

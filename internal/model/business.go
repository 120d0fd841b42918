// Package model defines the canonical business record and the per-source
// record shapes consumed by the merge step.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Business is the canonical unit of directory data. A record is created
// fresh per enrichment run from the foundation source and never mutated in
// place during merge; each merge step produces a new record layered on the
// previous one.
type Business struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`

	Address     string       `json:"address,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Email       string       `json:"email,omitempty"`
	Website     string       `json:"website,omitempty"`
	Hours       string       `json:"hours,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Image       string       `json:"image,omitempty"`

	Services []string          `json:"services,omitempty"`
	Products []string          `json:"products,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Social   map[string]string `json:"social_media,omitempty"`

	Featured bool `json:"featured,omitempty"`

	// License provenance, preserved verbatim from the foundation source
	// through every merge.
	LicenseStatus   string `json:"license_status,omitempty"`
	LicenseType     string `json:"license_type,omitempty"`
	LicenseNumber   string `json:"license_number,omitempty"`
	FirstIssueDate  string `json:"first_issue_date,omitempty"`
	LocationName    string `json:"location_name,omitempty"`
	BusinessName    string `json:"business_name,omitempty"`
	LocationAddress string `json:"location_address,omitempty"`
	BusinessAddress string `json:"business_address,omitempty"`

	// SourceData preserves raw per-source payloads for audit. Additive
	// only: later merges augment, never delete, earlier provenance.
	SourceData map[string]any `json:"source_data,omitempty"`
}

// DeriveID returns a stable identifier for a business. License numbers win
// when present; otherwise a content hash of name+address keeps re-runs
// stable for the same logical business.
func DeriveID(licenseNumber, name, address string) string {
	if licenseNumber != "" {
		return "lic-" + licenseNumber
	}
	sum := sha256.Sum256([]byte(strings.ToLower(name) + "|" + strings.ToLower(address)))
	return "biz-" + hex.EncodeToString(sum[:8])
}

// Clone returns a deep copy of the business. Merge steps layer onto a
// clone so the input record is never mutated.
func (b Business) Clone() Business {
	out := b
	if b.Coordinates != nil {
		c := *b.Coordinates
		out.Coordinates = &c
	}
	out.Services = append([]string(nil), b.Services...)
	out.Products = append([]string(nil), b.Products...)
	out.Tags = append([]string(nil), b.Tags...)
	if b.Social != nil {
		out.Social = make(map[string]string, len(b.Social))
		for k, v := range b.Social {
			out.Social[k] = v
		}
	}
	if b.SourceData != nil {
		out.SourceData = make(map[string]any, len(b.SourceData))
		for k, v := range b.SourceData {
			out.SourceData[k] = v
		}
	}
	return out
}

// PlacesRecord is the subset of a Google Places result consumed by the
// merger.
type PlacesRecord struct {
	Name             string       `json:"name"`
	FormattedAddress string       `json:"formatted_address"`
	Phone            string       `json:"phone,omitempty"`
	Website          string       `json:"website,omitempty"`
	Rating           float64      `json:"rating,omitempty"`
	Types            []string     `json:"types,omitempty"`
	PhotoURLs        []string     `json:"photo_urls,omitempty"`
	Hours            []string     `json:"hours,omitempty"` // "Monday: 9 AM – 5 PM" lines
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
}

// ReviewsCategory is a category as reported by the reviews source.
type ReviewsCategory struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// ReviewsRecord is the subset of a Yelp business consumed by the merger.
type ReviewsRecord struct {
	Name           string            `json:"name"`
	DisplayAddress string            `json:"display_address"`
	Phone          string            `json:"phone,omitempty"`
	URL            string            `json:"url,omitempty"`
	Rating         float64           `json:"rating,omitempty"`
	Categories     []ReviewsCategory `json:"categories,omitempty"`
	PhotoURLs      []string          `json:"photo_urls,omitempty"`
	Hours          map[string]string `json:"hours,omitempty"` // day -> "9:00 AM - 5:00 PM"
	Coordinates    *Coordinates      `json:"coordinates,omitempty"`
}

// ScrapedRecord holds fields extracted from a business's own website.
type ScrapedRecord struct {
	Description string            `json:"description,omitempty"`
	Address     string            `json:"address,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	Hours       string            `json:"hours,omitempty"`
	Services    []string          `json:"services,omitempty"`
	Products    []string          `json:"products,omitempty"`
	Social      map[string]string `json:"social_media,omitempty"`
	ImageURLs   []string          `json:"image_urls,omitempty"`
}

// RunStatus represents the state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded enrichment run.
type Run struct {
	ID          string       `json:"id"`
	Zip         string       `json:"zip"`
	Status      RunStatus    `json:"status"`
	Businesses  int          `json:"businesses"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

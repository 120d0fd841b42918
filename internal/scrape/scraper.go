// Package scrape fetches a business's own website and extracts directory
// fields (email, phone, description, social links) from the HTML.
package scrape

import (
	"context"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

// Scraper fetches a single URL and extracts business fields.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.ScrapedRecord, error)
	Name() string
}

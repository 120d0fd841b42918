// Package match selects the best candidate record for a target business
// from one external source's result pool.
package match

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/okanogan-digital/directory-cli/internal/normalize"
	"github.com/okanogan-digital/directory-cli/internal/similarity"
)

// Config holds matcher tuning knobs.
type Config struct {
	// MaxCandidates caps how many name-search results are scored.
	MaxCandidates int
	// AddressThreshold is the minimum address-overlap score for a
	// name-searched candidate to count as a confident match.
	AddressThreshold float64
	// NameThreshold is the minimum name-overlap score for a
	// location-searched candidate. Higher than AddressThreshold because
	// location search casts a much wider net.
	NameThreshold float64
}

// DefaultConfig returns the standard matcher thresholds.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:    5,
		AddressThreshold: 0.5,
		NameThreshold:    0.7,
	}
}

// Source is one external system that can be queried for candidates.
type Source[T any] interface {
	// ByKey looks up a record by a stable external key. A nil result
	// with nil error means no record for that key.
	ByKey(ctx context.Context, key string) (*T, error)
	// ByName searches records by business name.
	ByName(ctx context.Context, name string, limit int) ([]T, error)
	// ByLocation searches records by city.
	ByLocation(ctx context.Context, city string, limit int) ([]T, error)
}

// Target identifies the business being matched.
type Target struct {
	// Key is a stable external key (license number) when the target
	// carries one; empty otherwise.
	Key     string
	Name    string
	Address string
}

// Matcher finds the best candidate from a Source for a target business.
// Name and Address extract the comparable fields from a candidate.
type Matcher[T any] struct {
	source  Source[T]
	name    func(T) string
	address func(T) string
	cfg     Config
}

// New creates a Matcher over a source with the given field accessors.
func New[T any](source Source[T], name, address func(T) string, cfg Config) *Matcher[T] {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Matcher[T]{source: source, name: name, address: address, cfg: cfg}
}

// Find runs the match strategy chain. A nil result with nil error means
// no match, which is a normal outcome, not a failure. Source errors are
// logged and treated as an empty result for that strategy; the chain
// continues to the next one.
func (m *Matcher[T]) Find(ctx context.Context, target Target) *T {
	log := zap.L().With(zap.String("target", target.Name))

	// Strategy 1: direct key lookup short-circuits everything else.
	if target.Key != "" {
		hit, err := m.source.ByKey(ctx, target.Key)
		if err != nil {
			log.Warn("match: key lookup failed", zap.String("key", target.Key), zap.Error(err))
		} else if hit != nil {
			return hit
		}
	}

	targetAddr := normalize.Address(target.Address)

	// Strategy 2: name search scored by address overlap.
	candidates, err := m.source.ByName(ctx, normalize.BusinessName(target.Name), m.cfg.MaxCandidates)
	if err != nil {
		log.Warn("match: name search failed", zap.Error(err))
		candidates = nil
	}
	if len(candidates) > 0 {
		best := -1
		bestScore := 0.0
		for i, c := range candidates {
			score := similarity.WordOverlap(targetAddr, normalize.Address(m.address(c)))
			// Strictly greater keeps the first-encountered candidate on ties.
			if best < 0 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if bestScore > m.cfg.AddressThreshold {
			return &candidates[best]
		}
		// Best-effort: no candidate cleared the bar, take the first
		// name-matched one rather than giving up.
		log.Debug("match: below address threshold, using first name match",
			zap.Float64("best_score", bestScore))
		return &candidates[0]
	}

	// Strategy 3: location search scored by name overlap.
	city := CityFromAddress(target.Address)
	if city == "" {
		return nil
	}
	candidates, err = m.source.ByLocation(ctx, city, m.cfg.MaxCandidates)
	if err != nil {
		log.Warn("match: location search failed", zap.String("city", city), zap.Error(err))
		return nil
	}
	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := similarity.WordOverlap(normalize.BusinessName(target.Name), normalize.BusinessName(m.name(c)))
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best >= 0 && bestScore > m.cfg.NameThreshold {
		return &candidates[best]
	}
	return nil
}

// CityFromAddress derives a city from a comma-separated address by taking
// the second segment. Returns "" when the address has no second segment.
func CityFromAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

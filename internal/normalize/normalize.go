// Package normalize standardizes address, phone, name, category, and
// website strings into the canonical forms used throughout the directory.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TownSuffix is the deployment's fixed town/state/ZIP tail appended to
// addresses that don't already carry it. The state is spelled out so the
// suffix matches what abbreviation expansion produces and re-normalizing
// an already-suffixed address is a no-op.
const TownSuffix = "Tonasket, Washington 98855"

// DefaultCategory is assigned when a business carries no usable category.
const DefaultCategory = "Services"

var multiSpace = regexp.MustCompile(`\s{2,}`)

// abbreviations maps whole-word street abbreviations to their expansions.
// Matching is case-insensitive; trailing periods on the abbreviation are
// tolerated ("St." == "St").
var abbreviations = map[string]string{
	"st":   "Street",
	"rd":   "Road",
	"ave":  "Avenue",
	"blvd": "Boulevard",
	"ln":   "Lane",
	"dr":   "Drive",
	"hwy":  "Highway",
	"apt":  "Apartment",
	"ste":  "Suite",
	"n":    "North",
	"s":    "South",
	"e":    "East",
	"w":    "West",
	"wa":   "Washington",
}

// Address collapses whitespace, expands street abbreviations by whole-word
// match, and appends the town suffix when not already present. Always
// returns a string; empty input yields an empty string.
func Address(raw string) string {
	trimmed := strings.TrimSpace(multiSpace.ReplaceAllString(raw, " "))
	if trimmed == "" {
		return ""
	}

	words := strings.Split(trimmed, " ")
	for i, w := range words {
		key := strings.ToLower(strings.TrimSuffix(w, "."))
		if full, ok := abbreviations[key]; ok {
			words[i] = full
		}
	}
	addr := strings.Join(words, " ")

	// Suffix at most once, even when normalizing our own output. The town
	// name alone is enough to treat the tail as already present.
	if !strings.Contains(strings.ToLower(addr), "tonasket") {
		addr += ", " + TownSuffix
	}
	return addr
}

var nonDigit = regexp.MustCompile(`\D`)

// Phone strips non-digits and formats 10-digit (or 11-digit with leading 1)
// numbers as "(XXX) XXX-XXXX". Anything else is returned unchanged; the
// fallback is explicit, not an error.
func Phone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return raw
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// corporateSuffixes re-fixes casing that title-casing mangles.
var corporateSuffixes = map[string]string{
	"Llc":  "LLC",
	"Inc":  "Inc.",
	"Corp": "Corp.",
	"Ltd":  "Ltd.",
	"Llp":  "LLP",
	"Pllc": "PLLC",
}

var titleCaser = cases.Title(language.AmericanEnglish)

// BusinessName collapses whitespace, title-cases each word, then restores
// known corporate-suffix casing (LLC, Inc., Corp., Ltd., LLP, PLLC).
func BusinessName(raw string) string {
	trimmed := strings.TrimSpace(multiSpace.ReplaceAllString(raw, " "))
	if trimmed == "" {
		return ""
	}

	words := strings.Split(trimmed, " ")
	for i, w := range words {
		word := titleCaser.String(strings.ToLower(w))
		bare := strings.TrimSuffix(word, ".")
		if fixed, ok := corporateSuffixes[bare]; ok {
			word = fixed
		}
		words[i] = word
	}
	return strings.Join(words, " ")
}

// Website adds https:// when no protocol is present and strips one
// trailing slash.
func Website(raw string) string {
	site := strings.TrimSpace(raw)
	if site == "" {
		return ""
	}
	if !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
		site = "https://" + site
	}
	return strings.TrimSuffix(site, "/")
}

// categoryKeywords maps lowercase keywords to app categories. First match
// by substring wins; iteration is over the ordered slice so results are
// deterministic.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"restaurant", "Food & Dining"},
	{"cafe", "Food & Dining"},
	{"coffee", "Food & Dining"},
	{"bakery", "Food & Dining"},
	{"food", "Food & Dining"},
	{"bar", "Food & Dining"},
	{"brewery", "Food & Dining"},
	{"grocery", "Retail"},
	{"store", "Retail"},
	{"shop", "Retail"},
	{"market", "Retail"},
	{"retail", "Retail"},
	{"hardware", "Retail"},
	{"salon", "Services"},
	{"repair", "Services"},
	{"auto", "Services"},
	{"bank", "Services"},
	{"insurance", "Services"},
	{"real estate", "Services"},
	{"legal", "Services"},
	{"clinic", "Healthcare"},
	{"medical", "Healthcare"},
	{"dental", "Healthcare"},
	{"pharmacy", "Healthcare"},
	{"hospital", "Healthcare"},
	{"health", "Healthcare"},
	{"farm", "Agriculture"},
	{"orchard", "Agriculture"},
	{"ranch", "Agriculture"},
	{"nursery", "Agriculture"},
	{"feed", "Agriculture"},
}

// Category substring-matches the input against the keyword table. Falls
// back to the input unchanged when nothing matches, or to DefaultCategory
// when the input is empty.
func Category(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultCategory
	}
	lower := strings.ToLower(trimmed)
	for _, kc := range categoryKeywords {
		if strings.Contains(lower, kc.keyword) {
			return kc.category
		}
	}
	return trimmed
}

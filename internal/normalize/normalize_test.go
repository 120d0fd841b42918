package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress_ExpandsAbbreviations(t *testing.T) {
	got := Address("123 Main St")
	assert.Contains(t, got, "Street")
	assert.Contains(t, got, "Tonasket, Washington 98855")
}

func TestAddress_SuffixAppendedOnce(t *testing.T) {
	once := Address("123 Main St")
	twice := Address(once)
	assert.Equal(t, 1, strings.Count(twice, "98855"))
	assert.Equal(t, 1, strings.Count(twice, "Tonasket"))
}

func TestAddress_CanonicalFormIsFixedPoint(t *testing.T) {
	// Suffixed addresses and addresses arriving with the abbreviated state
	// must converge on one spelling, or re-normalizing a merged address
	// would keep rewriting it.
	canonical := "5 Main Street, " + TownSuffix
	assert.Equal(t, canonical, Address(canonical))
	assert.Equal(t, canonical, Address("5 Main Street, Tonasket, WA 98855"))
	assert.Equal(t, canonical, Address("5 Main St"))
}

func TestAddress_WholeWordOnly(t *testing.T) {
	// "Stone" must not become "Streetone".
	got := Address("12 Stone Way")
	assert.Contains(t, got, "Stone")
	assert.NotContains(t, got, "Streetone")
}

func TestAddress_Directionals(t *testing.T) {
	got := Address("410 S Whitcomb Ave")
	assert.Contains(t, got, "South")
	assert.Contains(t, got, "Avenue")
}

func TestAddress_TrailingPeriod(t *testing.T) {
	assert.Contains(t, Address("5 Oak St."), "Street")
}

func TestAddress_Empty(t *testing.T) {
	assert.Equal(t, "", Address(""))
	assert.Equal(t, "", Address("   "))
}

func TestPhone_TenDigits(t *testing.T) {
	assert.Equal(t, "(509) 555-1234", Phone("5095551234"))
	assert.Equal(t, "(509) 555-1234", Phone("509.555.1234"))
	assert.Equal(t, "(509) 555-1234", Phone("(509) 555-1234"))
}

func TestPhone_ElevenDigitsLeadingOne(t *testing.T) {
	assert.Equal(t, "(509) 555-1234", Phone("15095551234"))
	assert.Equal(t, "(509) 555-1234", Phone("+1 509 555 1234"))
}

func TestPhone_FallbackUnchanged(t *testing.T) {
	assert.Equal(t, "123", Phone("123"))
	assert.Equal(t, "", Phone(""))
	assert.Equal(t, "25095551234", Phone("25095551234"))
}

func TestBusinessName_TitleCase(t *testing.T) {
	assert.Equal(t, "Joe's Bakery", BusinessName("joe's bakery"))
	assert.Equal(t, "Main Street Market", BusinessName("MAIN  STREET   MARKET"))
}

func TestBusinessName_CorporateSuffixes(t *testing.T) {
	assert.Equal(t, "Okanogan Electric LLC", BusinessName("okanogan electric llc"))
	assert.Equal(t, "Tonasket Hardware Inc.", BusinessName("TONASKET HARDWARE INC"))
	assert.Equal(t, "Valley Law PLLC", BusinessName("valley law pllc"))
	assert.Equal(t, "North Farms Ltd.", BusinessName("north farms ltd"))
}

func TestWebsite(t *testing.T) {
	assert.Equal(t, "https://example.com", Website("example.com"))
	assert.Equal(t, "https://example.com", Website("https://example.com/"))
	assert.Equal(t, "http://example.com", Website("http://example.com"))
	assert.Equal(t, "", Website(""))
}

func TestCategory_KeywordMatch(t *testing.T) {
	assert.Equal(t, "Food & Dining", Category("Mexican Restaurant"))
	assert.Equal(t, "Retail", Category("grocery outlet"))
	assert.Equal(t, "Healthcare", Category("Family Dental Practice"))
	assert.Equal(t, "Agriculture", Category("Apple Orchard"))
}

func TestCategory_Fallbacks(t *testing.T) {
	assert.Equal(t, "Services", Category(""))
	assert.Equal(t, "Taxidermy", Category("Taxidermy"))
}

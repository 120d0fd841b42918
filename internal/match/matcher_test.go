package match

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type candidate struct {
	Key     string
	Name    string
	Address string
}

type stubSource struct {
	byKey      map[string]candidate
	byName     []candidate
	byNameErr  error
	byLocation []candidate
	byLocErr   error

	keyCalls, nameCalls, locationCalls int
}

func (s *stubSource) ByKey(_ context.Context, key string) (*candidate, error) {
	s.keyCalls++
	if c, ok := s.byKey[key]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *stubSource) ByName(_ context.Context, _ string, _ int) ([]candidate, error) {
	s.nameCalls++
	return s.byName, s.byNameErr
}

func (s *stubSource) ByLocation(_ context.Context, _ string, _ int) ([]candidate, error) {
	s.locationCalls++
	return s.byLocation, s.byLocErr
}

func newMatcher(s *stubSource) *Matcher[candidate] {
	return New(s,
		func(c candidate) string { return c.Name },
		func(c candidate) string { return c.Address },
		DefaultConfig(),
	)
}

func TestFind_KeyHitShortCircuits(t *testing.T) {
	s := &stubSource{
		byKey:  map[string]candidate{"603123456": {Key: "603123456", Name: "Joe's Bakery"}},
		byName: []candidate{{Name: "Decoy"}},
	}
	got := newMatcher(s).Find(context.Background(), Target{Key: "603123456", Name: "Joe's Bakery"})
	require.NotNil(t, got)
	assert.Equal(t, "603123456", got.Key)
	assert.Equal(t, 0, s.nameCalls)
}

func TestFind_KeyMissFallsThroughToName(t *testing.T) {
	s := &stubSource{
		byKey:  map[string]candidate{},
		byName: []candidate{{Name: "Joe's Bakery", Address: "5 Main Street, Tonasket, WA 98855"}},
	}
	got := newMatcher(s).Find(context.Background(), Target{
		Key: "nope", Name: "Joe's Bakery", Address: "5 Main St",
	})
	require.NotNil(t, got)
	assert.Equal(t, 1, s.keyCalls)
	assert.Equal(t, 1, s.nameCalls)
}

func TestFind_SelectsHighestAddressScore(t *testing.T) {
	s := &stubSource{
		byName: []candidate{
			{Name: "A", Address: "900 Elm Road, Omak"},
			{Name: "B", Address: "100 Oak Street, Tonasket, WA 98855"},
		},
	}
	got := newMatcher(s).Find(context.Background(), Target{Name: "Oak Outfitters", Address: "100 Oak St"})
	require.NotNil(t, got)
	assert.Equal(t, "B", got.Name)
}

func TestFind_BelowThresholdFallsBackToFirst(t *testing.T) {
	s := &stubSource{
		byName: []candidate{
			{Name: "First", Address: "nowhere near anything"},
			{Name: "Second", Address: "also unrelated entirely"},
		},
	}
	got := newMatcher(s).Find(context.Background(), Target{Name: "Oak Outfitters", Address: "100 Oak St"})
	require.NotNil(t, got)
	assert.Equal(t, "First", got.Name)
}

func TestFind_TieKeepsFirstCandidate(t *testing.T) {
	s := &stubSource{
		byName: []candidate{
			{Name: "First", Address: "100 Oak Street, Tonasket, WA 98855"},
			{Name: "Second", Address: "100 Oak Street, Tonasket, WA 98855"},
		},
	}
	got := newMatcher(s).Find(context.Background(), Target{Name: "Oak Outfitters", Address: "100 Oak St"})
	require.NotNil(t, got)
	assert.Equal(t, "First", got.Name)
}

func TestFind_LocationSearchByNameScore(t *testing.T) {
	s := &stubSource{
		byLocation: []candidate{
			{Name: "Unrelated Feed Supply"},
			{Name: "Joe's Bakery LLC", Address: "5 Main Street"},
		},
	}
	got := newMatcher(s).Find(context.Background(), Target{
		Name: "Joe's Bakery", Address: "5 Main St, Tonasket, WA 98855",
	})
	require.NotNil(t, got)
	assert.Equal(t, "Joe's Bakery LLC", got.Name)
	assert.Equal(t, 1, s.locationCalls)
}

func TestFind_LocationBelowThresholdIsNoMatch(t *testing.T) {
	s := &stubSource{
		byLocation: []candidate{{Name: "Totally Different Business"}},
	}
	got := newMatcher(s).Find(context.Background(), Target{
		Name: "Joe's Bakery", Address: "5 Main St, Tonasket, WA 98855",
	})
	assert.Nil(t, got)
}

func TestFind_NoCityMeansNoLocationSearch(t *testing.T) {
	s := &stubSource{}
	got := newMatcher(s).Find(context.Background(), Target{Name: "Joe's Bakery", Address: "5 Main St"})
	assert.Nil(t, got)
	assert.Equal(t, 0, s.locationCalls)
}

func TestFind_SourceErrorsAreNotFatal(t *testing.T) {
	s := &stubSource{
		byNameErr: eris.New("socrata: status 503"),
		byLocErr:  eris.New("socrata: status 503"),
	}
	got := newMatcher(s).Find(context.Background(), Target{
		Name: "Joe's Bakery", Address: "5 Main St, Tonasket, WA 98855",
	})
	assert.Nil(t, got)
}

func TestCityFromAddress(t *testing.T) {
	assert.Equal(t, "Tonasket", CityFromAddress("5 Main St, Tonasket, WA 98855"))
	assert.Equal(t, "", CityFromAddress("5 Main St"))
	assert.Equal(t, "", CityFromAddress(""))
}

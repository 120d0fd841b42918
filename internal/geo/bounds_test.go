package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceArea_ContainsTonasket(t *testing.T) {
	// Downtown Tonasket.
	assert.True(t, ServiceArea().Contains(48.705, -119.439))
}

func TestServiceArea_ExcludesSeattle(t *testing.T) {
	assert.False(t, ServiceArea().Contains(47.608, -122.335))
}

func TestNewBounds_Edges(t *testing.T) {
	b := NewBounds(48.0, -120.0, 49.0, -119.0)
	assert.True(t, b.Contains(48.0, -120.0))
	assert.True(t, b.Contains(49.0, -119.0))
	assert.False(t, b.Contains(47.999, -119.5))
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func box(xmin, ymin, xmax, ymax float64) *geos.Geom {
	return geos.NewPolygon([][][]float64{{
		{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax}, {xmin, ymin},
	}})
}

func TestSpatialIndexQuery(t *testing.T) {
	index := NewSpatialIndex(10)
	index.Add(box(0, 0, 5, 5), 0)
	index.Add(box(100, 100, 105, 105), 1)
	index.Add(box(3, 3, 12, 12), 2)
	require.Equal(t, 3, index.Len())

	near := box(0, 0, 8, 8)
	candidates := index.Query(near.Bounds())

	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Index)
	}
	assert.Contains(t, ids, 0)
	assert.Contains(t, ids, 2)
	assert.NotContains(t, ids, 1)
}

func TestSpatialIndexQueryDeduplicates(t *testing.T) {
	index := NewSpatialIndex(1)
	// Spans many hash cells; must still come back once.
	index.Add(box(0, 0, 20, 20), 0)

	candidates := index.Query(box(0, 0, 20, 20).Bounds())
	assert.Len(t, candidates, 1)
}

func TestSpatialIndexIgnoresNil(t *testing.T) {
	index := NewSpatialIndex(10)
	index.Add(nil, 0)
	assert.Equal(t, 0, index.Len())
	assert.Empty(t, index.Query(box(0, 0, 1, 1).Bounds()))
}

func TestRoundCoord(t *testing.T) {
	x, y := RoundCoord(1.123456789, -2.987654321)
	assert.Equal(t, 1.1234568, x)
	assert.Equal(t, -2.9876543, y)
}

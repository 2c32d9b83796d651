package planner

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/mitchalbert/go-conservation-planner/utils"
)

func TestBuildGridRejectsBadParameters(t *testing.T) {
	valid := NewBoundingBox(0, 0, 100, 100)

	_, err := BuildGrid(valid, 0, "EPSG:3857")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildGrid(valid, -25, "EPSG:3857")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildGrid(NewBoundingBox(10, 0, 10, 100), 50, "EPSG:3857")
	assert.ErrorIs(t, err, ErrInvalidParameter, "zero-width box must be rejected")

	_, err = BuildGrid(NewBoundingBox(0, 42, 100, 42), 50, "EPSG:3857")
	assert.ErrorIs(t, err, ErrInvalidParameter, "zero-height box must be rejected")
}

func TestBuildGridHexagonGeometry(t *testing.T) {
	const cellArea = 100.0
	grid, err := BuildGrid(NewBoundingBox(0, 0, 100, 100), cellArea, "EPSG:3857")
	require.NoError(t, err)
	require.NotEmpty(t, grid.Cells)

	for _, cell := range grid.Cells {
		ring := cell.Geom.ExteriorRing().CoordSeq()
		// 6 vertices plus the closing point.
		assert.Equal(t, 7, ring.Size(), "PUID %d", cell.PUID)
		assert.InDelta(t, cellArea, cell.Geom.Area(), 1e-6, "PUID %d", cell.PUID)
	}
}

func TestBuildGridPUIDsAreDense(t *testing.T) {
	grid, err := BuildGrid(NewBoundingBox(-50, -50, 50, 50), 200, "EPSG:3857")
	require.NoError(t, err)

	for i, cell := range grid.Cells {
		assert.Equal(t, i+1, cell.PUID)
	}
}

func TestBuildGridCoversBoundingBox(t *testing.T) {
	grid, err := BuildGrid(NewBoundingBox(0, 0, 60, 60), 120, "EPSG:3857")
	require.NoError(t, err)

	// Every sample point inside the box must fall within some cell (or on a
	// shared boundary).
	for x := 1.0; x < 60; x += 7 {
		for y := 1.0; y < 60; y += 7 {
			probe := geos.NewPolygon([][][]float64{{
				{x - 0.01, y - 0.01}, {x + 0.01, y - 0.01},
				{x + 0.01, y + 0.01}, {x - 0.01, y + 0.01},
				{x - 0.01, y - 0.01},
			}})
			covered := false
			for _, cell := range grid.Cells {
				if cell.Geom.Intersects(probe) {
					covered = true
					break
				}
			}
			assert.True(t, covered, "point (%v, %v) not covered by any cell", x, y)
		}
	}
}

func TestBuildGridNeighborsShareOneEdge(t *testing.T) {
	const cellArea = 100.0
	grid, err := BuildGrid(NewBoundingBox(0, 0, 60, 60), cellArea, "EPSG:3857")
	require.NoError(t, err)
	require.NotEmpty(t, grid.Cells)

	// Neighboring cells agree on shared vertices only to within a few ulps,
	// so cells are normalized the same way layer ingestion rounds
	// coordinates before the exact overlay.
	cells := make([]*geos.Geom, len(grid.Cells))
	for i, cell := range grid.Cells {
		ring := cell.Geom.ExteriorRing().CoordSeq()
		coords := make([][]float64, ring.Size())
		for j := 0; j < ring.Size(); j++ {
			x, y := utils.RoundCoord(ring.X(j), ring.Y(j))
			coords[j] = []float64{x, y}
		}
		cells[i] = geos.NewPolygon([][][]float64{coords})
	}

	// Any two touching hexagons meet along exactly one full edge: the
	// intersection is 1-dimensional with the tiling's edge length.
	shared := 0
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			if !cells[i].Intersects(cells[j]) {
				continue
			}
			intersection := cells[i].Intersection(cells[j])
			require.NotNil(t, intersection)
			assert.InDelta(t, 0, intersection.Area(), 1e-9, "cells %d and %d overlap", i+1, j+1)
			assert.InDelta(t, grid.Edge, intersection.Length(), 1e-5, "cells %d and %d", i+1, j+1)
			shared++
			intersection.Destroy()
		}
	}
	assert.Greater(t, shared, len(grid.Cells), "interior cells must each touch several neighbors")
}

func TestBuildGridIsDeterministic(t *testing.T) {
	bbox := NewBoundingBox(12.5, -3.25, 180, 96)

	first, err := BuildGrid(bbox, 333, "EPSG:3857")
	require.NoError(t, err)
	second, err := BuildGrid(bbox, 333, "EPSG:3857")
	require.NoError(t, err)

	require.Equal(t, len(first.Cells), len(second.Cells))
	for i := range first.Cells {
		assert.Equal(t, first.Cells[i].PUID, second.Cells[i].PUID)
		a := first.Cells[i].Geom.ExteriorRing().CoordSeq()
		b := second.Cells[i].Geom.ExteriorRing().CoordSeq()
		require.Equal(t, a.Size(), b.Size())
		for j := 0; j < a.Size(); j++ {
			assert.Equal(t, a.X(j), b.X(j))
			assert.Equal(t, a.Y(j), b.Y(j))
		}
	}
}

func TestBuildGridOrderingIsColumnMajor(t *testing.T) {
	grid, err := BuildGrid(NewBoundingBox(0, 0, 40, 40), 80, "EPSG:3857")
	require.NoError(t, err)
	require.Greater(t, len(grid.Cells), 2)

	prevX := math.Inf(-1)
	prevY := math.Inf(-1)
	for _, cell := range grid.Cells {
		bounds := cell.Geom.Bounds()
		cx := (bounds.MinX + bounds.MaxX) / 2
		cy := (bounds.MinY + bounds.MaxY) / 2
		if cx > prevX+1e-9 {
			// New column: x advanced, rows restart.
			prevX = cx
			prevY = math.Inf(-1)
		} else {
			assert.InDelta(t, prevX, cx, 1e-9, "columns must not move backwards")
		}
		assert.Greater(t, cy, prevY, "rows must ascend within a column")
		prevY = cy
	}
}

func TestBuildGridEdgeLength(t *testing.T) {
	const cellArea = 250.0
	grid, err := BuildGrid(NewBoundingBox(0, 0, 100, 100), cellArea, "EPSG:3857")
	require.NoError(t, err)

	want := math.Sqrt(cellArea / (3 * math.Sqrt(3) / 2))
	assert.InDelta(t, want, grid.Edge, 1e-12)
	assert.InDelta(t, cellArea, 3*math.Sqrt(3)/2*grid.Edge*grid.Edge, 1e-9)
}

func TestBuildGridErrorLeavesNoGrid(t *testing.T) {
	grid, err := BuildGrid(NewBoundingBox(0, 0, 10, 10), -1, "EPSG:3857")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Nil(t, grid)
}

package utils

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geos"
)

// SpatialIndex is a uniform hash grid over geometry bounding boxes. It
// answers "which geometries might touch this extent" without testing every
// geometry; callers follow up with a precise predicate.
type SpatialIndex struct {
	geometries []*IndexedGeometry
	cellSize   float64
	grid       map[string][]*IndexedGeometry
}

// IndexedGeometry pairs a geometry with its position in the caller's slice.
type IndexedGeometry struct {
	Geom  *geos.Geom
	Index int
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		geometries: make([]*IndexedGeometry, 0),
		cellSize:   cellSize,
		grid:       make(map[string][]*IndexedGeometry),
	}
}

// Add registers a geometry under every hash cell its bounds touch.
func (si *SpatialIndex) Add(geom *geos.Geom, index int) {
	if geom == nil {
		return
	}
	bounds := geom.Bounds()
	if bounds == nil {
		return
	}

	indexed := &IndexedGeometry{Geom: geom, Index: index}
	si.geometries = append(si.geometries, indexed)

	minCellX, minCellY, maxCellX, maxCellY := si.cellRange(bounds)
	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			key := cellKey(x, y)
			si.grid[key] = append(si.grid[key], indexed)
		}
	}
}

// Query returns the geometries whose hash cells overlap the given bounds,
// each at most once, ordered by index. The result is a candidate set: it
// may include geometries that do not actually intersect the bounds.
func (si *SpatialIndex) Query(bounds *geos.Box2D) []*IndexedGeometry {
	if bounds == nil {
		return nil
	}

	seen := make(map[int]*IndexedGeometry)
	minCellX, minCellY, maxCellX, maxCellY := si.cellRange(bounds)
	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			for _, candidate := range si.grid[cellKey(x, y)] {
				seen[candidate.Index] = candidate
			}
		}
	}

	candidates := make([]*IndexedGeometry, 0, len(seen))
	for _, candidate := range seen {
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Index < candidates[j].Index })
	return candidates
}

// Len returns the number of indexed geometries.
func (si *SpatialIndex) Len() int {
	return len(si.geometries)
}

func (si *SpatialIndex) cellRange(bounds *geos.Box2D) (int, int, int, int) {
	return int(math.Floor(bounds.MinX / si.cellSize)),
		int(math.Floor(bounds.MinY / si.cellSize)),
		int(math.Floor(bounds.MaxX / si.cellSize)),
		int(math.Floor(bounds.MaxY / si.cellSize))
}

func cellKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

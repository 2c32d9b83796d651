package planner

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
)

// BoundingBox is an axis-aligned extent in a single projected CRS.
type BoundingBox struct {
	Rect r2.Rect
}

// NewBoundingBox builds a bounding box from corner coordinates. The corners
// are normalized, so swapped min/max values are accepted.
func NewBoundingBox(xmin, ymin, xmax, ymax float64) BoundingBox {
	return BoundingBox{Rect: r2.RectFromPoints(
		r2.Point{X: xmin, Y: ymin},
		r2.Point{X: xmax, Y: ymax},
	)}
}

func (b BoundingBox) Width() float64  { return b.Rect.X.Length() }
func (b BoundingBox) Height() float64 { return b.Rect.Y.Length() }

// HexCell is one planning unit: a regular hexagon tagged with its PUID.
// Cells are owned by the grid and immutable after creation.
type HexCell struct {
	PUID int
	Geom *geos.Geom
}

// Grid is an ordered sequence of hexagonal planning units sharing one CRS.
// PUIDs run densely 1..N in cell order.
type Grid struct {
	Cells []HexCell
	CRS   string
	Edge  float64
}

func (g *Grid) Empty() bool {
	return g == nil || len(g.Cells) == 0
}

// BuildGrid tiles the bounding box with regular hexagons of the requested
// cell area and assigns PUIDs in emission order: columns left to right,
// rows bottom to top within each column. That ordering is part of the
// contract; re-running with the same inputs yields the same grid.
func BuildGrid(bbox BoundingBox, cellArea float64, crs string) (*Grid, error) {
	if cellArea <= 0 {
		return nil, fmt.Errorf("%w: cell area must be positive, got %g", ErrInvalidParameter, cellArea)
	}
	if bbox.Width() == 0 || bbox.Height() == 0 {
		return nil, fmt.Errorf("%w: degenerate bounding box %v", ErrInvalidParameter, bbox.Rect)
	}

	// A regular hexagon has area (3*sqrt(3)/2)*edge^2. The legacy tool
	// solved edge = sqrt(A^2 / (1.5*sqrt(3))), squaring the area; that is
	// dimensionally wrong and is deliberately not reproduced here.
	edge := math.Sqrt(cellArea / (3 * math.Sqrt(3) / 2))

	centers := hexCenters(bbox, edge)
	cells := make([]HexCell, 0, len(centers))
	for i, c := range centers {
		cells = append(cells, HexCell{PUID: i + 1, Geom: hexagon(edge, c)})
	}
	return &Grid{Cells: cells, CRS: crs, Edge: edge}, nil
}

// hexCenters emits hexagon centers covering the bounding box. Columns are
// spaced 1.5*edge apart and alternate a half-row vertical offset, producing
// the interlocking pattern. The start column and row sit one full step
// outside the box so its edges are fully covered.
func hexCenters(bbox BoundingBox, edge float64) []r2.Point {
	vStep := math.Sqrt(3) * edge
	hStep := 1.5 * edge

	xMin, xMax := bbox.Rect.X.Lo, bbox.Rect.X.Hi
	yMin, yMax := bbox.Rect.Y.Lo, bbox.Rect.Y.Hi

	hSkip := math.Ceil(xMin/hStep) - 1
	hStart := hSkip * hStep

	vSkip := math.Ceil(yMin/vStep) - 1
	vStart := vSkip * vStep

	hEnd := xMax + hStep
	vEnd := yMax + vStep

	var vStarts [2]float64
	if vStart-vStep/2 < yMin {
		vStarts = [2]float64{vStart + vStep/2, vStart}
	} else {
		vStarts = [2]float64{vStart - vStep/2, vStart}
	}
	idx := int(math.Abs(hSkip)) % 2

	var centers []r2.Point
	cx := hStart
	cy := vStarts[idx]
	idx = (idx + 1) % 2
	for cx < hEnd {
		for cy < vEnd {
			centers = append(centers, r2.Point{X: cx, Y: cy})
			cy += vStep
		}
		cx += hStep
		cy = vStarts[idx]
		idx = (idx + 1) % 2
	}
	return centers
}

// hexagon builds the closed ring of a regular hexagon centered on c: six
// vertices at 60 degree increments at radius edge, starting at 0 degrees.
func hexagon(edge float64, c r2.Point) *geos.Geom {
	ring := make([][]float64, 0, 7)
	for angle := 0; angle < 360; angle += 60 {
		rad := float64(angle) * math.Pi / 180
		ring = append(ring, []float64{
			c.X + math.Cos(rad)*edge,
			c.Y + math.Sin(rad)*edge,
		})
	}
	ring = append(ring, []float64{ring[0][0], ring[0][1]})
	return geos.NewPolygon([][][]float64{ring})
}

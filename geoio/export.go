package geoio

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geos"

	"github.com/mitchalbert/go-conservation-planner/planner"
)

// Feature is one GeoJSON feature on the wire.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// FeatureCollection holds multiple features.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// GridFeatureCollection renders the grid as a GeoJSON feature collection
// with a PUID property per cell, in PUID order.
func GridFeatureCollection(grid *planner.Grid) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(grid.Cells))}
	for _, cell := range grid.Cells {
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   json.RawMessage(cell.Geom.ToGeoJSON(-1)),
			Properties: map[string]any{"PUID": cell.PUID},
		})
	}
	return fc
}

// WriteGridShapefile writes the grid as a polygon shapefile with a single
// PUID field.
func WriteGridShapefile(path string, grid *planner.Grid) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("creating shapefile %s: %w", path, err)
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{shp.NumberField("PUID", 10)})
	for i, cell := range grid.Cells {
		writer.Write(shpPolygonFromGeos(cell.Geom))
		if err := writer.WriteAttribute(i, 0, cell.PUID); err != nil {
			return fmt.Errorf("writing PUID %d attribute: %w", cell.PUID, err)
		}
	}
	return nil
}

// GridShapefileZip writes the grid shapefile to a temporary directory and
// returns a zip of its components.
func GridShapefileZip(grid *planner.Grid) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "planning_grid_")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	base := filepath.Join(tempDir, "planning_unit_grid")
	if err := WriteGridShapefile(base+".shp", grid); err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	zipWriter := zip.NewWriter(&buffer)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		content, err := os.ReadFile(base + ext)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading shapefile component %s: %w", ext, err)
		}
		entry, err := zipWriter.Create("planning_unit_grid" + ext)
		if err != nil {
			return nil, fmt.Errorf("creating %s entry in zip: %w", ext, err)
		}
		if _, err := entry.Write(content); err != nil {
			return nil, fmt.Errorf("writing %s entry to zip: %w", ext, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return buffer.Bytes(), nil
}

// WriteOverlapCSV writes overlap records with the column layout the
// reserve-selection tooling expects: SPECIES (feature ID), PU (planning
// unit), AMOUNT. The engine gives no ordering guarantee, so rows are sorted
// by planning unit then feature for deterministic files.
func WriteOverlapCSV(w io.Writer, records []planner.OverlapRecord) error {
	sorted := append([]planner.OverlapRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PUID != sorted[j].PUID {
			return sorted[i].PUID < sorted[j].PUID
		}
		return sorted[i].FeatureID < sorted[j].FeatureID
	})

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"SPECIES", "PU", "AMOUNT"}); err != nil {
		return err
	}
	for _, record := range sorted {
		row := []string{record.FeatureID, strconv.Itoa(record.PUID), strconv.Itoa(record.Amount)}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func shpPolygonFromGeos(g *geos.Geom) *shp.Polygon {
	ring := g.ExteriorRing().CoordSeq()
	polygon := &shp.Polygon{Parts: []int32{0}}
	for i := 0; i < ring.Size(); i++ {
		polygon.Points = append(polygon.Points, shp.Point{X: ring.X(i), Y: ring.Y(i)})
	}
	polygon.NumParts = 1
	polygon.NumPoints = int32(len(polygon.Points))
	return polygon
}

// Package geoio loads conservation feature layers and exports planner
// results. File formats live here so the planner core stays free of
// persistence concerns.
package geoio

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geos"

	"github.com/mitchalbert/go-conservation-planner/planner"
	"github.com/mitchalbert/go-conservation-planner/utils"
)

// LoadGeoJSONLayer parses a GeoJSON feature collection into a feature
// layer. Every feature must carry the required attribute fields; a missing
// field fails the whole layer at load time.
func LoadGeoJSONLayer(name string, crs string, data []byte) (*planner.FeatureLayer, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing feature collection %s: %w", name, err)
	}

	layer := &planner.FeatureLayer{Name: name, CRS: crs}
	for i, feature := range fc.Features {
		g, err := geosFromGeom(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d of %s: %w", i, name, err)
		}
		attrs := planner.AttributeMap(feature.Properties)
		if err := attrs.Validate(); err != nil {
			return nil, fmt.Errorf("feature %d of %s: %w", i, name, err)
		}
		layer.Features = append(layer.Features, planner.Feature{Geom: g, Attributes: attrs})
	}
	return layer, nil
}

// LoadShapefileLayer reads a polygon shapefile into a feature layer. The
// layer name is the file's base name; shapefiles carry no CRS payload here,
// so the caller supplies it.
func LoadShapefileLayer(path string, crs string) (*planner.FeatureLayer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	layer := &planner.FeatureLayer{
		Name: strings.TrimSuffix(filepath.Base(path), ".shp"),
		CRS:  crs,
	}

	for reader.Next() {
		row, shape := reader.Shape()
		polygon, ok := shape.(*shp.Polygon)
		if !ok {
			// Point and line records carry no overlap area.
			continue
		}

		attrs := planner.AttributeMap{}
		for i, field := range fields {
			key := strings.TrimRight(string(field.Name[:]), "\x00")
			attrs[key] = reader.ReadAttribute(row, i)
		}
		if err := attrs.Validate(); err != nil {
			return nil, fmt.Errorf("record %d of %s: %w", row, path, err)
		}

		layer.Features = append(layer.Features, planner.Feature{
			Geom:       geosFromShpPolygon(polygon),
			Attributes: attrs,
		})
	}
	return layer, nil
}

func geosFromGeom(g geom.T) (*geos.Geom, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return geos.NewPolygon(polygonRings(t)), nil
	case *geom.MultiPolygon:
		polygons := make([]*geos.Geom, t.NumPolygons())
		for i := range polygons {
			polygons[i] = geos.NewPolygon(polygonRings(t.Polygon(i)))
		}
		return geos.NewCollection(geos.TypeIDMultiPolygon, polygons), nil
	case nil:
		return nil, fmt.Errorf("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

func polygonRings(p *geom.Polygon) [][][]float64 {
	rings := make([][][]float64, p.NumLinearRings())
	for i := range rings {
		coords := p.LinearRing(i).Coords()
		ring := make([][]float64, len(coords))
		for j, c := range coords {
			x, y := utils.RoundCoord(c.X(), c.Y())
			ring[j] = []float64{x, y}
		}
		rings[i] = ring
	}
	return rings
}

// geosFromShpPolygon converts a shapefile polygon record. The first part is
// taken as the exterior ring, remaining parts as holes.
func geosFromShpPolygon(p *shp.Polygon) *geos.Geom {
	rings := make([][][]float64, 0, len(p.Parts))
	for i, start := range p.Parts {
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		ring := make([][]float64, 0, end-int(start))
		for _, point := range p.Points[start:end] {
			x, y := utils.RoundCoord(point.X, point.Y)
			ring = append(ring, []float64{x, y})
		}
		rings = append(rings, ring)
	}
	return geos.NewPolygon(rings)
}

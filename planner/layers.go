package planner

import (
	"github.com/twpayne/go-geos"
)

// Feature is one conservation feature: a polygon geometry plus its
// attribute record.
type Feature struct {
	Geom       *geos.Geom
	Attributes AttributeMap
}

// FeatureLayer is a named collection of features sharing one CRS. Layers
// are supplied by collaborators and treated as read-only by the engine.
type FeatureLayer struct {
	Name     string
	CRS      string
	Features []Feature
}

func (l *FeatureLayer) Empty() bool {
	return len(l.Features) == 0
}

// FilterLayers returns new layers keeping only the features whose value for
// field matches one of values. The input layers are not modified.
func FilterLayers(layers []*FeatureLayer, field string, values []string) []*FeatureLayer {
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}

	filtered := make([]*FeatureLayer, 0, len(layers))
	for _, layer := range layers {
		out := &FeatureLayer{Name: layer.Name, CRS: layer.CRS}
		for _, f := range layer.Features {
			if wanted[f.Attributes.Get(field)] {
				out.Features = append(out.Features, f)
			}
		}
		filtered = append(filtered, out)
	}
	return filtered
}

// CheckLayer reports every feature in the layer whose geometry is invalid,
// with the GEOS validity reason.
func CheckLayer(layer *FeatureLayer) []GeometryError {
	var errs []GeometryError
	for i, f := range layer.Features {
		if f.Geom == nil {
			errs = append(errs, GeometryError{Ref: i, ErrorMessage: "nil geometry"})
			continue
		}
		if !f.Geom.IsValid() {
			errs = append(errs, GeometryError{Ref: i, ErrorMessage: f.Geom.IsValidReason()})
		}
	}
	return errs
}

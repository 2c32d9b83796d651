package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func TestAttributeMapValidate(t *testing.T) {
	complete := testAttrs("1")
	assert.NoError(t, complete.Validate())

	missing := AttributeMap{FieldID: "1", FieldName: "x"}
	err := missing.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), FieldClass)
	assert.Contains(t, err.Error(), FieldGroup)
	assert.NotContains(t, err.Error(), FieldName)
}

func TestAttributeMapID(t *testing.T) {
	assert.Equal(t, "7", AttributeMap{FieldID: "7"}.ID())
	assert.Equal(t, "7", AttributeMap{FieldID: 7}.ID())
	assert.Equal(t, "", AttributeMap{}.ID())
	assert.Equal(t, "", AttributeMap{FieldID: nil}.ID())
}

func TestFilterLayers(t *testing.T) {
	layers := []*FeatureLayer{
		testLayer("a", map[string]*geos.Geom{
			"1": square(0, 0, 1, 1),
			"2": square(2, 2, 3, 3),
		}),
		testLayer("b", map[string]*geos.Geom{
			"3": square(4, 4, 5, 5),
		}),
	}

	filtered := FilterLayers(layers, FieldID, []string{"1", "3"})
	require.Len(t, filtered, 2)
	require.Len(t, filtered[0].Features, 1)
	assert.Equal(t, "1", filtered[0].Features[0].Attributes.ID())
	require.Len(t, filtered[1].Features, 1)
	assert.Equal(t, "3", filtered[1].Features[0].Attributes.ID())

	// Originals untouched.
	assert.Len(t, layers[0].Features, 2)

	none := FilterLayers(layers, FieldGroup, []string{"nonexistent"})
	assert.Empty(t, none[0].Features)
	assert.Empty(t, none[1].Features)
}

func TestCheckLayer(t *testing.T) {
	// Self-intersecting bowtie ring.
	bowtie := geos.NewPolygon([][][]float64{{
		{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0},
	}})

	layer := &FeatureLayer{
		Name: "mixed",
		CRS:  "EPSG:3857",
		Features: []Feature{
			{Geom: square(0, 0, 5, 5), Attributes: testAttrs("ok")},
			{Geom: bowtie, Attributes: testAttrs("bad")},
			{Geom: nil, Attributes: testAttrs("nil")},
		},
	}

	errs := CheckLayer(layer)
	require.Len(t, errs, 2)
	assert.Equal(t, 1, errs[0].Ref)
	assert.NotEmpty(t, errs[0].ErrorMessage)
	assert.Equal(t, 2, errs[1].Ref)
	assert.Equal(t, "nil geometry", errs[1].ErrorMessage)
}

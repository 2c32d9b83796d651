package planner

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/twpayne/go-geos"

	"github.com/mitchalbert/go-conservation-planner/utils"
)

// Config carries the knobs that used to be ambient globals: worker count,
// verbosity and the target CRS. It is threaded into the engine at
// construction.
type Config struct {
	Workers   int
	Verbose   bool
	TargetCRS string
}

// Engine computes planning-unit / conservation-feature overlap with a fixed
// pool of workers. Grids and layers passed in are treated as read-only.
type Engine struct {
	cfg Config
	log *slog.Logger
}

func NewEngine(cfg Config, log *slog.Logger) (*Engine, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidParameter, cfg.Workers)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// OverlapRecord is one measured intersection: which planning unit, which
// feature, and the rounded area of overlap.
type OverlapRecord struct {
	PUID      int    `json:"puid"`
	FeatureID string `json:"featureId"`
	Amount    int    `json:"amount"`
}

// overlapJob is one partition of the grid paired with the full layer set.
type overlapJob struct {
	Partition int
	Cells     []HexCell
	Layers    []*FeatureLayer
}

// overlapResult carries one partition's records plus its failure count so
// the reducer can tell a quiet partition from a broken one.
type overlapResult struct {
	Partition int
	Records   []OverlapRecord
	Units     int
	Failures  int
}

// ComputeOverlap intersects every grid cell with every layer feature and
// returns one record per non-empty intersection, including touching-only
// pairs whose rounded area is zero. Records arrive in partition completion
// order; callers needing determinism must sort.
//
// An empty grid or layer set returns an empty slice alongside
// ErrNoInputData. Geometry failures are contained to their partition/layer
// unit; an all-failed run is logged but still returns successfully.
func (e *Engine) ComputeOverlap(grid *Grid, layers []*FeatureLayer) ([]OverlapRecord, error) {
	if len(layers) == 0 {
		e.log.Warn("no conservation feature layers loaded")
		return []OverlapRecord{}, ErrNoInputData
	}
	if grid.Empty() {
		e.log.Warn("no planning unit grid loaded")
		return []OverlapRecord{}, ErrNoInputData
	}
	for _, layer := range layers {
		if layer.CRS != grid.CRS {
			return nil, fmt.Errorf("%w: layer %q CRS %q does not match grid CRS %q",
				ErrInvalidParameter, layer.Name, layer.CRS, grid.CRS)
		}
	}

	// Empty layers are skipped here so the warning fires once per layer,
	// not once per partition.
	active := make([]*FeatureLayer, 0, len(layers))
	for _, layer := range layers {
		if layer.Empty() {
			e.log.Warn("skipping empty conservation layer", "layer", layer.Name)
			continue
		}
		active = append(active, layer)
	}
	if len(active) == 0 {
		return []OverlapRecord{}, ErrNoInputData
	}

	partitions := splitCells(grid.Cells, e.cfg.Workers)
	jobs := make([]any, len(partitions))
	for i, part := range partitions {
		jobs[i] = overlapJob{Partition: i, Cells: part, Layers: active}
	}

	e.log.Info("starting intersection calculations",
		"workers", e.cfg.Workers, "cells", len(grid.Cells), "layers", len(active))
	start := time.Now()

	processor := utils.NewParallelProcessor(e.cfg.Workers, e.cfg.Verbose)
	results, err := processor.ProcessBatch(jobs, func(job any) any {
		return e.calculate(job.(overlapJob))
	}, "calculating intersections")
	if err != nil {
		return nil, err
	}

	records := make([]OverlapRecord, 0)
	units, failures := 0, 0
	for _, result := range results {
		res := result.(overlapResult)
		records = append(records, res.Records...)
		units += res.Units
		failures += res.Failures
	}

	if units > 0 && failures == units {
		e.log.Error("all partition/layer computations failed", "units", units)
	} else if failures > 0 {
		e.log.Warn("some partition/layer computations failed", "failed", failures, "units", units)
	}
	e.log.Info("intersection calculations completed",
		"records", len(records), "elapsed", time.Since(start).Round(time.Millisecond))
	return records, nil
}

// calculate is the per-partition work function: intersect one grid slice
// with each layer in turn. A failed layer contributes nothing and does not
// abort the sibling layers.
func (e *Engine) calculate(job overlapJob) overlapResult {
	res := overlapResult{Partition: job.Partition}
	for _, layer := range job.Layers {
		res.Units++
		recs, err := intersectLayer(job.Cells, layer)
		if err != nil {
			res.Failures++
			e.log.Warn("layer intersection failed",
				"partition", job.Partition, "layer", layer.Name, "error", err)
			continue
		}
		res.Records = append(res.Records, recs...)
	}
	return res
}

// intersectLayer computes overlap records for one partition/layer pair.
// GEOS errors surface as panics, so the unit recovers and reports them as
// a contained geometry failure.
func intersectLayer(cells []HexCell, layer *FeatureLayer) (recs []OverlapRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, fmt.Errorf("%w: %v", ErrGeometryOperation, r)
		}
	}()

	if len(cells) == 0 {
		return nil, nil
	}

	hull := layerHull(layer)
	if hull == nil {
		return nil, fmt.Errorf("%w: convex hull of layer %q", ErrGeometryOperation, layer.Name)
	}
	defer hull.Destroy()

	for _, cell := range clipCells(cells, hull) {
		for _, f := range layer.Features {
			if f.Geom == nil || !cell.Geom.Intersects(f.Geom) {
				continue
			}
			intersection := cell.Geom.Intersection(f.Geom)
			if intersection == nil {
				return nil, fmt.Errorf("%w: intersection of PUID %d with feature %s",
					ErrGeometryOperation, cell.PUID, f.Attributes.ID())
			}
			if !intersection.IsEmpty() {
				recs = append(recs, OverlapRecord{
					PUID:      cell.PUID,
					FeatureID: f.Attributes.ID(),
					Amount:    int(math.Round(intersection.Area())),
				})
			}
			intersection.Destroy()
		}
	}
	return recs, nil
}

// layerHull returns the convex hull of all the layer's geometries. Cloned
// geometries go into the collection because GEOS collections take ownership
// of their children.
func layerHull(layer *FeatureLayer) *geos.Geom {
	geoms := make([]*geos.Geom, 0, len(layer.Features))
	for _, f := range layer.Features {
		if f.Geom != nil {
			geoms = append(geoms, f.Geom.Clone())
		}
	}
	if len(geoms) == 0 {
		return nil
	}
	collection := geos.NewCollection(geos.TypeIDGeometryCollection, geoms)
	defer collection.Destroy()
	return collection.ConvexHull()
}

// clipCells restricts a partition to the cells intersecting the layer hull.
// This is a recall-preserving pre-filter: a cell that truly overlaps a
// feature always overlaps the hull too. A spatial hash over the cells keeps
// the candidate lookup cheap for large partitions.
func clipCells(cells []HexCell, hull *geos.Geom) []HexCell {
	bounds := cells[0].Geom.Bounds()
	index := utils.NewSpatialIndex((bounds.MaxX - bounds.MinX) * 2)
	for i := range cells {
		index.Add(cells[i].Geom, i)
	}

	clipped := make([]HexCell, 0, len(cells))
	for _, candidate := range index.Query(hull.Bounds()) {
		if cells[candidate.Index].Geom.Intersects(hull) {
			clipped = append(clipped, cells[candidate.Index])
		}
	}
	return clipped
}

// splitCells divides the cell sequence into count contiguous, near-equal
// partitions. The first len%count partitions get one extra cell. Partitions
// are load-balancing units only; empty ones are fine when count exceeds the
// cell count.
func splitCells(cells []HexCell, count int) [][]HexCell {
	if count < 1 {
		count = 1
	}
	size := len(cells) / count
	extra := len(cells) % count

	parts := make([][]HexCell, 0, count)
	offset := 0
	for i := 0; i < count; i++ {
		n := size
		if i < extra {
			n++
		}
		parts = append(parts, cells[offset:offset+n])
		offset += n
	}
	return parts
}

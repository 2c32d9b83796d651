package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mitchalbert/go-conservation-planner/geoio"
	"github.com/mitchalbert/go-conservation-planner/planner"
	"github.com/mitchalbert/go-conservation-planner/utils"
)

type server struct {
	cfg planner.Config
	log *slog.Logger
}

type buildGridRequest struct {
	BBox     [4]float64 `json:"bbox"` // xmin, ymin, xmax, ymax
	CellArea float64    `json:"cellArea"`
	CRS      string     `json:"crs"`
	Format   string     `json:"format"` // "geojson" (default) or "shapefile"
}

func main() {
	var (
		port    = flag.String("port", getEnv("PORT", "8080"), "HTTP listen port")
		workers = flag.Int("workers", runtime.NumCPU(), "number of overlap workers")
		verbose = flag.Bool("verbose", false, "enable debug logging and progress output")
		crs     = flag.String("crs", getEnv("TARGET_CRS", "EPSG:3857"), "target CRS for grids and layers")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	s := &server{
		cfg: planner.Config{Workers: *workers, Verbose: *verbose, TargetCRS: *crs},
		log: log,
	}

	http.HandleFunc("/build-grid", s.buildGridHandler)
	http.HandleFunc("/compute-overlap", s.computeOverlapHandler)

	log.Info("planner server listening", "port", *port, "workers", *workers, "crs", *crs)
	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// buildGridHandler tiles the requested bounding box and returns the grid as
// GeoJSON, or as a zipped shapefile when format=shapefile.
func (s *server) buildGridHandler(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("run", uuid.NewString())

	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	var req buildGridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CRS == "" {
		req.CRS = s.cfg.TargetCRS
	}

	bbox := planner.NewBoundingBox(req.BBox[0], req.BBox[1], req.BBox[2], req.BBox[3])
	grid, err := planner.BuildGrid(bbox, req.CellArea, req.CRS)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidParameter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Info("planning unit grid built", "cells", len(grid.Cells), "edge", grid.Edge)

	if req.Format == "shapefile" {
		zipData, err := geoio.GridShapefileZip(grid)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sendZipResponse(w, "planning_unit_grid.zip", zipData)
		return
	}
	sendJSONResponse(w, geoio.GridFeatureCollection(grid))
}

// computeOverlapHandler builds a grid from the posted parameters, loads the
// uploaded GeoJSON layers, optionally filters them by attribute, and
// returns the overlap records as JSON or CSV.
func (s *server) computeOverlapHandler(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("run", uuid.NewString())

	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	form, err := utils.ReadMultiPartForm(r, "layers")
	if err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(form.Files) == 0 {
		http.Error(w, "no layer files uploaded", http.StatusBadRequest)
		return
	}

	crs := form.Properties.CRS
	if crs == "" {
		crs = s.cfg.TargetCRS
	}

	bbox, err := parseBBox(form.Properties.BBox)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cellArea, err := strconv.ParseFloat(form.Properties.CellArea, 64)
	if err != nil {
		http.Error(w, "invalid cellArea: "+form.Properties.CellArea, http.StatusBadRequest)
		return
	}

	grid, err := planner.BuildGrid(bbox, cellArea, crs)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidParameter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	layers, err := loadLayers(form.Files, crs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, layer := range layers {
		for _, geomErr := range planner.CheckLayer(layer) {
			log.Warn("invalid feature geometry",
				"layer", layer.Name, "feature", geomErr.Ref, "reason", geomErr.ErrorMessage)
		}
	}

	if form.Properties.FilterField != "" {
		values, err := parseFilterValues(form.Properties.FilterValues)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		layers = planner.FilterLayers(layers, form.Properties.FilterField, values)
	}

	engine, err := planner.NewEngine(s.cfg, log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	records, err := engine.ComputeOverlap(grid, layers)
	if err != nil && !errors.Is(err, planner.ErrNoInputData) {
		if errors.Is(err, planner.ErrInvalidParameter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summary := planner.Summarize(records)
	log.Info("overlap computed", "records", summary.Records,
		"totalArea", summary.TotalArea, "maxArea", summary.MaxArea)

	if form.Properties.Format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="overlap.csv"`)
		if err := geoio.WriteOverlapCSV(w, records); err != nil {
			log.Error("writing csv response", "error", err)
		}
		return
	}

	sendJSONResponse(w, struct {
		Summary planner.Summary         `json:"summary"`
		Records []planner.OverlapRecord `json:"records"`
	}{Summary: summary, Records: records})
}

// loadLayers builds feature layers from uploaded files, dispatching on file
// extension. GeoJSON files stand alone; shapefile components (.shp, .shx,
// .dbf) are grouped by base name and staged to a temporary directory for
// the shapefile reader.
func loadLayers(files []utils.NamedFile, crs string) ([]*planner.FeatureLayer, error) {
	var layers []*planner.FeatureLayer
	shapefiles := map[string]map[string][]byte{}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		switch ext {
		case ".geojson", ".json":
			layer, err := geoio.LoadGeoJSONLayer(file.Name, crs, file.Data)
			if err != nil {
				return nil, err
			}
			layers = append(layers, layer)
		case ".shp", ".shx", ".dbf":
			base := strings.TrimSuffix(filepath.Base(file.Name), ext)
			if shapefiles[base] == nil {
				shapefiles[base] = map[string][]byte{}
			}
			shapefiles[base][ext] = file.Data
		default:
			return nil, fmt.Errorf("unsupported layer file %q", file.Name)
		}
	}
	if len(shapefiles) == 0 {
		return layers, nil
	}

	tempDir, err := os.MkdirTemp("", "layer_upload_")
	if err != nil {
		return nil, fmt.Errorf("staging shapefile upload: %w", err)
	}
	defer os.RemoveAll(tempDir)

	bases := make([]string, 0, len(shapefiles))
	for base := range shapefiles {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	for _, base := range bases {
		parts := shapefiles[base]
		if parts[".shp"] == nil || parts[".dbf"] == nil {
			return nil, fmt.Errorf("shapefile %q needs both .shp and .dbf components", base)
		}
		for ext, data := range parts {
			if err := os.WriteFile(filepath.Join(tempDir, base+ext), data, 0o644); err != nil {
				return nil, fmt.Errorf("staging shapefile upload: %w", err)
			}
		}
		layer, err := geoio.LoadShapefileLayer(filepath.Join(tempDir, base+".shp"), crs)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// parseFilterValues splits the comma-separated filter value list. A filter
// field with no usable values would match nothing and silently drop every
// feature, so that combination is rejected.
func parseFilterValues(raw string) ([]string, error) {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("filterField set without filterValues")
	}
	return values, nil
}

func parseBBox(value string) (planner.BoundingBox, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return planner.BoundingBox{}, fmt.Errorf("bbox must be xmin,ymin,xmax,ymax, got %q", value)
	}
	var coords [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return planner.BoundingBox{}, fmt.Errorf("invalid bbox coordinate %q", part)
		}
		coords[i] = f
	}
	return planner.NewBoundingBox(coords[0], coords[1], coords[2], coords[3]), nil
}

func sendJSONResponse(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

func sendZipResponse(w http.ResponseWriter, filename string, zipData []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(zipData)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package utils

import (
	"io"
	"net/http"
)

// maxUploadBytes bounds in-memory parsing of uploaded layer files.
const maxUploadBytes = 512 << 20

// NamedFile is one uploaded layer payload with its original filename.
type NamedFile struct {
	Name string
	Data []byte
}

// MultipartResult carries the uploaded layer files plus the form values the
// overlap endpoint understands.
type MultipartResult struct {
	Files      []NamedFile
	Properties Properties
}

// Properties are the raw form values; the handler parses and validates them.
type Properties struct {
	BBox         string
	CellArea     string
	CRS          string
	Format       string
	FilterField  string
	FilterValues string
}

// ReadMultiPartForm reads every file uploaded under fileKey plus the known
// form values. Unknown values are ignored.
func ReadMultiPartForm(r *http.Request, fileKey string) (MultipartResult, error) {
	var result MultipartResult

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return result, err
	}

	for key, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		switch key {
		case "bbox":
			result.Properties.BBox = values[0]
		case "cellArea":
			result.Properties.CellArea = values[0]
		case "crs":
			result.Properties.CRS = values[0]
		case "format":
			result.Properties.Format = values[0]
		case "filterField":
			result.Properties.FilterField = values[0]
		case "filterValues":
			result.Properties.FilterValues = values[0]
		}
	}

	for _, header := range r.MultipartForm.File[fileKey] {
		file, err := header.Open()
		if err != nil {
			return result, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, NamedFile{Name: header.Filename, Data: data})
	}

	return result, nil
}

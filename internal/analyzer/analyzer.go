// Package analyzer validates uploaded image files and extracts metadata,
// including EXIF GPS information when present, to summarize their contents.
package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"

	// Only PNG and JPEG decoders are registered; every other format fails
	// image.Decode and is rejected as invalid.
	_ "image/jpeg"
	_ "image/png"
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// ValidationError signals that the uploaded file was rejected before or
// during decoding. Callers map it to a client error rather than a fault.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Reason
}

// Dimensions is the pixel size of the decoded image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GPSCoordinates is the decimal position derived from EXIF GPS tags.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metadata describes everything extracted from a single image.
type Metadata struct {
	Format string            `json:"format"`
	Mode   string            `json:"mode"`
	Size   Dimensions        `json:"size"`
	Info   map[string]string `json:"info"`
	EXIF   map[string]any    `json:"exif,omitempty"`
}

// GPS returns the decimal coordinates when EXIF GPS tags yielded a position.
func (m *Metadata) GPS() (GPSCoordinates, bool) {
	if m == nil || m.EXIF == nil {
		return GPSCoordinates{}, false
	}
	coords, ok := m.EXIF["GPSCoordinates"].(GPSCoordinates)
	return coords, ok
}

// HasEXIF reports whether any EXIF metadata was found.
func (m *Metadata) HasEXIF() bool {
	return m != nil && len(m.EXIF) > 0
}

// Analysis is the full result for one uploaded image.
type Analysis struct {
	File     string    `json:"file"`
	Metadata *Metadata `json:"metadata"`
	Summary  string    `json:"summary"`
}

// ValidateExtension ensures the file extension is one of the supported image formats.
func ValidateExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: fmt.Sprintf(
			"Unsupported file type '%s'. Allowed extensions: %s.", ext, allowedExtensionList(),
		)}
	}
	return nil
}

// Analyze validates the file, extracts metadata, and builds the summary.
func Analyze(name string, data []byte) (*Analysis, error) {
	if err := ValidateExtension(name); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: "File is not a valid PNG or JPEG image."}
	}

	bounds := img.Bounds()
	meta := &Metadata{
		Format: strings.ToUpper(format),
		Mode:   colorMode(img),
		Size:   Dimensions{Width: bounds.Dx(), Height: bounds.Dy()},
		Info:   map[string]string{},
	}
	if meta.Format == "PNG" {
		meta.Info = pngTextChunks(data)
	}
	meta.EXIF = decodeEXIF(data)

	return &Analysis{
		File:     name,
		Metadata: meta,
		Summary:  Summarize(meta),
	}, nil
}

// colorMode maps the decoded pixel layout to the mode names the rest of the
// system reports. Truecolor without alpha decodes as *image.RGBA and JPEG
// as *image.YCbCr, both of which are plain RGB content.
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.NRGBA, *image.NRGBA64, *image.RGBA64:
		return "RGBA"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	default:
		return "RGB"
	}
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

package analyzer

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// decodeEXIF extracts EXIF tags into a printable map. GPS tags are nested
// under "GPSInfo"; when they yield a usable position, the decimal
// coordinates are added under "GPSCoordinates". Returns nil when the image
// carries no EXIF block.
func decodeEXIF(data []byte) map[string]any {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	collector := &tagCollector{
		fields: map[string]any{},
		gps:    map[string]string{},
	}
	if err := x.Walk(collector); err != nil {
		return nil
	}

	if len(collector.gps) > 0 {
		collector.fields["GPSInfo"] = collector.gps
		if lat, long, err := x.LatLong(); err == nil {
			collector.fields["GPSCoordinates"] = GPSCoordinates{Latitude: lat, Longitude: long}
		}
	}

	if len(collector.fields) == 0 {
		return nil
	}
	return collector.fields
}

type tagCollector struct {
	fields map[string]any
	gps    map[string]string
}

// Walk implements exif.Walker.
func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	value := tagValue(tag)
	if strings.HasPrefix(string(name), "GPS") {
		c.gps[string(name)] = value
		return nil
	}
	c.fields[string(name)] = value
	return nil
}

func tagValue(tag *tiff.Tag) string {
	if value, err := tag.StringVal(); err == nil {
		return value
	}
	return tag.String()
}

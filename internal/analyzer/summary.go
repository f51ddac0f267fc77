package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// Keys surfaced individually in the summary when present in the EXIF block.
var notableEXIFKeys = []string{
	"ImageDescription",
	"UserComment",
	"Artist",
	"Copyright",
	"DateTimeOriginal",
	"Make",
	"Model",
}

// Summarize creates a human-readable summary from extracted metadata.
func Summarize(m *Metadata) string {
	parts := []string{fmt.Sprintf(
		"Format: %s, mode: %s, size: %dx%d",
		m.Format, m.Mode, m.Size.Width, m.Size.Height,
	)}

	if len(m.Info) > 0 {
		if comments := infoLine(m.Info, true); comments != "" {
			parts = append(parts, "Image comments/description -> "+comments)
		} else {
			parts = append(parts, "Image ancillary info -> "+infoLine(m.Info, false))
		}
	}

	if len(m.EXIF) > 0 {
		for _, key := range notableEXIFKeys {
			if value, ok := m.EXIF[key].(string); ok {
				parts = append(parts, fmt.Sprintf("EXIF %s: %s", key, value))
			}
		}
		if coords, ok := m.GPS(); ok {
			parts = append(parts, fmt.Sprintf(
				"GPS coordinates detected -> lat: %.6f, lon: %.6f",
				coords.Latitude, coords.Longitude,
			))
		} else if _, ok := m.EXIF["GPSInfo"]; ok {
			parts = append(parts, "GPS metadata present but could not derive coordinates.")
		}
	} else {
		parts = append(parts, "No EXIF metadata found.")
	}

	return strings.Join(parts, "\n")
}

// infoLine joins ancillary info entries, optionally restricted to
// comment/description keywords, in stable key order.
func infoLine(info map[string]string, commentsOnly bool) string {
	keys := make([]string, 0, len(info))
	for key := range info {
		lower := strings.ToLower(key)
		if commentsOnly && !strings.Contains(lower, "comment") && lower != "description" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, fmt.Sprintf("%s: %s", key, info[key]))
	}
	return strings.Join(entries, "; ")
}

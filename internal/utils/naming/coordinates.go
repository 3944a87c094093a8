package naming

import (
	"fmt"
	"math"
	"strings"
)

// SanitizeCoordinate formats a coordinate for use in filenames (removes minus sign, uses N/S/E/W)
// Replaces decimal point with 'p' for Windows compatibility
func SanitizeCoordinate(coord float64, isLat bool) string {
	dir := "E"
	if isLat {
		if coord < 0 {
			dir = "S"
		} else {
			dir = "N"
		}
	} else {
		if coord < 0 {
			dir = "W"
		} else {
			dir = "E"
		}
	}
	// Format and replace decimal point with 'p'
	coordStr := fmt.Sprintf("%.6f", math.Abs(coord))
	coordStr = strings.Replace(coordStr, ".", "p", 1)
	return coordStr + dir
}

// PointSlug creates a filesystem-safe name for a satellite preview image.
// Format: {lat}_{lng}_z{zoom}, e.g. 30p044400N_31p235700E_z19
func PointSlug(lat, lng float64, zoom int) string {
	return fmt.Sprintf("%s_%s_z%d",
		SanitizeCoordinate(lat, true),
		SanitizeCoordinate(lng, false),
		zoom)
}

package geo

import "fmt"

// Coordinate represents a geographic point selected as the analysis target.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate lies within valid WGS84 ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", c.Lng)
	}
	return nil
}

// String formats the coordinate as "lat,lng" with six decimal places,
// the precision used in static map requests and upload form fields.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Mode records how the user is choosing a location.
type Mode string

const (
	// ModeFinding means the coordinate comes from device geolocation.
	ModeFinding Mode = "finding"
	// ModeBrowsing means the coordinate comes from a map click.
	ModeBrowsing Mode = "browsing"
)

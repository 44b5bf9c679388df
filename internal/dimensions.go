package internal

import "fmt"

// Dimension is a categorical click-fact field aggregates can group by.
type Dimension string

const (
	DimensionDevice  Dimension = "device"
	DimensionOS      Dimension = "os"
	DimensionBrowser Dimension = "browser"
	DimensionCountry Dimension = "country"
	DimensionRegion  Dimension = "region"
	DimensionCity    Dimension = "city"
)

// UnknownValue is the literal category malformed or unavailable inputs map to.
// Facts carrying it are aggregated under this label, never excluded.
const UnknownValue = "unknown"

var dimensions = map[Dimension]struct{}{
	DimensionDevice:  {},
	DimensionOS:      {},
	DimensionBrowser: {},
	DimensionCountry: {},
	DimensionRegion:  {},
	DimensionCity:    {},
}

func (d Dimension) Valid() bool {
	_, ok := dimensions[d]
	return ok
}

// ParseDimension validates a caller-supplied dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.Valid() {
		return "", fmt.Errorf("unsupported dimension %q", s)
	}
	return d, nil
}

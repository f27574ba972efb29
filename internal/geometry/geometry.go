// Package geometry parses and validates query geometries given as GeoJSON.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidGeometry is returned for GeoJSON that is malformed, of an unsupported type, or out of range.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Parse decodes a GeoJSON Geometry or Feature and validates the result.
func Parse(raw json.RawMessage) (orb.Geometry, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty geojson", ErrInvalidGeometry)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	var g orb.Geometry
	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		g = f.Geometry
	case "FeatureCollection":
		return nil, fmt.Errorf("%w: feature collections are not supported", ErrInvalidGeometry)
	default:
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		g = geom.Geometry()
	}

	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that g is a Point, Polygon, or MultiPolygon with coordinates in range.
func Validate(g orb.Geometry) error {
	switch geom := g.(type) {
	case orb.Point:
		return checkPoint(geom)
	case orb.Polygon:
		return checkPolygon(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return fmt.Errorf("%w: empty multipolygon", ErrInvalidGeometry)
		}
		for _, p := range geom {
			if err := checkPolygon(p); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("%w: missing geometry", ErrInvalidGeometry)
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidGeometry, g.GeoJSONType())
	}
}

func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 || len(p[0]) < 4 {
		return fmt.Errorf("%w: polygon needs a closed ring of at least 4 positions", ErrInvalidGeometry)
	}
	for _, ring := range p {
		for _, pt := range ring {
			if err := checkPoint(pt); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPoint(p orb.Point) error {
	if p.Lat() < -90 || p.Lat() > 90 || p.Lon() < -180 || p.Lon() > 180 {
		return fmt.Errorf("%w: position (%g, %g) out of range", ErrInvalidGeometry, p.Lon(), p.Lat())
	}
	return nil
}

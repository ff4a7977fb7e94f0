package disbursal

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"csrhub/pkg/apperror"
)

// ParseGeoTag accepts a GeoJSON Point geometry, a GeoJSON Feature holding a
// Point, or a plain "lat,lng" pair.
func ParseGeoTag(raw string) (orb.Point, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return orb.Point{}, apperror.Validation("geo-tag is required")
	}

	var geom orb.Geometry
	if strings.HasPrefix(raw, "{") {
		if feature, err := geojson.UnmarshalFeature([]byte(raw)); err == nil && feature.Geometry != nil {
			geom = feature.Geometry
		} else {
			g, err := geojson.UnmarshalGeometry([]byte(raw))
			if err != nil {
				return orb.Point{}, apperror.Validation("geo-tag is not valid GeoJSON: %v", err)
			}
			geom = g.Geometry()
		}
	} else {
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			return orb.Point{}, apperror.Validation("geo-tag must be GeoJSON or \"lat,lng\"")
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return orb.Point{}, apperror.Validation("invalid latitude %q", parts[0])
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return orb.Point{}, apperror.Validation("invalid longitude %q", parts[1])
		}
		geom = orb.Point{lng, lat}
	}

	point, ok := geom.(orb.Point)
	if !ok {
		return orb.Point{}, apperror.Validation("geo-tag must be a Point")
	}
	if point.Lat() < -90 || point.Lat() > 90 {
		return orb.Point{}, apperror.Validation("latitude %v out of range", point.Lat())
	}
	if point.Lon() < -180 || point.Lon() > 180 {
		return orb.Point{}, apperror.Validation("longitude %v out of range", point.Lon())
	}
	return point, nil
}

// NormalizeGeoTag parses raw and re-encodes it as a GeoJSON Point geometry
func NormalizeGeoTag(raw string) (string, error) {
	point, err := ParseGeoTag(raw)
	if err != nil {
		return "", err
	}
	b, err := geojson.NewGeometry(point).MarshalJSON()
	if err != nil {
		return "", apperror.Internal(err, "failed to encode geo-tag")
	}
	return string(b), nil
}

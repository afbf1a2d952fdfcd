package geojson

import "fmt"

// Geometry types accepted by the project inputs.
const (
	TypePolygon    = "Polygon"
	TypeLineString = "LineString"
)

// ValidationError reports a malformed GeoJSON document. The reason is safe to
// surface verbatim to API clients.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) error {
	return ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateFeatureCollection checks that data is a GeoJSON FeatureCollection
// whose features all carry a geometry of the given type, with at least one
// feature present. It operates on the decoded JSON document so that shape
// errors (features not a list, feature not an object) are reported the same
// way regardless of how the document was produced.
func ValidateFeatureCollection(data map[string]any, geometryType string) error {
	if data == nil {
		return invalid("expected GeoJSON FeatureCollection, got null")
	}
	typ, _ := data["type"].(string)
	if typ != "FeatureCollection" {
		return invalid("expected type 'FeatureCollection', got '%v'", data["type"])
	}
	rawFeatures, ok := data["features"]
	if !ok {
		return invalid("at least one %s feature is required", geometryType)
	}
	features, ok := rawFeatures.([]any)
	if !ok {
		return invalid("features must be a list")
	}
	if len(features) == 0 {
		return invalid("at least one %s feature is required", geometryType)
	}
	for idx, raw := range features {
		feature, ok := raw.(map[string]any)
		if !ok {
			return invalid("feature %d must be an object", idx)
		}
		geometry, ok := feature["geometry"].(map[string]any)
		if !ok || len(geometry) == 0 {
			return invalid("feature %d missing geometry", idx)
		}
		geomType, _ := geometry["type"].(string)
		if geomType != geometryType {
			return invalid("expected geometry type '%s', got '%v' in feature %d", geometryType, geometry["type"], idx)
		}
	}
	return nil
}

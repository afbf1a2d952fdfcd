package generate

import (
	"context"
	"path/filepath"

	"github.com/kartoza/rue-api/internal/domain"
	"github.com/kartoza/rue-api/internal/steps"
)

// StreetsGenerator derives the street network artifact from the project's
// road lines and the public-road width parameters. Road features are carried
// through with their configured corridor width attached; projects without
// road input get a default two-road cross.
type StreetsGenerator struct{}

func (g StreetsGenerator) Generate(_ context.Context, project domain.Project, step steps.Step, outDir string) ([]string, error) {
	var widths domain.PublicRoads
	if project.Parameters != nil {
		widths = project.Parameters.Neighbourhood.PublicRoads
	}
	features := roadFeatures(project.Roads)
	if len(features) == 0 {
		features = defaultRoads()
	}
	for _, raw := range features {
		feature, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props, _ := feature["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
			feature["properties"] = props
		}
		props["width_m"] = corridorWidth(props, widths)
	}
	doc := map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}
	geoPath := filepath.Join(outDir, step.Filename(steps.ExtGeoJSON))
	if err := writeJSON(geoPath, doc); err != nil {
		return nil, err
	}
	modelPath, err := writeModel(step, outDir)
	if err != nil {
		return nil, err
	}
	return []string{geoPath, modelPath}, nil
}

// corridorWidth picks the configured width by road class, defaulting to the
// local-road width when the class is missing or unknown.
func corridorWidth(props map[string]any, widths domain.PublicRoads) float64 {
	class, _ := props["class"].(string)
	switch class {
	case "artery":
		return widths.WidthOfArteriesM
	case "secondary":
		return widths.WidthOfSecondariesM
	default:
		return widths.WidthOfLocalsM
	}
}

func roadFeatures(roads map[string]any) []any {
	if roads == nil {
		return nil
	}
	features, _ := roads["features"].([]any)
	return features
}

func defaultRoads() []any {
	line := func(class string, coords [][2]float64) any {
		return map[string]any{
			"type":       "Feature",
			"properties": map[string]any{"class": class, "placeholder": true},
			"geometry": map[string]any{
				"type":        "LineString",
				"coordinates": coords,
			},
		}
	}
	return []any{
		line("artery", [][2]float64{{0, 250}, {500, 250}}),
		line("local", [][2]float64{{250, 0}, {250, 500}}),
	}
}

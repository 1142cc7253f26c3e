package ui

import (
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"lakeview/internal/domain"
)

const chartMaxBins = 30

// chartSpec builds the vega-lite specification for one column. The second
// return value is false when the column's type has no chart rendering.
func chartSpec(field arrow.Field) (map[string]any, bool) {
	kind := domain.ClassifyType(field.Type)

	var x map[string]any
	switch {
	case kind == domain.KindNumeric && domain.IsFloatType(field.Type):
		// Continuous values get a binned histogram.
		x = map[string]any{
			"field": field.Name,
			"type":  "quantitative",
			"bin":   map[string]any{"maxbins": chartMaxBins},
		}
	case kind == domain.KindNumeric || kind == domain.KindStringBool:
		// Integers and categoricals get a frequency bar, most common first.
		x = map[string]any{
			"field": field.Name,
			"type":  "nominal",
			"sort":  "-y",
		}
	case kind == domain.KindTemporal:
		x = map[string]any{
			"field": field.Name,
			"type":  "temporal",
			"bin":   map[string]any{"maxbins": chartMaxBins},
		}
	default:
		return nil, false
	}

	y := map[string]any{"aggregate": "count", "type": "quantitative", "title": "count"}
	return map[string]any{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"data":    map[string]any{"url": "/api/columns/" + field.Name + "/values"},
		"mark":    "bar",
		"width":   "container",
		"height":  200,
		"encoding": map[string]any{
			"x":       x,
			"y":       y,
			"tooltip": []any{x, y},
		},
	}, true
}

// chartEmbedJS returns the inline script that mounts the chart into its card.
func chartEmbedJS(elementID string, spec map[string]any) (string, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal chart spec: %w", err)
	}
	return fmt.Sprintf("vegaEmbed('#%s', %s, {actions: false});", elementID, raw), nil
}

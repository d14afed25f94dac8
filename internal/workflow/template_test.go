package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateResolvesDottedPath(t *testing.T) {
	ctx := map[string]interface{}{
		"incident": map[string]interface{}{
			"id":       "inc-1",
			"priority": "P1",
		},
	}
	got := interpolate("Incident {{incident.id}} is {{incident.priority}}", ctx)
	assert.Equal(t, "Incident inc-1 is P1", got)
}

func TestInterpolateLeavesMissingPathEmpty(t *testing.T) {
	got := interpolate("value={{missing.path}}", map[string]interface{}{})
	assert.Equal(t, "value=", got)
}

func TestInterpolateMapRecursesIntoNestedMaps(t *testing.T) {
	ctx := map[string]interface{}{"incident": map[string]interface{}{"id": "inc-2"}}
	params := map[string]interface{}{
		"title": "{{incident.id}} needs attention",
		"nested": map[string]interface{}{
			"ref": "{{incident.id}}",
		},
		"count": 3,
	}
	out := interpolateMap(params, ctx)
	assert.Equal(t, "inc-2 needs attention", out["title"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, "inc-2", out["nested"].(map[string]interface{})["ref"])
}

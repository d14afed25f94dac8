package workflow

import (
	"fmt"

	"github.com/onwatch/sentinel/internal/domain"
)

// Matches reports whether a trigger event should fire the given
// workflow's trigger. Manual triggers always bypass condition evaluation
// and match only when ev.Manual is true and the definition accepts
// manual triggers.
func Matches(def domain.WorkflowDefinition, ev domain.TriggerEvent) bool {
	if !def.Enabled {
		return false
	}

	if ev.Manual {
		return def.Trigger.Type == domain.TriggerManual
	}

	if def.Trigger.Type != ev.Type {
		return false
	}

	switch def.Trigger.Type {
	case domain.TriggerStateChanged:
		if def.Trigger.FromStatus != "" && def.Trigger.FromStatus != ev.FromStatus {
			return false
		}
		if def.Trigger.ToStatus != "" && def.Trigger.ToStatus != ev.ToStatus {
			return false
		}
	case domain.TriggerAge:
		if ev.AgeMinutes < def.Trigger.AgeThresholdMin {
			return false
		}
	}

	for field, want := range def.Trigger.Equals {
		if fmt.Sprint(ev.Data[field]) != fmt.Sprint(want) {
			return false
		}
	}

	return true
}

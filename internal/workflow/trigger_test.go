package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onwatch/sentinel/internal/domain"
)

func TestMatchesRequiresEnabled(t *testing.T) {
	def := domain.WorkflowDefinition{Enabled: false, Trigger: domain.TriggerConfig{Type: domain.TriggerIncidentCreated}}
	assert.False(t, Matches(def, domain.TriggerEvent{Type: domain.TriggerIncidentCreated}))
}

func TestMatchesManualBypassesEquals(t *testing.T) {
	def := domain.WorkflowDefinition{Enabled: true, Trigger: domain.TriggerConfig{Type: domain.TriggerManual}}
	assert.True(t, Matches(def, domain.TriggerEvent{Manual: true}))
}

func TestMatchesEqualsAllMustMatch(t *testing.T) {
	def := domain.WorkflowDefinition{
		Enabled: true,
		Trigger: domain.TriggerConfig{
			Type:   domain.TriggerIncidentCreated,
			Equals: map[string]interface{}{"priority": "P4"},
		},
	}

	assert.True(t, Matches(def, domain.TriggerEvent{
		Type: domain.TriggerIncidentCreated,
		Data: map[string]interface{}{"priority": "P4"},
	}))
	assert.False(t, Matches(def, domain.TriggerEvent{
		Type: domain.TriggerIncidentCreated,
		Data: map[string]interface{}{"priority": "P1"},
	}))
}

func TestMatchesStateChangedRequiresFromAndTo(t *testing.T) {
	def := domain.WorkflowDefinition{
		Enabled: true,
		Trigger: domain.TriggerConfig{
			Type:       domain.TriggerStateChanged,
			FromStatus: domain.IncidentOpen,
			ToStatus:   domain.IncidentResolved,
		},
	}

	assert.True(t, Matches(def, domain.TriggerEvent{
		Type:       domain.TriggerStateChanged,
		FromStatus: domain.IncidentOpen,
		ToStatus:   domain.IncidentResolved,
	}))
	assert.False(t, Matches(def, domain.TriggerEvent{
		Type:       domain.TriggerStateChanged,
		FromStatus: domain.IncidentAcknowledged,
		ToStatus:   domain.IncidentResolved,
	}))
}

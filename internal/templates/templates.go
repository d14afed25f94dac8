// Package templates seeds the starter workflow templates surfaced to
// new teams: one representative definition per category named in
// spec.md §6 (Ticketing, Communication, Auto-resolution).
package templates

import (
	"time"

	"github.com/onwatch/sentinel/internal/domain"
)

// Seed returns the starter templates, IsTemplate true and Scope global,
// ready to be persisted once each via store.WorkflowStore.CreateWorkflow.
func Seed() []*domain.Workflow {
	now := time.Now()
	return []*domain.Workflow{
		ticketingTemplate(now),
		communicationTemplate(now),
		autoResolutionTemplate(now),
	}
}

func ticketingTemplate(now time.Time) *domain.Workflow {
	return &domain.Workflow{
		Name:             "File a Jira ticket on new incident",
		Description:      "Creates a Jira incident ticket as soon as an incident opens.",
		Scope:            domain.ScopeGlobal,
		Version:          1,
		Enabled:          false,
		IsTemplate:       true,
		TemplateCategory: domain.CategoryTicketing,
		CreatedAt:        now,
		UpdatedAt:        now,
		Definition: domain.WorkflowDefinition{
			Timeout: domain.TimeoutMedium,
			Enabled: true,
			Trigger: domain.TriggerConfig{Type: domain.TriggerIncidentCreated},
			Nodes: []domain.WorkflowNode{
				{ID: "trigger", Kind: domain.NodeTrigger},
				{ID: "file-ticket", Kind: domain.NodeAction, Action: domain.ActionJira, Params: map[string]interface{}{
					"project": "{{incident.team_id}}",
					"summary": "Incident {{incident.id}}: {{incident.priority}}",
				}, Retry: &domain.RetryPolicy{Attempts: 3, InitialDelay: time.Second, Backoff: 2}},
			},
			Edges: []domain.WorkflowEdge{{Source: "trigger", Target: "file-ticket"}},
		},
	}
}

func communicationTemplate(now time.Time) *domain.Workflow {
	return &domain.Workflow{
		Name:             "Notify #incidents on escalation",
		Description:      "Posts a webhook notification whenever an incident escalates.",
		Scope:            domain.ScopeGlobal,
		Version:          1,
		Enabled:          false,
		IsTemplate:       true,
		TemplateCategory: domain.CategoryCommunication,
		CreatedAt:        now,
		UpdatedAt:        now,
		Definition: domain.WorkflowDefinition{
			Timeout: domain.TimeoutShort,
			Enabled: true,
			Trigger: domain.TriggerConfig{Type: domain.TriggerEscalation},
			Nodes: []domain.WorkflowNode{
				{ID: "trigger", Kind: domain.NodeTrigger},
				{ID: "notify", Kind: domain.NodeAction, Action: domain.ActionWebhook, Params: map[string]interface{}{
					"url":    "{{integration.notify_url}}",
					"method": "POST",
					"body": map[string]interface{}{
						"text": "Incident {{incident.id}} escalated to level {{incident.current_level}}",
					},
				}, Retry: &domain.RetryPolicy{Attempts: 2, InitialDelay: 500 * time.Millisecond, Backoff: 2}},
			},
			Edges: []domain.WorkflowEdge{{Source: "trigger", Target: "notify"}},
		},
	}
}

func autoResolutionTemplate(now time.Time) *domain.Workflow {
	return &domain.Workflow{
		Name:             "Auto-resolve stale low-severity incidents",
		Description:      "Waits 30 minutes, then calls the resolve webhook if the incident's priority is P4.",
		Scope:            domain.ScopeGlobal,
		Version:          1,
		Enabled:          false,
		IsTemplate:       true,
		TemplateCategory: domain.CategoryAutoResolution,
		CreatedAt:        now,
		UpdatedAt:        now,
		Definition: domain.WorkflowDefinition{
			Timeout: domain.TimeoutLong,
			Enabled: true,
			Trigger: domain.TriggerConfig{Type: domain.TriggerIncidentCreated, Equals: map[string]interface{}{"priority": "P4"}},
			Nodes: []domain.WorkflowNode{
				{ID: "trigger", Kind: domain.NodeTrigger},
				{ID: "wait", Kind: domain.NodeDelay, DurationMinutes: 30},
				{ID: "is-low-priority", Kind: domain.NodeCondition, Field: "incident.priority", Value: "P4"},
				{ID: "resolve", Kind: domain.NodeAction, Action: domain.ActionWebhook, Params: map[string]interface{}{
					"url":    "{{integration.resolve_url}}",
					"method": "POST",
					"body":   map[string]interface{}{"incident_id": "{{incident.id}}", "action": "resolve"},
				}},
			},
			Edges: []domain.WorkflowEdge{
				{Source: "trigger", Target: "wait"},
				{Source: "wait", Target: "is-low-priority"},
				{Source: "is-low-priority", Target: "resolve", Branch: "true"},
			},
		},
	}
}

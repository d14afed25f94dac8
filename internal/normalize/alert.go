package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
)

// severityAliases maps every recognized input spelling (case-insensitive)
// to its canonical domain.Severity, per spec.md §4.9.
var severityAliases = map[string]domain.Severity{
	"p1": domain.SeverityCritical, "emergency": domain.SeverityCritical, "critical": domain.SeverityCritical,
	"p2": domain.SeverityHigh, "error": domain.SeverityHigh, "high": domain.SeverityHigh,
	"p3": domain.SeverityMedium, "warning": domain.SeverityMedium, "medium": domain.SeverityMedium, "warn": domain.SeverityMedium,
	"p4": domain.SeverityLow, "low": domain.SeverityLow,
	"info": domain.SeverityInfo, "informational": domain.SeverityInfo,
}

// idAliasFields are collapsed into Alert.ExternalID, checked in order.
var idAliasFields = []string{"external_id", "externalId", "id", "alert_id"}

// timestampFields are checked in order for the alert's triggered-at time.
var timestampFields = []string{"timestamp", "triggered_at", "event_time", "occurred_at"}

// MapAlert validates and maps a per-provider decoded payload to the
// canonical Alert shape (spec.md §4.9). Every ProviderKind currently
// falls back to the same "generic" mapping: provider-specific field
// layouts (Datadog, New Relic, PagerDuty) are Non-goals of the
// distilled spec beyond the provider tag itself, so there is nothing
// provider-specific to branch on yet; the switch exists so a future
// provider mapping has somewhere to live without touching callers.
func MapAlert(provider domain.ProviderKind, integrationID string, raw map[string]interface{}) (*domain.Alert, error) {
	switch provider {
	default:
		return mapGeneric(integrationID, raw)
	}
}

func mapGeneric(integrationID string, raw map[string]interface{}) (*domain.Alert, error) {
	title, _ := raw["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("normalize: payload missing required field %q", "title")
	}

	sevRaw, _ := raw["severity"].(string)
	severity, ok := severityAliases[strings.ToLower(strings.TrimSpace(sevRaw))]
	if !ok {
		return nil, fmt.Errorf("normalize: unrecognized severity %q", sevRaw)
	}

	ts, err := findTimestamp(raw)
	if err != nil {
		return nil, err
	}

	description, _ := raw["description"].(string)
	source, _ := raw["source"].(string)

	alert := &domain.Alert{
		Title:         strings.TrimSpace(title),
		Description:   description,
		Severity:      severity,
		Status:        domain.AlertOpen,
		Source:        source,
		ExternalID:    findFirstString(raw, idAliasFields),
		TriggeredAt:   ts,
		Metadata:      raw,
		IntegrationID: integrationID,
	}
	return alert, nil
}

func findFirstString(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch val := v.(type) {
			case string:
				if val != "" {
					return val
				}
			case float64:
				return strconv.FormatFloat(val, 'f', -1, 64)
			}
		}
	}
	return ""
}

func findTimestamp(raw map[string]interface{}) (time.Time, error) {
	for _, k := range timestampFields {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			return ParseTimestamp(val)
		case float64:
			return UnixMagnitude(val), nil
		}
	}
	return time.Time{}, fmt.Errorf("normalize: payload missing a recognized timestamp field")
}

// ParseTimestamp accepts either an RFC3339 string or a Unix numeric
// timestamp (seconds or milliseconds, auto-detected by UnixMagnitude).
// Shared with internal/signature's replay-window check so both parse
// incoming timestamps the same way.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return UnixMagnitude(n), nil
	}
	return time.Time{}, fmt.Errorf("normalize: unparseable timestamp %q", s)
}

// UnixMagnitude auto-detects seconds vs milliseconds by magnitude, per
// spec.md §4.9 ("> 1e12 implies milliseconds").
func UnixMagnitude(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

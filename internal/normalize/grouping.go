package normalize

import "strings"

// GroupingFields lower-cases and trims the fields spec.md §4.2 uses for
// incident-dedup fingerprinting ({title, source, severity, service}),
// so two alerts that differ only by case or whitespace still group
// into the same incident.
func GroupingFields(title, source, severity, service string) (normTitle, normSource string, fields map[string]string) {
	normTitle = strings.ToLower(strings.TrimSpace(title))
	normSource = strings.ToLower(strings.TrimSpace(source))
	fields = map[string]string{
		"severity": strings.ToLower(strings.TrimSpace(severity)),
		"service":  strings.ToLower(strings.TrimSpace(service)),
	}
	return normTitle, normSource, fields
}

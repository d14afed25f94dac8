package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupingFieldsNormalizesCaseAndWhitespace(t *testing.T) {
	title, source, fields := GroupingFields("  High CPU  ", "API-1", "CRITICAL", " checkout ")
	assert.Equal(t, "high cpu", title)
	assert.Equal(t, "api-1", source)
	assert.Equal(t, "critical", fields["severity"])
	assert.Equal(t, "checkout", fields["service"])
}

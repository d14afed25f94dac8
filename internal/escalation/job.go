package escalation

import (
	"encoding/json"

	"github.com/onwatch/sentinel/internal/domain"
)

func encodeJob(job *domain.EscalationJob) []byte {
	b, _ := json.Marshal(job)
	return b
}

func decodeJob(raw []byte) (*domain.EscalationJob, error) {
	var job domain.EscalationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

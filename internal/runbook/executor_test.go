package runbook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/store/memstore"
	"github.com/onwatch/sentinel/resilience"
)

type fakeDoer struct {
	status      int
	lastRequest *http.Request
	lastBody    string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastRequest = req
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.lastBody = string(b)
	}
	return &http.Response{StatusCode: f.status, Body: io.NopCloser(bytes.NewReader([]byte("ok")))}, nil
}

func newExecutor(t *testing.T, doer *fakeDoer) (*Executor, *memstore.Store) {
	t.Helper()
	cb, err := resilience.NewCircuitBreaker(nil)
	require.NoError(t, err)
	st := memstore.New()
	return NewExecutor(st, doer, cb), st
}

func approvedRunbook() *domain.Runbook {
	return &domain.Runbook{
		ID:              "rb-1",
		URL:             "https://example.com/hook",
		Method:          "POST",
		PayloadTemplate: `{"service":"{{service}}"}`,
		ParamSchema:     []domain.ParamSchema{{Name: "service", Type: domain.ParamString, Required: true}},
		TimeoutSeconds:  5,
		ApprovalStatus:  domain.ApprovalApproved,
	}
}

func TestExecutorRunSucceeds(t *testing.T) {
	doer := &fakeDoer{status: 200}
	exec, _ := newExecutor(t, doer)

	result, err := exec.Run(context.Background(), approvedRunbook(), map[string]interface{}{"service": "checkout"}, domain.TriggeredByManual)
	require.NoError(t, err)
	assert.Equal(t, domain.RunbookSuccess, result.Status)
	assert.Equal(t, `{"service":"checkout"}`, doer.lastBody)
}

func TestExecutorRunRejectsNonApproved(t *testing.T) {
	doer := &fakeDoer{status: 200}
	exec, _ := newExecutor(t, doer)

	r := approvedRunbook()
	r.ApprovalStatus = domain.ApprovalDraft
	_, err := exec.Run(context.Background(), r, map[string]interface{}{"service": "checkout"}, domain.TriggeredByManual)
	assert.Error(t, err)
}

func TestExecutorRunRejectsMissingRequiredParam(t *testing.T) {
	doer := &fakeDoer{status: 200}
	exec, _ := newExecutor(t, doer)

	_, err := exec.Run(context.Background(), approvedRunbook(), map[string]interface{}{}, domain.TriggeredByManual)
	assert.Error(t, err)
}

func TestExecutorRunMarksFailureOnErrorStatus(t *testing.T) {
	doer := &fakeDoer{status: 500}
	exec, _ := newExecutor(t, doer)

	result, err := exec.Run(context.Background(), approvedRunbook(), map[string]interface{}{"service": "checkout"}, domain.TriggeredByManual)
	require.NoError(t, err)
	assert.Equal(t, domain.RunbookFailed, result.Status)
}

func TestExecutorRunRejectsWhileAlreadyRunning(t *testing.T) {
	doer := &fakeDoer{status: 200}
	exec, st := newExecutor(t, doer)

	require.NoError(t, st.CreateRunbookExecution(context.Background(), &domain.RunbookExecution{
		ID: "existing", RunbookID: "rb-1", Status: domain.RunbookRunning,
	}))

	_, err := exec.Run(context.Background(), approvedRunbook(), map[string]interface{}{"service": "checkout"}, domain.TriggeredByManual)
	assert.Error(t, err)
}

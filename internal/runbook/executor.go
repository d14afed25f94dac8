package runbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/resilience"
)

// HTTPDoer is the minimal HTTP client seam, letting tests substitute a
// fake transport without pulling in net/http/httptest plumbing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor runs an APPROVED runbook's webhook call against caller-
// supplied parameters.
type Executor struct {
	store Store
	http  HTTPDoer
	cb    *resilience.CircuitBreaker
}

func NewExecutor(store Store, doer HTTPDoer, cb *resilience.CircuitBreaker) *Executor {
	return &Executor{store: store, http: doer, cb: cb}
}

// Run validates parameters against the runbook's ParamSchema,
// substitutes them into PayloadTemplate, and performs the HTTP call.
// Execution is serialized per runbook: a second manual trigger while
// one is already PENDING/RUNNING is rejected outright.
func (e *Executor) Run(ctx context.Context, r *domain.Runbook, params map[string]interface{}, triggeredBy domain.RunbookTrigger) (*domain.RunbookExecution, error) {
	if err := EnsureExecutable(r); err != nil {
		return nil, err
	}
	running, err := e.store.HasRunningRunbookExecution(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, fmt.Errorf("runbook: execution already in progress for runbook %s", r.ID)
	}

	resolved, err := applyDefaultsAndValidate(r.ParamSchema, params)
	if err != nil {
		return nil, err
	}

	exec := &domain.RunbookExecution{
		ID:          uuid.NewString(),
		RunbookID:   r.ID,
		Parameters:  resolved,
		TriggeredBy: triggeredBy,
		Status:      domain.RunbookRunning,
		StartedAt:   time.Now(),
	}
	if err := e.store.CreateRunbookExecution(ctx, exec); err != nil {
		return nil, err
	}

	e.perform(ctx, r, exec)
	if err := e.store.UpdateRunbookExecution(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

func (e *Executor) perform(ctx context.Context, r *domain.Runbook, exec *domain.RunbookExecution) {
	start := time.Now()
	body := interpolateParams(r.PayloadTemplate, exec.Parameters)

	timeout := time.Duration(r.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := e.cb.Execute(reqCtx, func() error {
		req, err := http.NewRequestWithContext(reqCtx, r.Method, r.URL, bytes.NewReader([]byte(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range r.Headers {
			req.Header.Set(k, v)
		}
		applyAuth(req, r.Auth)

		resp, err := e.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		exec.StatusCode = resp.StatusCode
		exec.Result = string(payload)
		if resp.StatusCode >= 400 {
			return fmt.Errorf("runbook: webhook responded with status %d", resp.StatusCode)
		}
		return nil
	})

	exec.Duration = time.Since(start)
	if err != nil {
		exec.Status = domain.RunbookFailed
		exec.Error = err.Error()
		return
	}
	exec.Status = domain.RunbookSuccess
}

func applyAuth(req *http.Request, auth domain.RunbookAuth) {
	switch auth.Kind {
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.BearerToken)
	case domain.AuthBasic:
		req.SetBasicAuth(auth.BasicUser, auth.BasicPassword)
	case domain.AuthHeaders:
		for k, v := range auth.CustomHeaders {
			req.Header.Set(k, v)
		}
	case domain.AuthOAuth2:
		// No token is fetched and no header is set for this kind: the
		// request goes out without authentication.
	}
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

func interpolateParams(template string, params map[string]interface{}) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := params[name]
		if !ok {
			return ""
		}
		switch val := v.(type) {
		case string:
			return val
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return fmt.Sprintf("%v", val)
			}
			return string(b)
		}
	})
}

func applyDefaultsAndValidate(schema []domain.ParamSchema, params map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, field := range schema {
		v, present := out[field.Name]
		if !present {
			if field.Required {
				return nil, fmt.Errorf("runbook: missing required parameter %q", field.Name)
			}
			if field.Default != nil {
				out[field.Name] = field.Default
			}
			continue
		}
		if err := validateType(field, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func validateType(field domain.ParamSchema, v interface{}) error {
	switch field.Type {
	case domain.ParamString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("runbook: parameter %q must be a string", field.Name)
		}
	case domain.ParamNumber:
		switch v.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("runbook: parameter %q must be a number", field.Name)
		}
	case domain.ParamBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("runbook: parameter %q must be a boolean", field.Name)
		}
	}
	if len(field.Enum) > 0 && !containsValue(field.Enum, v) {
		return fmt.Errorf("runbook: parameter %q must be one of %v", field.Name, field.Enum)
	}
	return nil
}

func containsValue(enum []interface{}, v interface{}) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

// Package actions implements workflow.ActionExecutor: the webhook,
// Jira, and Linear ticket-creation side effects a workflow action node
// can perform.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/onwatch/sentinel/internal/domain"
)

// HTTPDoer is the minimal HTTP client seam shared with internal/runbook,
// grounded on pkg/communication/k8s_communicator.go's CallAgentWithTimeout
// (context-bound request, single Do call, status-code check) and
// orchestration/workflow_executor.go's CallService (JSON POST + decode).
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher routes an action node to its concrete handler. Each
// handler takes the node's raw params (already template-interpolated
// by internal/workflow) and returns a result map merged back into the
// workflow's templating context.
type Dispatcher struct {
	http    HTTPDoer
	tickets *TicketClients
}

func NewDispatcher(http HTTPDoer, tickets *TicketClients) *Dispatcher {
	return &Dispatcher{http: http, tickets: tickets}
}

func (d *Dispatcher) Execute(ctx context.Context, action domain.ActionKind, params map[string]interface{}) (map[string]interface{}, error) {
	switch action {
	case domain.ActionWebhook:
		return d.webhook(ctx, params)
	case domain.ActionJira:
		return d.tickets.CreateJira(ctx, params)
	case domain.ActionLinear:
		return d.tickets.CreateLinear(ctx, params)
	default:
		return nil, fmt.Errorf("actions: unsupported action kind %q", action)
	}
}

func (d *Dispatcher) webhook(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("actions: webhook action missing \"url\" param")
	}
	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	var body []byte
	if payload, ok := params["body"]; ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("actions: encoding webhook body: %w", err)
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("actions: building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := params["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actions: calling webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("actions: webhook %s responded with status %d", url, resp.StatusCode)
	}

	result := map[string]interface{}{"status_code": resp.StatusCode}
	var decoded interface{}
	if json.Unmarshal(respBody, &decoded) == nil {
		result["body"] = decoded
	} else {
		result["body"] = string(respBody)
	}
	return result, nil
}

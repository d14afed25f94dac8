package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/onwatch/sentinel/internal/domain"
)

// TicketClients creates external tickets for the jira and linear
// action kinds. Both providers authenticate via OAuth2 client
// credentials; the resolved token is cached by TokenSource.
type TicketClients struct {
	http   HTTPDoer
	tokens *TokenSource
	jira   clientcredentials.Config
	linear clientcredentials.Config
}

func NewTicketClients(doer HTTPDoer, tokens *TokenSource, jira, linear clientcredentials.Config) *TicketClients {
	return &TicketClients{http: doer, tokens: tokens, jira: jira, linear: linear}
}

func (c *TicketClients) CreateJira(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	project, _ := params["project"].(string)
	summary, _ := params["summary"].(string)
	if project == "" || summary == "" {
		return nil, fmt.Errorf("actions: jira action requires \"project\" and \"summary\"")
	}

	tok, err := c.tokens.Token(ctx, c.jira)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"fields": map[string]interface{}{
			"project":     map[string]string{"key": project},
			"summary":     summary,
			"description": params["description"],
			"issuetype":   map[string]string{"name": "Incident"},
		},
	}
	raw, _ := json.Marshal(body)

	baseURL, _ := params["base_url"].(string)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/rest/api/2/issue", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("actions: building jira request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	result, err := doTicketRequest(c.http, req, "jira")
	if err != nil {
		return nil, err
	}
	if id, _ := result["id"].(string); id != "" {
		key, _ := result["key"].(string)
		result["ticket"] = ticket("jira", id, key, baseURL+"/browse/"+key)
	}
	return result, nil
}

func (c *TicketClients) CreateLinear(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	teamID, _ := params["team_id"].(string)
	title, _ := params["title"].(string)
	if teamID == "" || title == "" {
		return nil, fmt.Errorf("actions: linear action requires \"team_id\" and \"title\"")
	}

	tok, err := c.tokens.Token(ctx, c.linear)
	if err != nil {
		return nil, err
	}

	query := `mutation($input: IssueCreateInput!) { issueCreate(input: $input) { success issue { id identifier url } } }`
	body := map[string]interface{}{
		"query": query,
		"variables": map[string]interface{}{
			"input": map[string]interface{}{
				"teamId":      teamID,
				"title":       title,
				"description": params["description"],
			},
		},
	}
	raw, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.linear.app/graphql", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("actions: building linear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	return doTicketRequest(c.http, req, "linear")
}

func doTicketRequest(doer HTTPDoer, req *http.Request, provider string) (map[string]interface{}, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actions: calling %s: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("actions: %s responded with status %d", provider, resp.StatusCode)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]interface{}{"raw": string(raw)}, nil
	}
	return decoded, nil
}

func ticket(typ, id, key, url string) domain.Ticket {
	return domain.Ticket{Type: typ, ID: id, Key: key, URL: url, CreatedAt: time.Now()}
}

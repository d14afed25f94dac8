// Package domain defines the entities of the alert-to-incident pipeline:
// integrations, webhook deliveries, alerts, incidents, escalation
// policies and jobs, workflows, runbooks, and audit events. These are
// plain value/record types; behavior lives in the packages that operate
// on them (internal/incident, internal/workflow, internal/runbook, ...).
package domain

import "time"

type ProviderKind string

const (
	ProviderGeneric   ProviderKind = "generic"
	ProviderDatadog   ProviderKind = "datadog"
	ProviderNewRelic  ProviderKind = "newrelic"
	ProviderPagerDuty ProviderKind = "pagerduty"
)

type SignatureAlgorithm string

const (
	AlgoSHA256 SignatureAlgorithm = "sha256"
	AlgoSHA512 SignatureAlgorithm = "sha512"
)

type SignatureFormat string

const (
	FormatHex    SignatureFormat = "hex"
	FormatBase64 SignatureFormat = "base64"
)

// Integration is a configured inbound webhook source.
type Integration struct {
	ID               string
	Name             string
	Provider         ProviderKind
	TeamID           string // scopes escalation policy + workflow lookup for alerts from this integration
	SigningSecret    []byte // opaque, never re-readable after creation
	SignatureHeader  string
	Algorithm        SignatureAlgorithm
	Format           SignatureFormat
	Prefix           string
	TimestampHeader  string
	MaxAgeSeconds    int // default 300
	DedupWindowMin   int // default 15
	Active           bool
	DefaultServiceID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WebhookDelivery is the immutable record of one inbound webhook request.
type WebhookDelivery struct {
	ID                 string
	IntegrationID      string
	IdempotencyKey     string
	ContentFingerprint string // 64-hex sha-256
	RawPayload         []byte // opaque JSON
	SanitizedHeaders   map[string]string
	HTTPStatus         int
	ErrorMessage       string
	ProcessedAt        time.Time
	AlertID            string
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

type AlertStatus string

const (
	AlertOpen         AlertStatus = "OPEN"
	AlertAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertResolved     AlertStatus = "RESOLVED"
	AlertClosed       AlertStatus = "CLOSED"
)

// Ticket is an external ticket reference appended by an action executor.
type Ticket struct {
	Type      string // jira | linear
	ID        string
	Key       string
	URL       string
	CreatedAt time.Time
}

// Alert is a single normalized event from an integration.
type Alert struct {
	ID            string
	Title         string
	Description   string
	Severity      Severity
	Status        AlertStatus
	Source        string
	ExternalID    string
	TriggeredAt   time.Time
	Metadata      map[string]interface{}
	IntegrationID string
	IncidentID    string
	Tickets       []Ticket
}

type IncidentStatus string

const (
	IncidentOpen         IncidentStatus = "OPEN"
	IncidentAcknowledged IncidentStatus = "ACKNOWLEDGED"
	IncidentResolved     IncidentStatus = "RESOLVED"
)

// Incident groups one or more alerts sharing a dedup fingerprint.
type Incident struct {
	ID                 string
	Fingerprint        string
	Priority           string
	Status             IncidentStatus
	TeamID             string
	AssignedUserID     string
	CurrentLevel       int
	EscalationPolicyID string
	AlertCount         int
	CreatedAt          time.Time
	AcknowledgedAt     *time.Time
	ResolvedAt         *time.Time
}

// EscalationTargetKind identifies who/what an escalation level notifies.
type EscalationTargetKind string

const (
	TargetUser       EscalationTargetKind = "user"
	TargetSchedule   EscalationTargetKind = "schedule"
	TargetEntireTeam EscalationTargetKind = "entire_team"
)

type EscalationTarget struct {
	Kind EscalationTargetKind
	ID   string // user id or schedule id; empty for entire_team
}

// EscalationLevel is one numbered step of a policy.
type EscalationLevel struct {
	Number     int // starts at 1, dense
	TimeoutMin int
	Targets    []EscalationTarget
}

// EscalationPolicy is a team-scoped, ordered set of escalation levels.
type EscalationPolicy struct {
	ID          string
	TeamID      string
	Name        string
	Levels      []EscalationLevel
	RepeatCount int
	IsDefault   bool
}

// EscalationJob is a pending timer for (incidentId, toLevel, cycle).
type EscalationJob struct {
	ID         string // escalation:{incidentId}:{toLevel}:{cycle}
	IncidentID string
	ToLevel    int
	Cycle      int
	DueAt      time.Time
}

type WorkflowScope string

const (
	ScopeTeam   WorkflowScope = "team"
	ScopeGlobal WorkflowScope = "global"
)

type TemplateCategory string

const (
	CategoryTicketing      TemplateCategory = "Ticketing"
	CategoryCommunication  TemplateCategory = "Communication"
	CategoryAutoResolution TemplateCategory = "Auto-resolution"
)

// NodeKind enumerates workflow DAG node types.
type NodeKind string

const (
	NodeTrigger   NodeKind = "trigger"
	NodeAction    NodeKind = "action"
	NodeCondition NodeKind = "condition"
	NodeDelay     NodeKind = "delay"
)

// ActionKind enumerates supported action-node executors.
type ActionKind string

const (
	ActionWebhook ActionKind = "webhook"
	ActionJira    ActionKind = "jira"
	ActionLinear  ActionKind = "linear"
)

// RetryPolicy configures action-node retries.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Backoff      float64 // exponential factor
}

// WorkflowNode is one node in a WorkflowDefinition's DAG.
type WorkflowNode struct {
	ID              string
	Kind            NodeKind
	Action          ActionKind // when Kind == action
	Params          map[string]interface{}
	Retry           *RetryPolicy // when Kind == action
	Field           string       // when Kind == condition: field to inspect
	Value           interface{}  // when Kind == condition: value to compare
	DurationMinutes int          // when Kind == delay
}

// WorkflowEdge connects two nodes, optionally guarded by a branch label
// ("true"/"false") emitted by a condition node.
type WorkflowEdge struct {
	Source string
	Target string
	Branch string // "", "true", or "false"
}

type TriggerType string

const (
	TriggerIncidentCreated TriggerType = "incident_created"
	TriggerStateChanged    TriggerType = "state_changed"
	TriggerEscalation      TriggerType = "escalation"
	TriggerManual          TriggerType = "manual"
	TriggerAge             TriggerType = "age"
)

// TriggerConfig describes when a workflow fires automatically.
type TriggerConfig struct {
	Type            TriggerType
	Equals          map[string]interface{} // field -> expected value, ANDed
	FromStatus      IncidentStatus         // for state_changed, optional
	ToStatus        IncidentStatus         // for state_changed, optional
	AgeThresholdMin int                    // for age
}

type WorkflowTimeout time.Duration

const (
	TimeoutShort  = WorkflowTimeout(60 * time.Second)
	TimeoutMedium = WorkflowTimeout(300 * time.Second)
	TimeoutLong   = WorkflowTimeout(900 * time.Second)
)

// WorkflowDefinition is the DAG plus trigger config and settings; it is
// snapshotted into every WorkflowExecution at enqueue time.
type WorkflowDefinition struct {
	Nodes   []WorkflowNode
	Edges   []WorkflowEdge
	Trigger TriggerConfig
	Timeout WorkflowTimeout
	Enabled bool
}

// Workflow is the mutable, versioned envelope around a WorkflowDefinition.
type Workflow struct {
	ID               string
	Name             string
	Description      string
	Scope            WorkflowScope
	TeamID           string
	Version          int
	Enabled          bool
	Definition       WorkflowDefinition
	IsTemplate       bool
	TemplateCategory TemplateCategory
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WorkflowVersion is an immutable snapshot of a Workflow's definition.
type WorkflowVersion struct {
	WorkflowID string
	Version    int
	Definition WorkflowDefinition
	ChangeNote string
	ChangedBy  string
	CreatedAt  time.Time
}

type ExecutionStatus string

const (
	ExecPending   ExecutionStatus = "PENDING"
	ExecRunning   ExecutionStatus = "RUNNING"
	ExecCompleted ExecutionStatus = "COMPLETED"
	ExecFailed    ExecutionStatus = "FAILED"
	ExecCancelled ExecutionStatus = "CANCELLED"
)

type NodeResultStatus string

const (
	NodeCompleted NodeResultStatus = "completed"
	NodeFailed    NodeResultStatus = "failed"
	NodeSkipped   NodeResultStatus = "skipped"
)

// NodeResult is appended to a WorkflowExecution's CompletedNodes after
// each node finishes.
type NodeResult struct {
	NodeID      string
	Status      NodeResultStatus
	Result      map[string]interface{}
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// WorkflowExecution is the crash-safe, persisted record of one workflow
// run; CompletedNodes and CurrentNodeID are updated after every node.
type WorkflowExecution struct {
	ID             string
	WorkflowID     string
	IncidentID     string
	Definition     WorkflowDefinition // snapshot at trigger time
	Status         ExecutionStatus
	CurrentNodeID  string
	CompletedNodes []NodeResult
	StartedAt      time.Time
	CompletedAt    *time.Time
	FailedAt       *time.Time
	Error          string
}

type AuthKind string

const (
	AuthNone    AuthKind = "none"
	AuthBearer  AuthKind = "bearer"
	AuthBasic   AuthKind = "basic"
	AuthOAuth2  AuthKind = "oauth2_client_credentials"
	AuthHeaders AuthKind = "custom_headers"
)

// RunbookAuth configures how a Runbook's webhook call authenticates.
type RunbookAuth struct {
	Kind           AuthKind
	BearerToken    string
	BasicUser      string
	BasicPassword  string
	OAuth2TokenURL string
	OAuth2ClientID string
	OAuth2Secret   string
	OAuth2Scopes   []string
	CustomHeaders  map[string]string
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// ParamSchema describes one entry of a Runbook's flat parameter schema.
type ParamSchema struct {
	Name     string
	Type     ParamType
	Required bool
	Default  interface{}
	Enum     []interface{}
}

type ApprovalStatus string

const (
	ApprovalDraft      ApprovalStatus = "DRAFT"
	ApprovalApproved   ApprovalStatus = "APPROVED"
	ApprovalDeprecated ApprovalStatus = "DEPRECATED"
)

// Runbook is a versioned, approval-gated webhook action definition.
type Runbook struct {
	ID              string
	Name            string
	Description     string
	URL             string
	Method          string // POST | PUT | PATCH
	Headers         map[string]string
	Auth            RunbookAuth
	ParamSchema     []ParamSchema
	PayloadTemplate string
	TimeoutSeconds  int    // 30..900
	TeamID          string // empty => global
	Version         int
	ApprovalStatus  ApprovalStatus
	Approver        string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RunbookVersion is an immutable snapshot of a Runbook's definition.
type RunbookVersion struct {
	RunbookID  string
	Version    int
	Definition Runbook
	ChangeNote string
	ChangedBy  string
	CreatedAt  time.Time
}

type RunbookTrigger string

const (
	TriggeredByWorkflow RunbookTrigger = "workflow"
	TriggeredByManual   RunbookTrigger = "manual"
)

type RunbookExecStatus string

const (
	RunbookPending RunbookExecStatus = "PENDING"
	RunbookRunning RunbookExecStatus = "RUNNING"
	RunbookSuccess RunbookExecStatus = "SUCCESS"
	RunbookFailed  RunbookExecStatus = "FAILED"
)

// RunbookExecution is one invocation record of a Runbook.
type RunbookExecution struct {
	ID          string
	RunbookID   string
	Parameters  map[string]interface{}
	TriggeredBy RunbookTrigger
	Status      RunbookExecStatus
	StatusCode  int
	Result      string // truncated to 1kB
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

type AuditSeverity string

const (
	AuditInfo     AuditSeverity = "INFO"
	AuditWarn     AuditSeverity = "WARN"
	AuditHigh     AuditSeverity = "HIGH"
	AuditCritical AuditSeverity = "CRITICAL"
)

// AuditEvent is one append-only record of a mutating or security-relevant
// action.
type AuditEvent struct {
	ID           string
	Action       string
	Actor        string
	TeamID       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]interface{}
	Severity     AuditSeverity
	CreatedAt    time.Time
}

// TriggerEvent is the internal signal that drives workflow matching.
type TriggerEvent struct {
	Type       TriggerType
	IncidentID string
	FromStatus IncidentStatus
	ToStatus   IncidentStatus
	AgeMinutes int
	Manual     bool
	Data       map[string]interface{} // incident fields, checked against TriggerConfig.Equals
}

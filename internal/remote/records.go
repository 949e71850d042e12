package remote

// Records mirror the remote store's field names. Optional numeric and string
// fields are pointers so the mapper can substitute defaults.

type AgentRecord struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Role           string             `json:"role,omitempty"`
	Emoji          string             `json:"emoji,omitempty"`
	Status         string             `json:"status,omitempty"`
	Description    string             `json:"description,omitempty"`
	TasksCompleted *int               `json:"tasks_completed,omitempty"`
	CurrentTask    *string            `json:"current_task,omitempty"`
	Uptime         string             `json:"uptime,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	SystemPrompt   *string            `json:"system_prompt,omitempty"`
	Tools          []string           `json:"tools,omitempty"`
	IsActive       *bool              `json:"is_active,omitempty"`
}

type TaskRecord struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	AssignedTo   string   `json:"assigned_to,omitempty"`
	AssignedBy   string   `json:"assigned_by,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
	Status       string   `json:"status,omitempty"`
	Deadline     *string  `json:"deadline,omitempty"`
	ParentTaskID *string  `json:"parent_task_id,omitempty"`
	ProjectID    *string  `json:"project_id,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

type ProjectRecord struct {
	ID              string  `json:"id,omitempty"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	Status          string  `json:"status,omitempty"`
	DepartmentID    *string `json:"department_id,omitempty"`
	LeadAgentID     *string `json:"lead_agent_id,omitempty"`
	TargetDate      *string `json:"target_date,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	ParentProjectID *string `json:"parent_project_id,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

type DepartmentRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type InitiativeRecord struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Due    string `json:"due,omitempty"`
}

type GoalRecord struct {
	ID          string             `json:"id,omitempty"`
	Title       string             `json:"title"`
	Description *string            `json:"description,omitempty"`
	Progress    *int               `json:"progress,omitempty"`
	Status      string             `json:"status,omitempty"`
	OwnerID     *string            `json:"owner_id,omitempty"`
	TargetDate  *string            `json:"target_date,omitempty"`
	Initiatives []InitiativeRecord `json:"initiatives,omitempty"`
}

type KPIRecord struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Change   *float64 `json:"change,omitempty"`
	Trend    string   `json:"trend,omitempty"`
	Category string   `json:"category,omitempty"`
}

type ActivityRecord struct {
	ID         string `json:"id"`
	AgentName  string `json:"agent_name"`
	AgentEmoji string `json:"agent_emoji,omitempty"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	Type       string `json:"type,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type MessageRecord struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name,omitempty"`
	Content    string `json:"content"`
	Type       string `json:"type,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type FeatureRequestRecord struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Screenshot  *string `json:"screenshot_url,omitempty"`
	SourceView  *string `json:"source_view,omitempty"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type DirectiveRecord struct {
	AgentID  string `json:"agent_id"`
	Content  string `json:"content"`
	IssuedBy string `json:"issued_by,omitempty"`
}

// DashboardSnapshot is the single-call payload of fetch-dashboard-snapshot.
type DashboardSnapshot struct {
	Agents      []AgentRecord      `json:"agents"`
	Tasks       []TaskRecord       `json:"tasks"`
	Projects    []ProjectRecord    `json:"projects"`
	Departments []DepartmentRecord `json:"departments"`
	Goals       []GoalRecord       `json:"goals"`
	KPIs        []KPIRecord        `json:"kpis"`
	Activity    []ActivityRecord   `json:"activity"`
	Messages    []MessageRecord    `json:"messages"`
}

// Created is the response of every create operation.
type Created struct {
	ID string `json:"id"`
}

// ChatReply is the response of send-message.
type ChatReply struct {
	ReplyText string `json:"reply"`
	ThreadID  string `json:"thread_id"`
}

// Patch is a partial remote write: keys are remote field names, a nil value
// clears the field.
type Patch map[string]any

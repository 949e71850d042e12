package domain

// OperatorID is the assignee sentinel that stands for the human operator.
const (
	OperatorID    = "tiger"
	OperatorName  = "Tiger"
	OperatorEmoji = "🐯"
)

// JustNow is the relative timestamp given to locally synthesized entries.
const JustNow = "just now"

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentIdle     AgentStatus = "idle"
	AgentWorking  AgentStatus = "working"
	AgentError    AgentStatus = "error"
	AgentSpawning AgentStatus = "spawning"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentActive, AgentIdle, AgentWorking, AgentError, AgentSpawning:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityMedium   TaskPriority = "medium"
	PriorityLow      TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
)

// TaskStatuses lists the kanban columns in board order.
var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskReview, TaskCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskReview, TaskCompleted:
		return true
	}
	return false
}

// Next returns the single forward step offered by the primary action button.
// Completed tasks have no next step.
func (s TaskStatus) Next() (TaskStatus, bool) {
	switch s {
	case TaskPending:
		return TaskInProgress, true
	case TaskInProgress:
		return TaskReview, true
	case TaskReview:
		return TaskCompleted, true
	}
	return "", false
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectPaused, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

type GoalStatus string

const (
	GoalOnTrack GoalStatus = "on-track"
	GoalAtRisk  GoalStatus = "at-risk"
	GoalAhead   GoalStatus = "ahead"
	GoalBehind  GoalStatus = "behind"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalOnTrack, GoalAtRisk, GoalAhead, GoalBehind:
		return true
	}
	return false
}

type ActivityType string

const (
	ActivityTask     ActivityType = "task"
	ActivityDecision ActivityType = "decision"
	ActivityReport   ActivityType = "report"
	ActivitySpawn    ActivityType = "spawn"
	ActivityAlert    ActivityType = "alert"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTask, ActivityDecision, ActivityReport, ActivitySpawn, ActivityAlert:
		return true
	}
	return false
}

type IdeaStatus string

const (
	IdeaNew          IdeaStatus = "new"
	IdeaAcknowledged IdeaStatus = "acknowledged"
	IdeaInProgress   IdeaStatus = "in_progress"
	IdeaDone         IdeaStatus = "done"
	IdeaDismissed    IdeaStatus = "dismissed"
)

func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaNew, IdeaAcknowledged, IdeaInProgress, IdeaDone, IdeaDismissed:
		return true
	}
	return false
}

type IdeaPriority string

const (
	IdeaLow      IdeaPriority = "low"
	IdeaMedium   IdeaPriority = "medium"
	IdeaHigh     IdeaPriority = "high"
	IdeaCritical IdeaPriority = "critical"
)

func (p IdeaPriority) Valid() bool {
	switch p {
	case IdeaLow, IdeaMedium, IdeaHigh, IdeaCritical:
		return true
	}
	return false
}

type MessageType string

const (
	MessageChat      MessageType = "message"
	MessageDirective MessageType = "directive"
	MessageReport    MessageType = "report"
	MessageAlert     MessageType = "alert"
	MessageSystem    MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageChat, MessageDirective, MessageReport, MessageAlert, MessageSystem:
		return true
	}
	return false
}

type Sender string

const (
	SenderOperator Sender = "operator"
	SenderAgent    Sender = "agent"
)

type KPITrend string

const (
	TrendUp     KPITrend = "up"
	TrendDown   KPITrend = "down"
	TrendStable KPITrend = "stable"
)

type Agent struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Role           string             `json:"role"`
	Emoji          string             `json:"emoji,omitempty"`
	Status         AgentStatus        `json:"status" enum:"active,idle,working,error,spawning"`
	Description    string             `json:"description,omitempty"`
	TasksCompleted int                `json:"tasks_completed"`
	CurrentTask    string             `json:"current_task,omitempty"`
	Uptime         string             `json:"uptime,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	SystemPrompt   string             `json:"system_prompt,omitempty"`
	Tools          []string           `json:"tools,omitempty"`
}

type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	AssignedTo   string       `json:"assigned_to"`
	AssignedBy   string       `json:"assigned_by"`
	Priority     TaskPriority `json:"priority" enum:"critical,high,medium,low"`
	Status       TaskStatus   `json:"status" enum:"pending,in_progress,review,completed"`
	Deadline     string       `json:"deadline,omitempty"`
	ParentTaskID string       `json:"parent_task_id,omitempty"`
	ProjectID    string       `json:"project_id,omitempty"`
	ProjectCode  string       `json:"project_code,omitempty"`
	ProjectName  string       `json:"project_name,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	CreatedAt    string       `json:"created_at" format:"date-time"`
}

// AssignedToOperator reports whether the task counts toward the operator's queue.
func (t Task) AssignedToOperator() bool {
	return t.AssignedTo == OperatorID
}

type Project struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Code               string        `json:"code"`
	Description        string        `json:"description,omitempty"`
	Status             ProjectStatus `json:"status" enum:"active,paused,completed,archived"`
	DepartmentID       string        `json:"department_id,omitempty"`
	DepartmentName     string        `json:"department_name,omitempty"`
	LeadAgentID        string        `json:"lead_agent_id,omitempty"`
	TargetDate         string        `json:"target_date,omitempty"`
	TaskCount          int           `json:"task_count"`
	CompletedTaskCount int           `json:"completed_task_count"`
	Notes              string        `json:"notes,omitempty"`
	CreatedAt          string        `json:"created_at" format:"date-time"`
	ParentProjectID    string        `json:"parent_project_id,omitempty"`
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Initiative struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Due    string `json:"due,omitempty"`
}

type Goal struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Progress    int          `json:"progress"`
	Status      GoalStatus   `json:"status" enum:"on-track,at-risk,ahead,behind"`
	OwnerID     string       `json:"owner_id,omitempty"`
	OwnerName   string       `json:"owner_name,omitempty"`
	OwnerEmoji  string       `json:"owner_emoji,omitempty"`
	TargetDate  string       `json:"target_date,omitempty"`
	Initiatives []Initiative `json:"initiatives,omitempty"`
}

type KPI struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Change   float64  `json:"change"`
	Trend    KPITrend `json:"trend" enum:"up,down,stable"`
	Category string   `json:"category,omitempty"`
}

type ActivityItem struct {
	ID         string       `json:"id"`
	AgentName  string       `json:"agent_name"`
	AgentEmoji string       `json:"agent_emoji,omitempty"`
	Action     string       `json:"action"`
	Detail     string       `json:"detail"`
	Timestamp  string       `json:"timestamp"`
	Type       ActivityType `json:"type" enum:"task,decision,report,spawn,alert"`
}

type FeatureRequest struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Screenshot  string       `json:"screenshot,omitempty"`
	SourceView  string       `json:"source_view,omitempty"`
	Status      IdeaStatus   `json:"status" enum:"new,acknowledged,in_progress,done,dismissed"`
	Priority    IdeaPriority `json:"priority" enum:"low,medium,high,critical"`
	CreatedAt   string       `json:"created_at" format:"date-time"`
	UpdatedAt   string       `json:"updated_at" format:"date-time"`
}

type Message struct {
	ID         string      `json:"id"`
	Sender     Sender      `json:"sender" enum:"operator,agent"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	Timestamp  string      `json:"timestamp"`
	Type       MessageType `json:"type" enum:"message,directive,report,alert,system"`
}

// Snapshot is the full set of collections held by the entity store.
type Snapshot struct {
	Agents      []Agent          `json:"agents"`
	Tasks       []Task           `json:"tasks"`
	Projects    []Project        `json:"projects"`
	Departments []Department     `json:"departments"`
	Goals       []Goal           `json:"goals"`
	KPIs        []KPI            `json:"kpis"`
	Activity    []ActivityItem   `json:"activity"`
	Messages    []Message        `json:"messages"`
	Ideas       []FeatureRequest `json:"ideas"`
}

// Counters are the badge values derived from the store.
type Counters struct {
	PendingTasks int `json:"pending_tasks"`
	NewIdeas     int `json:"new_ideas"`
}

// Key methods let generic collection helpers address entities by id.

func (a Agent) Key() string           { return a.ID }
func (t Task) Key() string            { return t.ID }
func (p Project) Key() string         { return p.ID }
func (d Department) Key() string      { return d.ID }
func (g Goal) Key() string            { return g.ID }
func (k KPI) Key() string             { return k.ID }
func (a ActivityItem) Key() string    { return a.ID }
func (fr FeatureRequest) Key() string { return fr.ID }
func (m Message) Key() string         { return m.ID }

package server

import (
	"encoding/json"
	"time"

	"opsdeck/internal/domain"
	"opsdeck/internal/view"
)

// Request payloads

type CredentialsRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type CreateTaskRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	AssignedTo   string   `json:"assigned_to,omitempty"`
	Priority     string   `json:"priority,omitempty" enum:"critical,high,medium,low"`
	Deadline     string   `json:"deadline,omitempty"`
	ParentTaskID string   `json:"parent_task_id,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// UpdateTaskRequest is a partial update. Clearable fields accept null to
// remove the value; omitted fields are left alone.
type UpdateTaskRequest struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty" nullable:"true"`
	AssignedTo   *string   `json:"assigned_to,omitempty"`
	Priority     *string   `json:"priority,omitempty" enum:"critical,high,medium,low"`
	Status       *string   `json:"status,omitempty" enum:"pending,in_progress,review,completed"`
	Deadline     *string   `json:"deadline,omitempty" nullable:"true"`
	ParentTaskID *string   `json:"parent_task_id,omitempty" nullable:"true"`
	ProjectID    *string   `json:"project_id,omitempty" nullable:"true"`
	Tags         *[]string `json:"tags,omitempty"`
}

type TaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in_progress,review,completed"`
}

type SpawnAgentRequest struct {
	Name         string   `json:"name"`
	Role         string   `json:"role,omitempty"`
	Emoji        string   `json:"emoji,omitempty"`
	Description  string   `json:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

type UpdateAgentRequest struct {
	Name         *string   `json:"name,omitempty"`
	Active       *bool     `json:"active,omitempty"`
	SystemPrompt *string   `json:"system_prompt,omitempty"`
	Tools        *[]string `json:"tools,omitempty"`
}

type DirectiveRequest struct {
	Content string `json:"content"`
}

type CreateProjectRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status,omitempty" enum:"active,paused,completed,archived"`
	DepartmentID    string `json:"department_id,omitempty"`
	LeadAgentID     string `json:"lead_agent_id,omitempty"`
	TargetDate      string `json:"target_date,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ParentProjectID string `json:"parent_project_id,omitempty"`
}

type UpdateProjectRequest struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty" nullable:"true"`
	Status          *string `json:"status,omitempty" enum:"active,paused,completed,archived"`
	DepartmentID    *string `json:"department_id,omitempty" nullable:"true"`
	LeadAgentID     *string `json:"lead_agent_id,omitempty" nullable:"true"`
	TargetDate      *string `json:"target_date,omitempty" nullable:"true"`
	Notes           *string `json:"notes,omitempty" nullable:"true"`
	ParentProjectID *string `json:"parent_project_id,omitempty" nullable:"true"`
}

type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Progress    int    `json:"progress,omitempty"`
	Status      string `json:"status,omitempty" enum:"on-track,at-risk,ahead,behind"`
	OwnerID     string `json:"owner_id,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
}

type UpdateGoalRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty" nullable:"true"`
	Progress    *int    `json:"progress,omitempty"`
	Status      *string `json:"status,omitempty" enum:"on-track,at-risk,ahead,behind"`
	OwnerID     *string `json:"owner_id,omitempty" nullable:"true"`
	TargetDate  *string `json:"target_date,omitempty" nullable:"true"`
}

type CreateIdeaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
	SourceView  string `json:"source_view,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"low,medium,high,critical"`
}

type UpdateIdeaRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty" nullable:"true"`
	Status      *string `json:"status,omitempty" enum:"new,acknowledged,in_progress,done,dismissed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high,critical"`
}

type UpdateKPIRequest struct {
	Value string `json:"value"`
}

type ChatRequest struct {
	Content string `json:"content"`
}

type NavigateRequest struct {
	Screen    string `json:"screen" enum:"dashboard,agents,agent_detail,tasks,projects,project_detail,goals,kpis,activity,chat,ideas"`
	ProjectID string `json:"project_id,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
}

type ShortcutRequest struct {
	Key string `json:"key" example:"ctrl+k"`
}

type OverlayRequest struct {
	Open bool `json:"open"`
}

type EditRequest struct {
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
}

type DragRequest struct {
	TaskID string `json:"task_id"`
}

// Response payloads

type SessionResponse struct {
	SignedIn    bool       `json:"signed_in"`
	Required    bool       `json:"required"`
	UserID      string     `json:"user_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
}

type StateResponse struct {
	Snapshot domain.Snapshot `json:"snapshot"`
	Counters domain.Counters `json:"counters"`
	Revision uint64          `json:"revision"`
	Offline  bool            `json:"offline"`
	Source   string          `json:"source" enum:"remote,cache,mock"`
	ThreadID string          `json:"thread_id,omitempty"`
}

type DropResponse struct {
	Task  domain.Task `json:"task"`
	Moved bool        `json:"moved"`
}

type ShortcutResponse struct {
	Handled bool       `json:"handled"`
	State   view.State `json:"state"`
}

type authOutput struct {
	Body SessionResponse `json:"body"`
}

type stateOutput struct {
	Body StateResponse `json:"body"`
}

type countersOutput struct {
	Body domain.Counters `json:"body"`
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type tasksOutput struct {
	Body []domain.Task `json:"body"`
}

type agentOutput struct {
	Body domain.Agent `json:"body"`
}

type agentsOutput struct {
	Body []domain.Agent `json:"body"`
}

type projectOutput struct {
	Body domain.Project `json:"body"`
}

type projectsOutput struct {
	Body []domain.Project `json:"body"`
}

type goalOutput struct {
	Body domain.Goal `json:"body"`
}

type ideaOutput struct {
	Body domain.FeatureRequest `json:"body"`
}

type ideasOutput struct {
	Body []domain.FeatureRequest `json:"body"`
}

type kpiOutput struct {
	Body domain.KPI `json:"body"`
}

type messageOutput struct {
	Body domain.Message `json:"body"`
}

type viewOutput struct {
	Body view.State `json:"body"`
}

// clearable turns an optional request field into a patch field, treating an
// explicit JSON null as a clear.
func clearable(raw map[string]json.RawMessage, key string, v *string) domain.Clearable[string] {
	if isNullRaw(raw[key]) {
		return domain.Cleared[string]()
	}
	if v != nil {
		return domain.SetTo(*v)
	}
	return domain.Clearable[string]{}
}

func enumPtr[T ~string](v *string) *T {
	if v == nil {
		return nil
	}
	out := T(*v)
	return &out
}

func (r UpdateTaskRequest) patch(raw map[string]json.RawMessage) domain.TaskPatch {
	return domain.TaskPatch{
		Title:        r.Title,
		Description:  clearable(raw, "description", r.Description),
		AssignedTo:   r.AssignedTo,
		Priority:     enumPtr[domain.TaskPriority](r.Priority),
		Status:       enumPtr[domain.TaskStatus](r.Status),
		Deadline:     clearable(raw, "deadline", r.Deadline),
		ParentTaskID: clearable(raw, "parent_task_id", r.ParentTaskID),
		ProjectID:    clearable(raw, "project_id", r.ProjectID),
		Tags:         r.Tags,
	}
}

func (r UpdateProjectRequest) patch(raw map[string]json.RawMessage) domain.ProjectPatch {
	return domain.ProjectPatch{
		Title:           r.Title,
		Description:     clearable(raw, "description", r.Description),
		Status:          enumPtr[domain.ProjectStatus](r.Status),
		DepartmentID:    clearable(raw, "department_id", r.DepartmentID),
		LeadAgentID:     clearable(raw, "lead_agent_id", r.LeadAgentID),
		TargetDate:      clearable(raw, "target_date", r.TargetDate),
		Notes:           clearable(raw, "notes", r.Notes),
		ParentProjectID: clearable(raw, "parent_project_id", r.ParentProjectID),
	}
}

func (r UpdateGoalRequest) patch(raw map[string]json.RawMessage) domain.GoalPatch {
	return domain.GoalPatch{
		Title:       r.Title,
		Description: clearable(raw, "description", r.Description),
		Progress:    r.Progress,
		Status:      enumPtr[domain.GoalStatus](r.Status),
		OwnerID:     clearable(raw, "owner_id", r.OwnerID),
		TargetDate:  clearable(raw, "target_date", r.TargetDate),
	}
}

func (r UpdateIdeaRequest) patch(raw map[string]json.RawMessage) domain.IdeaPatch {
	return domain.IdeaPatch{
		Title:       r.Title,
		Description: clearable(raw, "description", r.Description),
		Status:      enumPtr[domain.IdeaStatus](r.Status),
		Priority:    enumPtr[domain.IdeaPriority](r.Priority),
	}
}

func (r UpdateAgentRequest) patch() domain.AgentPatch {
	return domain.AgentPatch{
		Name:         r.Name,
		Active:       r.Active,
		SystemPrompt: r.SystemPrompt,
		Tools:        r.Tools,
	}
}

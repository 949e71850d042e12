package domain

import "strings"

// Clearable is a patch field for values that may be removed. The zero value
// leaves the target untouched; Null clears it; otherwise Value is written.
type Clearable[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// SetTo returns a Clearable that writes v.
func SetTo[T any](v T) Clearable[T] {
	return Clearable[T]{Value: v, Set: true}
}

// Cleared returns a Clearable that resets the target to its zero value.
func Cleared[T any]() Clearable[T] {
	return Clearable[T]{Set: true, Null: true}
}

// Apply writes the patch value into dst when the field is present.
func (c Clearable[T]) Apply(dst *T) {
	if !c.Set {
		return
	}
	if c.Null {
		var zero T
		*dst = zero
		return
	}
	*dst = c.Value
}

// Get returns the value that Apply would write and whether the field is present.
func (c Clearable[T]) Get() (T, bool) {
	if !c.Set || c.Null {
		var zero T
		return zero, c.Set
	}
	return c.Value, true
}

type TaskPatch struct {
	Title        *string
	Description  Clearable[string]
	AssignedTo   *string
	Priority     *TaskPriority
	Status       *TaskStatus
	Deadline     Clearable[string]
	ParentTaskID Clearable[string]
	ProjectID    Clearable[string]
	Tags         *[]string
}

// Fields names the fields carried by the patch, in display order.
func (p TaskPatch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description.Set {
		out = append(out, "description")
	}
	if p.AssignedTo != nil {
		out = append(out, "assignee")
	}
	if p.Priority != nil {
		out = append(out, "priority")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.Deadline.Set {
		out = append(out, "deadline")
	}
	if p.ParentTaskID.Set {
		out = append(out, "parent")
	}
	if p.ProjectID.Set {
		out = append(out, "project")
	}
	if p.Tags != nil {
		out = append(out, "tags")
	}
	return out
}

// Apply merges the patch into t. Denormalized project fields are the
// caller's responsibility.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	p.Description.Apply(&t.Description)
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	p.Deadline.Apply(&t.Deadline)
	p.ParentTaskID.Apply(&t.ParentTaskID)
	p.ProjectID.Apply(&t.ProjectID)
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
}

type ProjectPatch struct {
	Title           *string
	Description     Clearable[string]
	Status          *ProjectStatus
	DepartmentID    Clearable[string]
	LeadAgentID     Clearable[string]
	TargetDate      Clearable[string]
	Notes           Clearable[string]
	ParentProjectID Clearable[string]
}

func (p ProjectPatch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description.Set {
		out = append(out, "description")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.DepartmentID.Set {
		out = append(out, "department")
	}
	if p.LeadAgentID.Set {
		out = append(out, "lead")
	}
	if p.TargetDate.Set {
		out = append(out, "target date")
	}
	if p.Notes.Set {
		out = append(out, "notes")
	}
	if p.ParentProjectID.Set {
		out = append(out, "parent project")
	}
	return out
}

func (p ProjectPatch) Apply(pr *Project) {
	if p.Title != nil {
		pr.Title = strings.TrimSpace(*p.Title)
	}
	p.Description.Apply(&pr.Description)
	if p.Status != nil {
		pr.Status = *p.Status
	}
	p.DepartmentID.Apply(&pr.DepartmentID)
	p.LeadAgentID.Apply(&pr.LeadAgentID)
	p.TargetDate.Apply(&pr.TargetDate)
	p.Notes.Apply(&pr.Notes)
	p.ParentProjectID.Apply(&pr.ParentProjectID)
}

type GoalPatch struct {
	Title       *string
	Description Clearable[string]
	Progress    *int
	Status      *GoalStatus
	OwnerID     Clearable[string]
	TargetDate  Clearable[string]
}

func (p GoalPatch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description.Set {
		out = append(out, "description")
	}
	if p.Progress != nil {
		out = append(out, "progress")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.OwnerID.Set {
		out = append(out, "owner")
	}
	if p.TargetDate.Set {
		out = append(out, "target date")
	}
	return out
}

// Apply merges the patch into g, clamping progress to [0,100].
func (p GoalPatch) Apply(g *Goal) {
	if p.Title != nil {
		g.Title = strings.TrimSpace(*p.Title)
	}
	p.Description.Apply(&g.Description)
	if p.Progress != nil {
		g.Progress = ClampProgress(*p.Progress)
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	p.OwnerID.Apply(&g.OwnerID)
	p.TargetDate.Apply(&g.TargetDate)
}

// ClampProgress bounds a goal progress percentage to [0,100].
func ClampProgress(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

type IdeaPatch struct {
	Title       *string
	Description Clearable[string]
	Status      *IdeaStatus
	Priority    *IdeaPriority
}

func (p IdeaPatch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description.Set {
		out = append(out, "description")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.Priority != nil {
		out = append(out, "priority")
	}
	return out
}

func (p IdeaPatch) Apply(fr *FeatureRequest) {
	if p.Title != nil {
		fr.Title = strings.TrimSpace(*p.Title)
	}
	p.Description.Apply(&fr.Description)
	if p.Status != nil {
		fr.Status = *p.Status
	}
	if p.Priority != nil {
		fr.Priority = *p.Priority
	}
}

type AgentPatch struct {
	Name         *string
	Active       *bool
	SystemPrompt *string
	Tools        *[]string
}

func (p AgentPatch) Fields() []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.Active != nil {
		out = append(out, "active")
	}
	if p.SystemPrompt != nil {
		out = append(out, "system prompt")
	}
	if p.Tools != nil {
		out = append(out, "tools")
	}
	return out
}

// Apply merges the patch into a. The active flag maps onto the agent status:
// activating an idle agent makes it active, deactivating makes it idle.
func (p AgentPatch) Apply(a *Agent) {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Active != nil {
		if *p.Active {
			if a.Status == AgentIdle || a.Status == "" {
				a.Status = AgentActive
			}
		} else {
			a.Status = AgentIdle
		}
	}
	if p.SystemPrompt != nil {
		a.SystemPrompt = *p.SystemPrompt
	}
	if p.Tools != nil {
		a.Tools = append([]string(nil), (*p.Tools)...)
	}
}

package mapper

import (
	"opsdeck/internal/domain"
	"opsdeck/internal/remote"
)

// TaskToRecord builds the create-task payload. Temporary ids are never sent.
func TaskToRecord(t domain.Task) remote.TaskRecord {
	prio := PriorityToRemote(t.Priority)
	return remote.TaskRecord{
		Title:        t.Title,
		Description:  optional(t.Description),
		AssignedTo:   t.AssignedTo,
		AssignedBy:   t.AssignedBy,
		Priority:     &prio,
		Status:       TaskStatusToRemote(t.Status),
		Deadline:     optional(t.Deadline),
		ParentTaskID: optional(t.ParentTaskID),
		ProjectID:    optional(t.ProjectID),
		Tags:         t.Tags,
	}
}

// TaskPatchToRemote renames patch fields to remote names.
func TaskPatchToRemote(p domain.TaskPatch) remote.Patch {
	out := remote.Patch{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	putClearable(out, "description", p.Description)
	if p.AssignedTo != nil {
		out["assigned_to"] = *p.AssignedTo
	}
	if p.Priority != nil {
		out["priority"] = PriorityToRemote(*p.Priority)
	}
	if p.Status != nil {
		out["status"] = TaskStatusToRemote(*p.Status)
	}
	putClearable(out, "deadline", p.Deadline)
	putClearable(out, "parent_task_id", p.ParentTaskID)
	putClearable(out, "project_id", p.ProjectID)
	if p.Tags != nil {
		out["tags"] = *p.Tags
	}
	return out
}

func ProjectToRecord(p domain.Project) remote.ProjectRecord {
	return remote.ProjectRecord{
		Title:           p.Title,
		Description:     optional(p.Description),
		Status:          string(p.Status),
		DepartmentID:    optional(p.DepartmentID),
		LeadAgentID:     optional(p.LeadAgentID),
		TargetDate:      optional(p.TargetDate),
		Notes:           optional(p.Notes),
		ParentProjectID: optional(p.ParentProjectID),
	}
}

func ProjectPatchToRemote(p domain.ProjectPatch) remote.Patch {
	out := remote.Patch{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	putClearable(out, "description", p.Description)
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	putClearable(out, "department_id", p.DepartmentID)
	putClearable(out, "lead_agent_id", p.LeadAgentID)
	putClearable(out, "target_date", p.TargetDate)
	putClearable(out, "notes", p.Notes)
	putClearable(out, "parent_project_id", p.ParentProjectID)
	return out
}

func GoalToRecord(g domain.Goal) remote.GoalRecord {
	progress := domain.ClampProgress(g.Progress)
	return remote.GoalRecord{
		Title:       g.Title,
		Description: optional(g.Description),
		Progress:    &progress,
		Status:      string(g.Status),
		OwnerID:     optional(g.OwnerID),
		TargetDate:  optional(g.TargetDate),
	}
}

func GoalPatchToRemote(p domain.GoalPatch) remote.Patch {
	out := remote.Patch{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	putClearable(out, "description", p.Description)
	if p.Progress != nil {
		out["progress"] = domain.ClampProgress(*p.Progress)
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	putClearable(out, "owner_id", p.OwnerID)
	putClearable(out, "target_date", p.TargetDate)
	return out
}

func IdeaToRecord(fr domain.FeatureRequest) remote.FeatureRequestRecord {
	return remote.FeatureRequestRecord{
		Title:       fr.Title,
		Description: optional(fr.Description),
		Screenshot:  optional(fr.Screenshot),
		SourceView:  optional(fr.SourceView),
		Status:      string(fr.Status),
		Priority:    string(fr.Priority),
	}
}

func IdeaPatchToRemote(p domain.IdeaPatch) remote.Patch {
	out := remote.Patch{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	putClearable(out, "description", p.Description)
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		out["priority"] = string(*p.Priority)
	}
	return out
}

func AgentToRecord(a domain.Agent) remote.AgentRecord {
	active := a.Status != domain.AgentIdle
	return remote.AgentRecord{
		Name:         a.Name,
		Role:         a.Role,
		Emoji:        a.Emoji,
		Status:       string(a.Status),
		Description:  a.Description,
		SystemPrompt: optional(a.SystemPrompt),
		Tools:        a.Tools,
		IsActive:     &active,
	}
}

func AgentPatchToRemote(p domain.AgentPatch) remote.Patch {
	out := remote.Patch{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Active != nil {
		out["is_active"] = *p.Active
	}
	if p.SystemPrompt != nil {
		out["system_prompt"] = *p.SystemPrompt
	}
	if p.Tools != nil {
		out["tools"] = *p.Tools
	}
	return out
}

func putClearable[T any](out remote.Patch, key string, c domain.Clearable[T]) {
	if !c.Set {
		return
	}
	if c.Null {
		out[key] = nil
		return
	}
	out[key] = c.Value
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package mapper translates remote store records into entity store shapes and
// back. Every function is pure and total: missing optional fields fall back to
// defaults instead of failing.
package mapper

import (
	"time"

	"github.com/dustin/go-humanize"

	"opsdeck/internal/domain"
	"opsdeck/internal/remote"
)

// RelativeTime renders an RFC3339 timestamp relative to now. Unparseable
// input is returned unchanged.
func RelativeTime(ts string, now time.Time) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	if d := now.Sub(t); d < time.Minute && d > -time.Minute {
		return domain.JustNow
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// ProjectRef returns the denormalized code and display name for projectID.
func ProjectRef(projects []domain.Project, projectID string) (code, name string) {
	if projectID == "" {
		return "", ""
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p.Code, DisplayTitle(p.Title)
		}
	}
	return "", ""
}

// OwnerRef returns the denormalized display name and emoji for an agent id.
func OwnerRef(agents []domain.Agent, ownerID string) (name, emoji string) {
	if ownerID == "" {
		return "", ""
	}
	if ownerID == domain.OperatorID {
		return domain.OperatorName, domain.OperatorEmoji
	}
	for _, a := range agents {
		if a.ID == ownerID {
			return a.Name, a.Emoji
		}
	}
	return "", ""
}

// DepartmentName looks up a department by id.
func DepartmentName(departments []domain.Department, id string) string {
	for _, d := range departments {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}

func MapDepartment(rec remote.DepartmentRecord) domain.Department {
	return domain.Department{ID: rec.ID, Name: rec.Name}
}

func MapAgent(rec remote.AgentRecord) domain.Agent {
	a := domain.Agent{
		ID:           rec.ID,
		Name:         rec.Name,
		Role:         rec.Role,
		Emoji:        rec.Emoji,
		Status:       agentStatus(rec.Status),
		Description:  rec.Description,
		Uptime:       rec.Uptime,
		SystemPrompt: deref(rec.SystemPrompt),
		CurrentTask:  deref(rec.CurrentTask),
		Tools:        append([]string(nil), rec.Tools...),
	}
	if rec.Status == "" && rec.IsActive != nil && *rec.IsActive {
		a.Status = domain.AgentActive
	}
	if rec.TasksCompleted != nil {
		a.TasksCompleted = *rec.TasksCompleted
	}
	if len(rec.Metrics) > 0 {
		a.Metrics = make(map[string]float64, len(rec.Metrics))
		for k, v := range rec.Metrics {
			a.Metrics[k] = v
		}
	}
	return a
}

// MapTask embeds the referenced project's code and display name.
func MapTask(rec remote.TaskRecord, projects []domain.Project) domain.Task {
	t := domain.Task{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  deref(rec.Description),
		AssignedTo:   rec.AssignedTo,
		AssignedBy:   rec.AssignedBy,
		Priority:     PriorityFromRemote(rec.Priority),
		Status:       TaskStatusFromRemote(rec.Status),
		Deadline:     deref(rec.Deadline),
		ParentTaskID: deref(rec.ParentTaskID),
		ProjectID:    deref(rec.ProjectID),
		Tags:         append([]string(nil), rec.Tags...),
		CreatedAt:    rec.CreatedAt,
	}
	t.ProjectCode, t.ProjectName = ProjectRef(projects, t.ProjectID)
	return t
}

// MapProject derives the short code and department name. Task counts are
// left zero; the store recomputes them on read.
func MapProject(rec remote.ProjectRecord, departments []domain.Department) domain.Project {
	p := domain.Project{
		ID:              rec.ID,
		Title:           rec.Title,
		Code:            ShortCode(rec.Title),
		Description:     deref(rec.Description),
		Status:          projectStatus(rec.Status),
		DepartmentID:    deref(rec.DepartmentID),
		LeadAgentID:     deref(rec.LeadAgentID),
		TargetDate:      deref(rec.TargetDate),
		Notes:           deref(rec.Notes),
		ParentProjectID: deref(rec.ParentProjectID),
		CreatedAt:       rec.CreatedAt,
	}
	p.DepartmentName = DepartmentName(departments, p.DepartmentID)
	return p
}

func MapGoal(rec remote.GoalRecord, agents []domain.Agent) domain.Goal {
	g := domain.Goal{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: deref(rec.Description),
		Status:      goalStatus(rec.Status),
		OwnerID:     deref(rec.OwnerID),
		TargetDate:  deref(rec.TargetDate),
	}
	if rec.Progress != nil {
		g.Progress = domain.ClampProgress(*rec.Progress)
	}
	g.OwnerName, g.OwnerEmoji = OwnerRef(agents, g.OwnerID)
	for _, in := range rec.Initiatives {
		g.Initiatives = append(g.Initiatives, domain.Initiative{Name: in.Name, Status: in.Status, Due: in.Due})
	}
	return g
}

func MapKPI(rec remote.KPIRecord) domain.KPI {
	k := domain.KPI{
		ID:       rec.ID,
		Label:    rec.Label,
		Value:    rec.Value,
		Trend:    trend(rec.Trend),
		Category: rec.Category,
	}
	if rec.Change != nil {
		k.Change = *rec.Change
	}
	return k
}

func MapActivity(rec remote.ActivityRecord, now time.Time) domain.ActivityItem {
	return domain.ActivityItem{
		ID:         rec.ID,
		AgentName:  rec.AgentName,
		AgentEmoji: rec.AgentEmoji,
		Action:     rec.Action,
		Detail:     rec.Detail,
		Timestamp:  RelativeTime(rec.CreatedAt, now),
		Type:       activityType(rec.Type),
	}
}

func MapMessage(rec remote.MessageRecord, now time.Time) domain.Message {
	m := domain.Message{
		ID:         rec.ID,
		Sender:     sender(rec.Sender),
		SenderName: rec.SenderName,
		Content:    rec.Content,
		Timestamp:  RelativeTime(rec.CreatedAt, now),
		Type:       messageType(rec.Type),
	}
	if m.SenderName == "" && m.Sender == domain.SenderOperator {
		m.SenderName = domain.OperatorName
	}
	return m
}

func MapIdea(rec remote.FeatureRequestRecord) domain.FeatureRequest {
	return domain.FeatureRequest{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: deref(rec.Description),
		Screenshot:  deref(rec.Screenshot),
		SourceView:  deref(rec.SourceView),
		Status:      ideaStatus(rec.Status),
		Priority:    ideaPriority(rec.Priority),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// MapSnapshot maps a dashboard payload plus feature requests, resolving
// denormalized fields in dependency order.
func MapSnapshot(snap remote.DashboardSnapshot, ideas []remote.FeatureRequestRecord, now time.Time) domain.Snapshot {
	var out domain.Snapshot
	for _, d := range snap.Departments {
		out.Departments = append(out.Departments, MapDepartment(d))
	}
	for _, p := range snap.Projects {
		out.Projects = append(out.Projects, MapProject(p, out.Departments))
	}
	for _, a := range snap.Agents {
		out.Agents = append(out.Agents, MapAgent(a))
	}
	for _, t := range snap.Tasks {
		out.Tasks = append(out.Tasks, MapTask(t, out.Projects))
	}
	for _, g := range snap.Goals {
		out.Goals = append(out.Goals, MapGoal(g, out.Agents))
	}
	for _, k := range snap.KPIs {
		out.KPIs = append(out.KPIs, MapKPI(k))
	}
	for _, a := range snap.Activity {
		out.Activity = append(out.Activity, MapActivity(a, now))
	}
	for _, m := range snap.Messages {
		out.Messages = append(out.Messages, MapMessage(m, now))
	}
	for _, fr := range ideas {
		out.Ideas = append(out.Ideas, MapIdea(fr))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

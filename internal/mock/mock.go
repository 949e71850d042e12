// Package mock provides the built-in dataset used when the remote store
// cannot be reached and there is no cached snapshot.
package mock

import (
	"fmt"
	"strings"

	"opsdeck/internal/domain"
)

// AssistantName labels chat replies.
const AssistantName = "Atlas"

// OfflineReply is the canned chat answer for offline sessions.
func OfflineReply(content string) string {
	topic := strings.TrimSpace(content)
	if r := []rune(topic); len(r) > 60 {
		topic = string(r[:60]) + "…"
	}
	return fmt.Sprintf("I'm running in offline mode, so I can't reach the team right now. I've noted %q and will follow up once we're back online.", topic)
}

// Snapshot returns a fresh copy of the mock dataset.
func Snapshot() domain.Snapshot {
	departments := []domain.Department{
		{ID: "dept-growth", Name: "Growth"},
		{ID: "dept-eng", Name: "Engineering"},
		{ID: "dept-ops", Name: "Operations"},
	}
	agents := []domain.Agent{
		{
			ID: "agent-atlas", Name: "Atlas", Role: "@chief-of-staff", Emoji: "🧭",
			Status: domain.AgentActive, Description: "Coordinates the team and triages incoming work.",
			TasksCompleted: 142, CurrentTask: "Weekly planning", Uptime: "14d 3h",
			Metrics: map[string]float64{"accuracy": 97.2, "throughput": 31},
			Tools:   []string{"calendar", "tasks", "search"},
		},
		{
			ID: "agent-nova", Name: "Nova", Role: "@growth", Emoji: "🚀",
			Status: domain.AgentWorking, Description: "Runs acquisition experiments.",
			TasksCompleted: 87, CurrentTask: "Landing page A/B test", Uptime: "9d 11h",
			Metrics: map[string]float64{"accuracy": 92.5, "throughput": 18},
			Tools:   []string{"analytics", "ads"},
		},
		{
			ID: "agent-forge", Name: "Forge", Role: "@engineering", Emoji: "🛠️",
			Status: domain.AgentIdle, Description: "Ships internal tooling.",
			TasksCompleted: 64, Uptime: "21d 2h",
			Metrics: map[string]float64{"accuracy": 95.1, "throughput": 12},
			Tools:   []string{"git", "ci"},
		},
	}
	projects := []domain.Project{
		{
			ID: "proj-grw", Title: "PR.GRW | Q1 Growth Push", Code: "GRW",
			Description: "Double weekly signups by end of quarter.", Status: domain.ProjectActive,
			DepartmentID: "dept-growth", DepartmentName: "Growth", LeadAgentID: "agent-nova",
			TargetDate: "2025-03-31", CreatedAt: "2025-01-02T09:00:00Z",
		},
		{
			ID: "proj-ops", Title: "PR.OPS | Ops Automation", Code: "OPS",
			Description: "Automate recurring operational chores.", Status: domain.ProjectActive,
			DepartmentID: "dept-ops", DepartmentName: "Operations", LeadAgentID: "agent-atlas",
			CreatedAt: "2025-01-05T09:00:00Z",
		},
		{
			ID: "proj-cli", Title: "PR.CLI | Internal CLI", Code: "CLI",
			Status: domain.ProjectPaused, DepartmentID: "dept-eng", DepartmentName: "Engineering",
			LeadAgentID: "agent-forge", ParentProjectID: "proj-ops", CreatedAt: "2025-01-09T09:00:00Z",
		},
	}
	tasks := []domain.Task{
		{
			ID: "task-1", Title: "Review onboarding funnel", AssignedTo: domain.OperatorID, AssignedBy: "agent-atlas",
			Priority: domain.PriorityHigh, Status: domain.TaskPending, ProjectID: "proj-grw",
			ProjectCode: "GRW", ProjectName: "Q1 Growth Push", Tags: []string{"growth"}, CreatedAt: "2025-01-10T10:00:00Z",
		},
		{
			ID: "task-2", Title: "Launch pricing page test", AssignedTo: "agent-nova", AssignedBy: domain.OperatorID,
			Priority: domain.PriorityCritical, Status: domain.TaskInProgress, ProjectID: "proj-grw",
			ProjectCode: "GRW", ProjectName: "Q1 Growth Push", Deadline: "2025-02-01", CreatedAt: "2025-01-11T10:00:00Z",
		},
		{
			ID: "task-3", Title: "Approve vendor contract", AssignedTo: domain.OperatorID, AssignedBy: "agent-atlas",
			Priority: domain.PriorityMedium, Status: domain.TaskReview, ProjectID: "proj-ops",
			ProjectCode: "OPS", ProjectName: "Ops Automation", CreatedAt: "2025-01-12T10:00:00Z",
		},
		{
			ID: "task-4", Title: "Draft release checklist", AssignedTo: "agent-forge", AssignedBy: domain.OperatorID,
			Priority: domain.PriorityLow, Status: domain.TaskCompleted, ProjectID: "proj-cli",
			ProjectCode: "CLI", ProjectName: "Internal CLI", ParentTaskID: "task-3", CreatedAt: "2025-01-13T10:00:00Z",
		},
	}
	goals := []domain.Goal{
		{
			ID: "goal-1", Title: "Reach 10k weekly signups", Progress: 42, Status: domain.GoalOnTrack,
			OwnerID: "agent-nova", OwnerName: "Nova", OwnerEmoji: "🚀", TargetDate: "2025-03-31",
			Initiatives: []domain.Initiative{
				{Name: "Pricing page test", Status: "in progress", Due: "Feb"},
				{Name: "Referral program", Status: "planned", Due: "Mar"},
			},
		},
		{
			ID: "goal-2", Title: "Cut manual ops time in half", Progress: 18, Status: domain.GoalAtRisk,
			OwnerID: domain.OperatorID, OwnerName: domain.OperatorName, OwnerEmoji: domain.OperatorEmoji,
		},
	}
	kpis := []domain.KPI{
		{ID: "kpi-signups", Label: "Weekly signups", Value: "4,210", Change: 12.4, Trend: domain.TrendUp, Category: "growth"},
		{ID: "kpi-churn", Label: "Churn", Value: "2.1%", Change: -0.3, Trend: domain.TrendDown, Category: "growth"},
		{ID: "kpi-tasks", Label: "Tasks closed", Value: "37", Change: 0, Trend: domain.TrendStable, Category: "ops"},
	}
	activity := []domain.ActivityItem{
		{ID: "act-1", AgentName: "Nova", AgentEmoji: "🚀", Action: "Started experiment", Detail: "Pricing page test", Timestamp: "2 hours ago", Type: domain.ActivityTask},
		{ID: "act-2", AgentName: "Atlas", AgentEmoji: "🧭", Action: "Filed report", Detail: "Weekly summary", Timestamp: "1 day ago", Type: domain.ActivityReport},
	}
	messages := []domain.Message{
		{ID: "msg-1", Sender: domain.SenderAgent, SenderName: AssistantName, Content: "Good morning. Two tasks need your review today.", Timestamp: "1 hour ago", Type: domain.MessageReport},
	}
	ideas := []domain.FeatureRequest{
		{ID: "idea-1", Title: "Dark mode for the kanban board", SourceView: "tasks", Status: domain.IdeaNew, Priority: domain.IdeaLow, CreatedAt: "2025-01-14T08:00:00Z", UpdatedAt: "2025-01-14T08:00:00Z"},
		{ID: "idea-2", Title: "Weekly digest email", Status: domain.IdeaAcknowledged, Priority: domain.IdeaMedium, CreatedAt: "2025-01-08T08:00:00Z", UpdatedAt: "2025-01-09T08:00:00Z"},
	}
	return domain.Snapshot{
		Agents:      agents,
		Tasks:       tasks,
		Projects:    projects,
		Departments: departments,
		Goals:       goals,
		KPIs:        kpis,
		Activity:    activity,
		Messages:    messages,
		Ideas:       ideas,
	}
}
